package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultx/vaultx-term/optimistic"
	"github.com/vaultx/vaultx-term/sse"
)

func newTestClient(t *testing.T, h http.HandlerFunc, cookies ...StoredCookie) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	jar, err := NewJar(srv.URL, cookies)
	require.NoError(t, err)
	return New(srv.URL, jar, nil)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// -- Headers ------------------------------------------------------------------

func TestUnsafeVerbsCarryCSRFToken(t *testing.T) {
	var gotCSRF, gotReqID string
	var hadCSRF bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotCSRF = r.Header.Get("X-CSRF-Token")
		_, hadCSRF = r.Header["X-Csrf-Token"]
		gotReqID = r.Header.Get("X-Request-ID")
		writeJSON(w, 200, map[string]any{"item": map[string]any{"id": "t1", "column_id": "drafting"}})
	}, StoredCookie{Name: CSRFCookie, Value: "abc123"})

	_, err := c.MoveTemplate(context.Background(), "t1", "drafting")
	require.NoError(t, err)
	assert.True(t, hadCSRF)
	assert.Equal(t, "abc123", gotCSRF)
	assert.NotEmpty(t, gotReqID)
}

func TestUnsafeVerbSendsEmptyCSRFWhenCookieMissing(t *testing.T) {
	var hadCSRF bool
	var gotCSRF string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, hadCSRF = r.Header["X-Csrf-Token"]
		gotCSRF = r.Header.Get("X-CSRF-Token")
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.DeleteTemplate(context.Background(), "t1"))
	assert.True(t, hadCSRF)
	assert.Equal(t, "", gotCSRF)
}

func TestSafeVerbsOmitCSRF(t *testing.T) {
	var hadCSRF bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, hadCSRF = r.Header["X-Csrf-Token"]
		writeJSON(w, 200, map[string]any{"columns": []any{}})
	}, StoredCookie{Name: CSRFCookie, Value: "abc"})

	_, err := c.ListColumns(context.Background())
	require.NoError(t, err)
	assert.False(t, hadCSRF)
}

// -- Errors -------------------------------------------------------------------

func TestAPIErrorCarriesServerMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 409, map[string]string{"error": "Column is locked"})
	})

	_, err := c.MoveTemplate(context.Background(), "t1", "approved")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 409, apiErr.Status)
	assert.Equal(t, "Column is locked", apiErr.ServerMessage())
	assert.False(t, IsUnauthorized(err))
	assert.NotEmpty(t, apiErr.RequestID)
}

func TestAPIErrorFallsBackToMessageField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 500, map[string]string{"message": "boom"})
	})
	_, err := c.ListColumns(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "boom", apiErr.Message)
}

func TestAPIErrorWithoutJSONBodyHasNoMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(502)
		_, _ = io.WriteString(w, "<html>bad gateway</html>")
	})
	_, err := c.ListColumns(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "", apiErr.ServerMessage())
}

func TestUnauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := c.ListInbox(context.Background(), InboxQuery{})
	assert.True(t, IsUnauthorized(err))
}

// -- Inbox --------------------------------------------------------------------

func TestListInboxDefaults(t *testing.T) {
	var query map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/doctor/inbox", r.URL.Path)
		query = map[string]string{
			"page":     r.URL.Query().Get("page"),
			"pageSize": r.URL.Query().Get("pageSize"),
			"sort":     r.URL.Query().Get("sort"),
		}
		writeJSON(w, 200, map[string]any{
			"rows": []map[string]any{{"id": "c1", "patient_name": "Ann", "status": "pending", "red_flags_count": 2}},
			"meta": map[string]int{"total": 1, "page": 1, "pageSize": 50},
		})
	})

	page, err := c.ListInbox(context.Background(), InboxQuery{})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"page": "1", "pageSize": "50", "sort": "-createdAt"}, query)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, StatusPending, page.Rows[0].Status)
	assert.Equal(t, 2, page.Rows[0].RedFlagsCount)
	assert.Equal(t, 1, page.Meta.Total)
}

func TestReviewCaseEnvelopes(t *testing.T) {
	current := Case{ID: "c1", PatientName: "Ann", Status: StatusReviewed, UpdatedAt: "t0"}

	tests := []struct {
		name string
		body string
		want Case
	}{
		{"session", `{"session":{"id":"c1","status":"reviewed","updated_at":"t1"}}`,
			Case{ID: "c1", PatientName: "Ann", Status: StatusReviewed, UpdatedAt: "t1"}},
		{"item", `{"item":{"status":"reviewed","updated_at":"t2"}}`,
			Case{ID: "c1", PatientName: "Ann", Status: StatusReviewed, UpdatedAt: "t2"}},
		{"bare", `{"id":"c1","status":"reviewed","updated_at":"t3"}`,
			Case{ID: "c1", PatientName: "Ann", Status: StatusReviewed, UpdatedAt: "t3"}},
		{"empty", ``, current},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/doctor/intake/c1/review", r.URL.Path)
				assert.Equal(t, http.MethodPost, r.Method)
				_, _ = io.WriteString(w, tt.body)
			})
			got, err := c.ReviewCase(context.Background(), current)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetCase(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"session":{"id":"c1","status":"pending","patient":{"name":"Ann"},
			"transcript":[{"role":"agent","content":"hi"}],
			"summary":{"soap":{"subjective":"cough","objective":"","assessment":[{"condition":"URI"}],"plan":["rest"]},
			"ddx":[],"icd10_codes":["J06.9"],"red_flags":[{"flag":"fever"}]}}}`)
	})
	d, err := c.GetCase(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", d.Patient.Name)
	require.NotNil(t, d.Summary)
	require.NotNil(t, d.Summary.SOAP)
	assert.Equal(t, "URI", d.Summary.SOAP.Assessment[0].Condition)
	assert.Equal(t, []string{"J06.9"}, d.Summary.ICD10Codes)
}

func TestRegenerateSummarySendsIncludeOCR(t *testing.T) {
	var body map[string]bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/doctor/intake/c1/summary/regenerate", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, 200, map[string]bool{"ok": true})
	})
	require.NoError(t, c.RegenerateSummary(context.Background(), "c1"))
	assert.Equal(t, map[string]bool{"include_ocr": true}, body)
}

// -- Templates ----------------------------------------------------------------

func TestListColumnsSortedByPosition(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"columns": []Column{
			{ID: "approved", Position: 3}, {ID: "backlog", Position: 0}, {ID: "drafting", Position: 1},
		}})
	})
	cols, err := c.ListColumns(context.Background())
	require.NoError(t, err)
	ids := []string{cols[0].ID, cols[1].ID, cols[2].ID}
	assert.Equal(t, []string{"backlog", "drafting", "approved"}, ids)
}

func TestListTemplatesQuery(t *testing.T) {
	var raw string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw = r.URL.RawQuery
		writeJSON(w, 200, map[string]any{"items": nil})
	})
	items, err := c.ListTemplates(context.Background(), TemplateQuery{Q: "chest pain", Type: TypeSOAP})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Equal(t, "q=chest+pain&type=soap", raw)
}

func TestMoveTemplateBody(t *testing.T) {
	var body map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/templates/t1/move", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, 200, map[string]any{"item": map[string]any{"id": "t1", "column_id": "clinical", "updated_at": "now"}})
	})
	item, err := c.MoveTemplate(context.Background(), "t1", "clinical")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"to_column_id": "clinical"}, body)
	assert.Equal(t, "clinical", item.ColumnID)
}

func TestItemResponseWithoutItemIsApplicationFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"ok": true})
	})
	_, err := c.MoveTemplate(context.Background(), "t1", "clinical")
	require.Error(t, err)

	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)
	unauthorized, message := optimistic.Classify(err, "Could not move the card.")
	assert.False(t, unauthorized)
	assert.Equal(t, "Could not move the card.", message)
}

func TestUndecodableBodyIsApplicationFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, "<html>")
	})
	_, err := c.ListColumns(context.Background())
	require.Error(t, err)

	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)
	_, message := optimistic.Classify(err, "Could not load the board.")
	assert.Equal(t, "Could not load the board.", message)
}

func TestUpdateTemplateSendsOnlySetFields(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, 200, map[string]any{"item": map[string]any{"id": "t1", "is_approved": true}})
	})
	approved := true
	item, err := c.UpdateTemplate(context.Background(), "t1", TemplatePatch{IsApproved: &approved})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"is_approved": true}, body)
	assert.True(t, item.IsApproved)
}

func TestUpdateTemplateTagsAndContent(t *testing.T) {
	var bodies []map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		bodies = append(bodies, body)
		writeJSON(w, 200, map[string]any{"item": map[string]any{"id": "t1"}})
	})
	ctx := context.Background()

	cleared := []string{}
	_, err := c.UpdateTemplate(ctx, "t1", TemplatePatch{Tags: &cleared})
	require.NoError(t, err)

	tags := []string{"cardio", "er"}
	content := TemplateContent{Snippet: &SnippetContent{Section: "HPI", Text: "onset"}}
	_, err = c.UpdateTemplate(ctx, "t1", TemplatePatch{Tags: &tags, Content: &content})
	require.NoError(t, err)

	require.Len(t, bodies, 2)
	assert.Equal(t, map[string]any{"tags": []any{}}, bodies[0])
	assert.Equal(t, []any{"cardio", "er"}, bodies[1]["tags"])
	assert.Equal(t, map[string]any{"snippet": map[string]any{"section": "HPI", "text": "onset"}}, bodies[1]["content"])
}

func TestTemplateContentUnion(t *testing.T) {
	var tpl Template
	require.NoError(t, json.Unmarshal([]byte(`{"id":"t1","type":"checklist",
		"content":{"checklist":{"items":[{"text":"BP","done":false}]}}}`), &tpl))
	assert.Equal(t, TypeChecklist, tpl.Content.Kind())
	require.NotNil(t, tpl.Content.Checklist)
	assert.Equal(t, "BP", tpl.Content.Checklist.Items[0].Text)

	_, err := EmptyContent("memo")
	assert.Error(t, err)
}

// -- Intake stream ------------------------------------------------------------

func TestStreamTurnDeliversFramesAcrossWrites(t *testing.T) {
	var req TurnRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)
		for _, part := range []string{"event: tok", "en\ndata: {\"text\":\"Hel\"}\n", "\nevent: token\ndata: {\"text\":\"lo\"}\n\n", "event: done\ndata: {}"} {
			_, _ = io.WriteString(w, part)
			fl.Flush()
		}
	})

	var frames []sse.Frame
	err := c.StreamTurn(context.Background(), TurnRequest{UserMessage: "hi"}, func(f sse.Frame) bool {
		frames = append(frames, f)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, "hi", req.UserMessage)
	assert.NotNil(t, req.History)
	require.Len(t, frames, 3)
	assert.Equal(t, "done", frames[2].Event)
}

func TestStreamTurnHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 401, map[string]string{"error": "expired"})
	})
	err := c.StreamTurn(context.Background(), TurnRequest{UserMessage: "hi"}, func(sse.Frame) bool { return true })
	assert.True(t, IsUnauthorized(err))
}

func TestStreamTurnCancel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "event: token\ndata: {\"text\":\"a\"}\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- c.StreamTurn(ctx, TurnRequest{UserMessage: "hi"}, func(sse.Frame) bool {
			cancel()
			return true
		})
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop after cancel")
	}
}

func TestSubmitIntake(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, 200, map[string]any{"ok": true, "sessionId": "s1"})
	})
	out, err := c.SubmitIntake(context.Background(), SubmitRequest{
		Transcript:  []ChatMessage{{Role: "agent", Content: "hello"}},
		PatientName: "  Ann ",
	})
	require.NoError(t, err)
	assert.Equal(t, "s1", out.SessionID)
	assert.Equal(t, "Ann", body["patient_name"])
	_, hasDOB := body["patient_dob"]
	assert.False(t, hasDOB)
	summary := body["summary"].(map[string]any)
	assert.Nil(t, summary["soap"])
	assert.Equal(t, []any{}, summary["ddx"])
}

// -- Session ------------------------------------------------------------------

func TestSessionExpiry(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)

	got, err := SessionExpiry(tok)
	require.NoError(t, err)
	assert.True(t, exp.Equal(got))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = SessionExpiry(noExp)
	assert.ErrorIs(t, err, ErrNoExpiry)

	_, err = SessionExpiry("not-a-jwt")
	assert.Error(t, err)
}

func TestCookiesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	cs, err := LoadCookies(path)
	require.NoError(t, err)
	assert.Nil(t, cs)

	require.NoError(t, SaveCookies(path, []StoredCookie{{Name: "session", Value: "v"}}))
	cs, err = LoadCookies(path)
	require.NoError(t, err)
	assert.Equal(t, []StoredCookie{{Name: "session", Value: "v"}}, cs)

	jar, err := NewJar("http://example.test", cs)
	require.NoError(t, err)
	c := New("http://example.test", jar, nil)
	v, ok := c.Cookie("session")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}
