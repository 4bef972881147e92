package app

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultx/vaultx-term/client"
	"github.com/vaultx/vaultx-term/model"
	"github.com/vaultx/vaultx-term/msg"
	"github.com/vaultx/vaultx-term/sse"
	"github.com/vaultx/vaultx-term/transcript"
)

// fakeAPI is an in-memory backend. Every call returns immediately unless
// stream blocks.
type fakeAPI struct {
	mu sync.Mutex

	rows      []client.Case
	inboxErr  error
	dashErr   error
	actionErr error
	actions   []string

	columns   []client.Column
	templates []client.Template
	queries   []client.TemplateQuery
	moveErr   error
	moves     []string
	updateErr error
	patches   []client.TemplatePatch
	deleted   []string

	stream  func(ctx context.Context, req client.TurnRequest, fn client.FrameFunc) error
	submits []client.SubmitRequest
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		rows: []client.Case{
			{ID: "c1", PatientName: "Ann Lee", Status: client.StatusPending},
			{ID: "c2", PatientName: "Bo Chen", Status: client.StatusReviewed},
		},
		columns: []client.Column{
			{ID: "backlog", Name: "Backlog", Position: 0},
			{ID: "drafting", Name: "Drafting", Position: 1},
		},
		templates: []client.Template{
			{ID: "t1", ColumnID: "backlog", Type: client.TypeSOAP, Title: "Chest pain", Tags: []string{"cardio"}},
		},
	}
}

func (f *fakeAPI) ListInbox(ctx context.Context, q client.InboxQuery) (*client.InboxPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inboxErr != nil {
		return nil, f.inboxErr
	}
	return &client.InboxPage{Rows: append([]client.Case(nil), f.rows...)}, nil
}

func (f *fakeAPI) Dashboard(ctx context.Context) (*client.Dashboard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dashErr != nil {
		return nil, f.dashErr
	}
	return &client.Dashboard{}, nil
}

func (f *fakeAPI) GetCase(ctx context.Context, id string) (*client.CaseDetail, error) {
	return &client.CaseDetail{ID: id, Patient: client.Patient{Name: "Ann Lee"}}, nil
}

func (f *fakeAPI) caseAction(c client.Case, action string, status client.CaseStatus) (client.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action+":"+c.ID)
	if f.actionErr != nil {
		return client.Case{}, f.actionErr
	}
	c.Status = status
	c.UpdatedAt = "2026-01-02T00:00:00Z"
	return c, nil
}

func (f *fakeAPI) ReviewCase(ctx context.Context, c client.Case) (client.Case, error) {
	return f.caseAction(c, "review", client.StatusReviewed)
}

func (f *fakeAPI) CloseCase(ctx context.Context, c client.Case) (client.Case, error) {
	return f.caseAction(c, "close", client.StatusClosed)
}

func (f *fakeAPI) RegenerateSummary(ctx context.Context, id string) error { return nil }

func (f *fakeAPI) DocumentURL(ctx context.Context, caseID, docID string) (string, error) {
	return "https://files.example/" + docID, nil
}

func (f *fakeAPI) ListColumns(ctx context.Context) ([]client.Column, error) {
	return f.columns, nil
}

func (f *fakeAPI) ListTemplates(ctx context.Context, q client.TemplateQuery) ([]client.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return append([]client.Template(nil), f.templates...), nil
}

func (f *fakeAPI) CreateTemplate(ctx context.Context, t client.NewTemplate) (client.Template, error) {
	return client.Template{ID: "new", ColumnID: t.ColumnID, Type: t.Type, Title: t.Title, Content: t.Content}, nil
}

func (f *fakeAPI) UpdateTemplate(ctx context.Context, id string, patch client.TemplatePatch) (client.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patch)
	if f.updateErr != nil {
		return client.Template{}, f.updateErr
	}
	for _, t := range f.templates {
		if t.ID != id {
			continue
		}
		if patch.Title != nil {
			t.Title = *patch.Title
		}
		if patch.IsApproved != nil {
			t.IsApproved = *patch.IsApproved
		}
		if patch.Tags != nil {
			t.Tags = *patch.Tags
		}
		if patch.Content != nil {
			t.Content = *patch.Content
		}
		return t, nil
	}
	return client.Template{}, &client.APIError{Status: 404, Message: "Not found"}
}

func (f *fakeAPI) MoveTemplate(ctx context.Context, id, toColumnID string) (client.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, id+"->"+toColumnID)
	if f.moveErr != nil {
		return client.Template{}, f.moveErr
	}
	for _, t := range f.templates {
		if t.ID == id {
			t.ColumnID = toColumnID
			t.UpdatedAt = "2026-01-02T00:00:00Z"
			return t, nil
		}
	}
	return client.Template{}, &client.APIError{Status: 404}
}

func (f *fakeAPI) DuplicateTemplate(ctx context.Context, id string) (client.Template, error) {
	return client.Template{ID: id + "-copy", ColumnID: "backlog", Title: "Copy"}, nil
}

func (f *fakeAPI) DeleteTemplate(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAPI) StreamTurn(ctx context.Context, req client.TurnRequest, fn client.FrameFunc) error {
	if f.stream == nil {
		fn(sse.Frame{Event: "done", Data: "{}"})
		return nil
	}
	return f.stream(ctx, req, fn)
}

func (f *fakeAPI) SubmitIntake(ctx context.Context, req client.SubmitRequest) (*client.SubmitResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, req)
	return &client.SubmitResponse{OK: true, SessionID: "s1"}, nil
}

// -- Driving the model --------------------------------------------------------

// cmdWait bounds how long a command may take before its message is dropped.
// Timers (spinner, cursor blink, debounce, toast clock) never make it.
const cmdWait = 150 * time.Millisecond

// exec runs cmd and every command it batches, returning the messages that
// belong to this program. Framework messages such as spinner ticks are
// dropped.
func exec(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	results := make(chan tea.Msg, 16)
	pending := 0
	start := func(c tea.Cmd) {
		if c == nil {
			return
		}
		pending++
		go func() { results <- c() }()
	}
	start(cmd)

	var out []tea.Msg
	deadline := time.After(cmdWait)
	for pending > 0 {
		select {
		case m := <-results:
			pending--
			if batch, ok := m.(tea.BatchMsg); ok {
				for _, c := range batch {
					start(c)
				}
				continue
			}
			if ours(m) {
				out = append(out, m)
			}
		case <-deadline:
			return out
		}
	}
	return out
}

func ours(m tea.Msg) bool {
	if m == nil {
		return false
	}
	pkg := reflect.TypeOf(m).PkgPath()
	return strings.HasSuffix(pkg, "vaultx-term/msg") ||
		strings.HasSuffix(pkg, "vaultx-term/app") ||
		strings.HasSuffix(pkg, "vaultx-term/model")
}

// send applies m and every message its commands produce, depth first.
func send(t *testing.T, m Model, in tea.Msg) Model {
	t.Helper()
	updated, cmd := m.Update(in)
	next, ok := updated.(Model)
	require.True(t, ok)
	for _, out := range exec(cmd) {
		next = send(t, next, out)
	}
	return next
}

// press applies a key without running the commands it returns.
func press(t *testing.T, m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(k)
	next, ok := updated.(Model)
	require.True(t, ok)
	return next, cmd
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m = send(t, m, keyRunes(string(r)))
	}
	return m
}

func loaded(t *testing.T, api *fakeAPI) Model {
	t.Helper()
	m := New(context.Background(), api, Options{Version: "test", BackendURL: "http://localhost:9000"})
	m = send(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	for _, in := range exec(tea.Batch(m.loadInbox(), m.loadBoard())) {
		m = send(t, m, in)
	}
	return m
}

func onTab(t *testing.T, m Model, tab Tab) Model {
	t.Helper()
	updated, _ := m.switchTab(tab)
	next, ok := updated.(Model)
	require.True(t, ok)
	return next
}

func caseStatus(m Model, id string) client.CaseStatus {
	c, _ := m.cases.Get(id)
	return c.Status
}

func cardColumn(m Model, id string) string {
	t, _ := m.templates.Get(id)
	return t.ColumnID
}

// -- Loading ------------------------------------------------------------------

func TestInitialLoad(t *testing.T) {
	m := loaded(t, newFakeAPI())
	assert.Equal(t, 2, m.cases.Len())
	assert.Equal(t, 1, m.templates.Len())
	assert.Equal(t, "c1", m.inbox.DetailID())
}

func TestDashboardFailureKeepsInbox(t *testing.T) {
	api := newFakeAPI()
	api.dashErr = &client.APIError{Status: 500}
	m := loaded(t, api)
	assert.Equal(t, 2, m.cases.Len())
	assert.False(t, m.toasts.HasToasts())
}

func TestDashboardUnauthorizedSignsOut(t *testing.T) {
	api := newFakeAPI()
	api.dashErr = &client.APIError{Status: 401}
	m := loaded(t, api)
	assert.Equal(t, StateSignedOut, m.state)
}

// -- Inbox actions ------------------------------------------------------------

func TestReviewIsOptimisticThenConfirmed(t *testing.T) {
	api := newFakeAPI()
	m := loaded(t, api)
	m = onTab(t, m, TabInbox)

	m, cmd := press(t, m, keyRunes("r"))
	assert.Equal(t, client.StatusReviewed, caseStatus(m, "c1"))
	assert.True(t, m.cases.Pending("c1"))

	for _, out := range exec(cmd) {
		m = send(t, m, out)
	}
	assert.False(t, m.cases.Pending("c1"))
	c, _ := m.cases.Get("c1")
	assert.Equal(t, "2026-01-02T00:00:00Z", c.UpdatedAt)
	assert.Equal(t, []string{"review:c1"}, api.actions)
	assert.Contains(t, m.toasts.View(200), "Case marked reviewed.")
}

func TestReviewFailureRollsBack(t *testing.T) {
	api := newFakeAPI()
	api.actionErr = &client.APIError{Status: 500, Message: "Database unavailable"}
	m := loaded(t, api)
	m = onTab(t, m, TabInbox)

	m = send(t, m, keyRunes("r"))
	assert.Equal(t, client.StatusPending, caseStatus(m, "c1"))
	assert.False(t, m.cases.Pending("c1"))
	view := m.toasts.View(200)
	assert.Contains(t, view, "Action failed")
	assert.Contains(t, view, "Database unavailable")
}

func TestSecondActionWhileInFlightIsRefused(t *testing.T) {
	api := newFakeAPI()
	m := loaded(t, api)
	m = onTab(t, m, TabInbox)

	m, first := press(t, m, keyRunes("r"))
	m, second := press(t, m, keyRunes("c"))
	assert.Nil(t, second)
	assert.Contains(t, m.toasts.View(200), "already in progress")

	for _, out := range exec(first) {
		m = send(t, m, out)
	}
	assert.Equal(t, []string{"review:c1"}, api.actions)
}

func TestUnauthorizedActionSignsOutOnce(t *testing.T) {
	api := newFakeAPI()
	api.actionErr = &client.APIError{Status: 401}
	m := loaded(t, api)
	m = onTab(t, m, TabInbox)

	m = send(t, m, keyRunes("r"))
	require.Equal(t, StateSignedOut, m.state)
	assert.Equal(t, client.StatusPending, caseStatus(m, "c1"))
	assert.False(t, m.toasts.HasToasts())
	assert.Contains(t, m.View(), "Signed out")

	// Further failures and keys change nothing.
	m = send(t, m, msg.InboxLoaded{Err: &client.APIError{Status: 401}})
	assert.Equal(t, StateSignedOut, m.state)
	m, cmd := press(t, m, keyRunes("r"))
	assert.Nil(t, cmd)
	_, cmd = press(t, m, keyRunes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestFailureAfterRefetchKeepsServerRows(t *testing.T) {
	api := newFakeAPI()
	api.actionErr = &client.APIError{Status: 500}
	m := loaded(t, api)
	m = onTab(t, m, TabInbox)

	m, cmd := press(t, m, keyRunes("r"))
	// A refetch lands before the review fails.
	rows := []client.Case{{ID: "c1", PatientName: "Ann B. Lee", Status: client.StatusPending}}
	m = send(t, m, msg.InboxLoaded{Page: &client.InboxPage{Rows: rows}})
	assert.True(t, m.cases.Pending("c1"))
	for _, out := range exec(cmd) {
		m = send(t, m, out)
	}
	c, _ := m.cases.Get("c1")
	assert.Equal(t, "Ann B. Lee", c.PatientName)
	assert.False(t, m.cases.Pending("c1"))
	assert.Contains(t, m.toasts.View(200), "Could not mark the case reviewed.")
}

// -- Notes --------------------------------------------------------------------

func TestMoveCardOptimistic(t *testing.T) {
	api := newFakeAPI()
	m := loaded(t, api)
	m = onTab(t, m, TabNotes)

	m, cmd := press(t, m, keyRunes("L"))
	assert.Equal(t, "drafting", cardColumn(m, "t1"))
	assert.True(t, m.templates.Pending("t1"))
	sel, ok := m.board.Selected()
	require.True(t, ok)
	assert.Equal(t, "t1", sel.ID)

	for _, out := range exec(cmd) {
		m = send(t, m, out)
	}
	assert.Equal(t, "drafting", cardColumn(m, "t1"))
	assert.False(t, m.templates.Pending("t1"))
	assert.Equal(t, []string{"t1->drafting"}, api.moves)
}

func TestMoveCardFailureRollsBack(t *testing.T) {
	api := newFakeAPI()
	api.moveErr = &client.APIError{Status: 500}
	m := loaded(t, api)
	m = onTab(t, m, TabNotes)

	m = send(t, m, keyRunes("L"))
	assert.Equal(t, "backlog", cardColumn(m, "t1"))
	assert.Contains(t, m.toasts.View(200), "Could not move the card.")
}

func TestMoveCardAtEdgeDoesNothing(t *testing.T) {
	api := newFakeAPI()
	m := loaded(t, api)
	m = onTab(t, m, TabNotes)
	_, cmd := press(t, m, keyRunes("H"))
	assert.Nil(t, cmd)
	assert.Empty(t, api.moves)
}

func TestEditTagsOptimistic(t *testing.T) {
	api := newFakeAPI()
	m := loaded(t, api)
	m = onTab(t, m, TabNotes)

	m = send(t, m, keyRunes("T"))
	require.Equal(t, promptEditTags, m.promptMode)
	assert.Equal(t, "cardio", m.prompt.Value())
	m = typeText(t, m, ", #er")

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	card, _ := m.templates.Get("t1")
	assert.Equal(t, []string{"cardio", "er"}, card.Tags)
	assert.True(t, m.templates.Pending("t1"))

	for _, out := range exec(cmd) {
		m = send(t, m, out)
	}
	assert.False(t, m.templates.Pending("t1"))
	require.Len(t, api.patches, 1)
	require.NotNil(t, api.patches[0].Tags)
	assert.Equal(t, []string{"cardio", "er"}, *api.patches[0].Tags)
	assert.Nil(t, api.patches[0].Content)
}

func TestEditContentFieldOptimistic(t *testing.T) {
	api := newFakeAPI()
	m := loaded(t, api)
	m = onTab(t, m, TabNotes)

	m = send(t, m, keyRunes("E"))
	require.True(t, m.picker.IsActive())
	m = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = send(t, m, tea.KeyMsg{Type: tea.KeyDown}) // Assessment
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, promptField, m.promptMode)
	assert.Equal(t, "A", m.editField)
	m = typeText(t, m, "stable angina")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	require.Len(t, api.patches, 1)
	require.NotNil(t, api.patches[0].Content)
	require.NotNil(t, api.patches[0].Content.SOAP)
	assert.Equal(t, "stable angina", api.patches[0].Content.SOAP.A)
	assert.Nil(t, api.patches[0].Tags)

	card, _ := m.templates.Get("t1")
	require.NotNil(t, card.Content.SOAP)
	assert.Equal(t, "stable angina", card.Content.SOAP.A)
	assert.Empty(t, m.editField)
}

func TestEditContentFailureRollsBack(t *testing.T) {
	api := newFakeAPI()
	api.updateErr = &client.APIError{Status: 500}
	m := loaded(t, api)
	m = onTab(t, m, TabNotes)

	m = send(t, m, keyRunes("E"))
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter}) // Subjective
	m = typeText(t, m, "cough")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	card, _ := m.templates.Get("t1")
	assert.Nil(t, card.Content.SOAP)
	assert.False(t, m.templates.Pending("t1"))
	assert.Contains(t, m.toasts.View(200), "Could not update the card.")
}

func TestSearchIsDebouncedAndStaleResultsDropped(t *testing.T) {
	api := newFakeAPI()
	m := loaded(t, api)
	m = onTab(t, m, TabNotes)
	baseline := len(api.queries)

	m = send(t, m, keyRunes("/"))
	require.Equal(t, promptSearch, m.promptMode)
	m = typeText(t, m, "ch")
	require.Equal(t, "ch", m.prompt.Value())
	assert.Len(t, api.queries, baseline, "typing alone must not fetch")

	// The first keystroke's timer is stale.
	m, cmd := step(t, m, msg.SearchDue{Seq: m.searchSeq - 1})
	assert.Nil(t, cmd)

	m = send(t, m, msg.SearchDue{Seq: m.searchSeq})
	require.Len(t, api.queries, baseline+1)
	assert.Equal(t, "ch", api.queries[baseline].Q)

	// A late response for an older query is ignored.
	m = send(t, m, msg.TemplatesLoaded{Seq: m.searchSeq - 1, Items: nil})
	assert.Equal(t, 1, m.templates.Len())
}

func step(t *testing.T, m Model, in tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(in)
	return updated.(Model), cmd
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	api := newFakeAPI()
	m := loaded(t, api)
	m = onTab(t, m, TabNotes)

	m = send(t, m, keyRunes("x"))
	require.True(t, m.confirm.IsActive())
	m = send(t, m, keyRunes("n"))
	assert.Empty(t, api.deleted)
	assert.Equal(t, 1, m.templates.Len())

	m = send(t, m, keyRunes("x"))
	m = send(t, m, keyRunes("y"))
	assert.Equal(t, []string{"t1"}, api.deleted)
	assert.Equal(t, 0, m.templates.Len())
}

func TestCreateCardFlow(t *testing.T) {
	api := newFakeAPI()
	m := loaded(t, api)
	m = onTab(t, m, TabNotes)

	m = send(t, m, keyRunes("n"))
	require.True(t, m.picker.IsActive())
	m = send(t, m, tea.KeyMsg{Type: tea.KeyDown}) // snippet
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, promptCreate, m.promptMode)
	m = typeText(t, m, "Allergies")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	created, ok := m.templates.Get("new")
	require.True(t, ok)
	assert.Equal(t, client.TypeSnippet, created.Type)
	assert.Equal(t, "Allergies", created.Title)
	assert.Equal(t, "backlog", created.ColumnID)
	assert.NotNil(t, created.Content.Snippet)
}

// -- Intake -------------------------------------------------------------------

func tokenStream(texts ...string) func(ctx context.Context, req client.TurnRequest, fn client.FrameFunc) error {
	return func(ctx context.Context, req client.TurnRequest, fn client.FrameFunc) error {
		for _, s := range texts {
			fn(sse.Frame{Event: "token", Data: `{"text":"` + s + `"}`})
		}
		fn(sse.Frame{Event: "done", Data: "{}"})
		return nil
	}
}

func lastMessage(m Model) transcript.Message {
	msgs := m.assembler.Snapshot().Messages
	return msgs[len(msgs)-1]
}

func TestTurnStreamsIntoTranscript(t *testing.T) {
	api := newFakeAPI()
	api.stream = tokenStream("Hel", "lo")
	m := loaded(t, api)

	m = typeText(t, m, "hi")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	snap := m.assembler.Snapshot()
	assert.Equal(t, transcript.Done, snap.State)
	require.Len(t, snap.Messages, 3)
	assert.Equal(t, transcript.Message{Role: transcript.RolePatient, Content: "hi"}, snap.Messages[1])
	assert.Equal(t, "Hello", lastMessage(m).Content)
	assert.False(t, m.activity.Active())
	assert.Nil(t, m.turnCancel)
	assert.Equal(t, "", m.composer.Value())
}

func TestEscCancelsTurnSilently(t *testing.T) {
	api := newFakeAPI()
	started := make(chan struct{})
	api.stream = func(ctx context.Context, req client.TurnRequest, fn client.FrameFunc) error {
		fn(sse.Frame{Event: "token", Data: `{"text":"Let me"}`})
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}
	m := loaded(t, api)
	m = typeText(t, m, "hi")

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	// Deliver the first frame.
	for _, out := range exec(cmd) {
		if te, ok := out.(turnEvent); ok {
			var next tea.Cmd
			m, next = step(t, m, te)
			cmd = next
			break
		}
	}
	<-started
	require.Equal(t, transcript.Streaming, m.assembler.Snapshot().State)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, transcript.Cancelled, m.assembler.Snapshot().State)
	assert.Nil(t, m.turnCancel)

	// Whatever the stream delivers after the cancel changes nothing.
	for _, out := range exec(cmd) {
		m = send(t, m, out)
	}
	assert.Equal(t, transcript.Cancelled, m.assembler.Snapshot().State)
	assert.False(t, m.toasts.HasToasts())
	assert.Equal(t, "Let me", lastMessage(m).Content)
}

func TestStaleTurnEventIgnored(t *testing.T) {
	api := newFakeAPI()
	api.stream = tokenStream("Hi")
	m := loaded(t, api)
	m = typeText(t, m, "hello")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	before := m.assembler.Snapshot()

	m = send(t, m, msg.TurnEvent{TurnID: "old-turn", Event: transcript.Event{Frame: sse.Frame{Event: "token", Data: `{"text":"ghost"}`}}})
	assert.Equal(t, before, m.assembler.Snapshot())
}

func TestTurnUnauthorizedSignsOut(t *testing.T) {
	api := newFakeAPI()
	api.stream = func(ctx context.Context, req client.TurnRequest, fn client.FrameFunc) error {
		return &client.APIError{Status: 401}
	}
	m := loaded(t, api)
	m = typeText(t, m, "hi")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, StateSignedOut, m.state)
	assert.False(t, m.toasts.HasToasts())
}

func TestAgentErrorShowsToast(t *testing.T) {
	api := newFakeAPI()
	api.stream = func(ctx context.Context, req client.TurnRequest, fn client.FrameFunc) error {
		fn(sse.Frame{Event: "error", Data: `{"message":"model overloaded"}`})
		return nil
	}
	m := loaded(t, api)
	m = typeText(t, m, "hi")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, transcript.Errored, m.assembler.Snapshot().State)
	assert.Contains(t, m.toasts.View(200), "model overloaded")
}

func TestSubmitAsksForPatientDetails(t *testing.T) {
	api := newFakeAPI()
	api.stream = tokenStream("Thanks")
	m := loaded(t, api)
	m = typeText(t, m, "knee pain")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	for _, field := range []struct {
		mode  promptMode
		value string
	}{
		{promptPatient, "Ann Lee"},
		{promptDOB, "1980-04-02"},
		{promptPhone, ""},
		{promptEmail, "ann@example.com"},
	} {
		require.Equal(t, field.mode, m.promptMode)
		require.Empty(t, api.submits, "submitted before %s", field.mode.label())
		m = typeText(t, m, field.value)
		m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	}

	require.Len(t, api.submits, 1)
	assert.Equal(t, "Ann Lee", api.submits[0].PatientName)
	assert.Equal(t, "1980-04-02", api.submits[0].PatientDOB)
	assert.Empty(t, api.submits[0].Phone)
	assert.Equal(t, "ann@example.com", api.submits[0].Email)
	assert.Len(t, api.submits[0].Transcript, 3)
	assert.Equal(t, "agent", api.submits[0].Transcript[2].Role)

	// Reset to the greeting after the submit.
	assert.Len(t, m.assembler.Snapshot().Messages, 1)
	assert.False(t, m.submitting)
}

func TestEscDuringPatientDetailsCancelsSubmit(t *testing.T) {
	api := newFakeAPI()
	api.stream = tokenStream("Thanks")
	m := loaded(t, api)
	m = typeText(t, m, "knee pain")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	m = typeText(t, m, "Ann Lee")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, promptDOB, m.promptMode)
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	assert.Equal(t, promptNone, m.promptMode)
	assert.Empty(t, api.submits)
	assert.Equal(t, client.SubmitRequest{}, m.submission)
	assert.Len(t, m.assembler.Snapshot().Messages, 3)
}

func TestSubmitWithoutPatientMessageWarns(t *testing.T) {
	m := loaded(t, newFakeAPI())
	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Equal(t, promptNone, m.promptMode)
	assert.Contains(t, m.toasts.View(200), "Nothing to submit yet.")
}

// -- Palette ------------------------------------------------------------------

func TestPaletteCommands(t *testing.T) {
	m := loaded(t, newFakeAPI())
	m = send(t, m, model.PaletteExecuteMsg{Command: "tab.notes"})
	assert.Equal(t, TabNotes, m.tab)

	names := map[string]bool{}
	for _, it := range m.paletteItems() {
		names[it.Name] = true
	}
	for _, want := range []string{"intake.new", "inbox.refresh", "notes.clear", "theme.dark", "quit"} {
		assert.True(t, names[want], want)
	}

	_, cmd := step(t, m, model.PaletteExecuteMsg{Command: "quit"})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestPendingCountInStatus(t *testing.T) {
	m := loaded(t, newFakeAPI())
	m = onTab(t, m, TabInbox)
	m, _ = press(t, m, keyRunes("r"))
	assert.Equal(t, 1, m.cases.PendingCount()+m.templates.PendingCount())
	assert.Contains(t, m.status.View(), "1 pending")
}
