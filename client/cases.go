package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// ListInbox fetches one page of intake cases. Zero query fields fall back to
// page 1, 50 rows, newest first.
func (c *Client) ListInbox(ctx context.Context, q InboxQuery) (*InboxPage, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = 50
	}
	if q.Sort == "" {
		q.Sort = "-createdAt"
	}
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("pageSize", strconv.Itoa(q.PageSize))
	v.Set("sort", q.Sort)

	var page InboxPage
	if err := c.call(ctx, http.MethodGet, "/doctor/inbox?"+v.Encode(), nil, &page); err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	if page.Rows == nil {
		page.Rows = []Case{}
	}
	return &page, nil
}

// GetCase fetches the full record of one case.
func (c *Client) GetCase(ctx context.Context, id string) (*CaseDetail, error) {
	var wrapper struct {
		Session *CaseDetail `json:"session"`
	}
	if err := c.call(ctx, http.MethodGet, "/doctor/intake/"+url.PathEscape(id), nil, &wrapper); err != nil {
		return nil, fmt.Errorf("get case: %w", err)
	}
	if wrapper.Session == nil {
		return nil, fmt.Errorf("get case: %w", &ResponseError{Reason: "no session"})
	}
	return wrapper.Session, nil
}

// ReviewCase marks a case reviewed and returns the server's record.
func (c *Client) ReviewCase(ctx context.Context, current Case) (Case, error) {
	return c.caseAction(ctx, current, "review")
}

// CloseCase closes a case and returns the server's record.
func (c *Client) CloseCase(ctx context.Context, current Case) (Case, error) {
	return c.caseAction(ctx, current, "close")
}

// caseAction posts a status transition. The backend answers with the updated
// row as {session}, {item} or a bare object; an empty body confirms the
// transition without a record, in which case current is returned as is.
func (c *Client) caseAction(ctx context.Context, current Case, action string) (Case, error) {
	path := fmt.Sprintf("/doctor/intake/%s/%s", url.PathEscape(current.ID), action)
	resp, err := c.postJSON(ctx, path, struct{}{})
	if err != nil {
		return Case{}, fmt.Errorf("%s case: %w", action, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Case{}, fmt.Errorf("%s case: %w", action, c.parseError(resp))
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Case{}, fmt.Errorf("%s case: %w", action, err)
	}
	return mergeCaseRecord(current, raw), nil
}

func mergeCaseRecord(current Case, raw []byte) Case {
	var envelope struct {
		Session json.RawMessage `json:"session"`
		Item    json.RawMessage `json:"item"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &envelope) != nil {
		return current
	}
	body := raw
	switch {
	case len(envelope.Session) > 0 && string(envelope.Session) != "null":
		body = envelope.Session
	case len(envelope.Item) > 0 && string(envelope.Item) != "null":
		body = envelope.Item
	}
	merged := current
	if json.Unmarshal(body, &merged) != nil {
		return current
	}
	if merged.ID == "" {
		merged.ID = current.ID
	}
	return merged
}

// RegenerateSummary asks the backend to rebuild a case summary, including
// OCR text from attached documents.
func (c *Client) RegenerateSummary(ctx context.Context, id string) error {
	path := fmt.Sprintf("/doctor/intake/%s/summary/regenerate", url.PathEscape(id))
	body := map[string]bool{"include_ocr": true}
	if err := c.call(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("regenerate summary: %w", err)
	}
	return nil
}

// DocumentURL resolves a short-lived download link for an attachment.
func (c *Client) DocumentURL(ctx context.Context, caseID, docID string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	path := fmt.Sprintf("/doctor/intake/%s/documents/%s/url", url.PathEscape(caseID), url.PathEscape(docID))
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", fmt.Errorf("document url: %w", err)
	}
	return out.URL, nil
}

// Dashboard fetches the doctor KPI block.
func (c *Client) Dashboard(ctx context.Context) (*Dashboard, error) {
	var d Dashboard
	if err := c.call(ctx, http.MethodGet, "/doctor/dashboard", nil, &d); err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	return &d, nil
}
