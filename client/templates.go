package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
)

// ListColumns fetches the board lanes ordered by position.
func (c *Client) ListColumns(ctx context.Context) ([]Column, error) {
	var wrapper struct {
		Columns []Column `json:"columns"`
	}
	if err := c.call(ctx, http.MethodGet, "/templates/columns", nil, &wrapper); err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	cols := wrapper.Columns
	if cols == nil {
		cols = []Column{}
	}
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].Position < cols[j].Position })
	return cols, nil
}

// ListTemplates fetches the cards matching q.
func (c *Client) ListTemplates(ctx context.Context, q TemplateQuery) ([]Template, error) {
	v := url.Values{}
	if q.Q != "" {
		v.Set("q", q.Q)
	}
	if q.Type != "" {
		v.Set("type", string(q.Type))
	}
	if q.Tag != "" {
		v.Set("tag", q.Tag)
	}
	path := "/templates"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	var wrapper struct {
		Items []Template `json:"items"`
	}
	if err := c.call(ctx, http.MethodGet, path, nil, &wrapper); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	if wrapper.Items == nil {
		wrapper.Items = []Template{}
	}
	return wrapper.Items, nil
}

func (c *Client) itemCall(ctx context.Context, method, path string, body any) (Template, error) {
	var wrapper struct {
		Item *Template `json:"item"`
	}
	if err := c.call(ctx, method, path, body, &wrapper); err != nil {
		return Template{}, err
	}
	if wrapper.Item == nil {
		return Template{}, &ResponseError{Reason: "no item"}
	}
	return *wrapper.Item, nil
}

// CreateTemplate adds a card and returns it as stored.
func (c *Client) CreateTemplate(ctx context.Context, t NewTemplate) (Template, error) {
	if t.Tags == nil {
		t.Tags = []string{}
	}
	item, err := c.itemCall(ctx, http.MethodPost, "/templates", t)
	if err != nil {
		return Template{}, fmt.Errorf("create template: %w", err)
	}
	return item, nil
}

// UpdateTemplate applies a partial update.
func (c *Client) UpdateTemplate(ctx context.Context, id string, patch TemplatePatch) (Template, error) {
	item, err := c.itemCall(ctx, http.MethodPatch, "/templates/"+url.PathEscape(id), patch)
	if err != nil {
		return Template{}, fmt.Errorf("update template: %w", err)
	}
	return item, nil
}

// MoveTemplate moves a card to another column.
func (c *Client) MoveTemplate(ctx context.Context, id, toColumnID string) (Template, error) {
	body := map[string]string{"to_column_id": toColumnID}
	item, err := c.itemCall(ctx, http.MethodPost, "/templates/"+url.PathEscape(id)+"/move", body)
	if err != nil {
		return Template{}, fmt.Errorf("move template: %w", err)
	}
	return item, nil
}

// DuplicateTemplate copies a card and returns the copy.
func (c *Client) DuplicateTemplate(ctx context.Context, id string) (Template, error) {
	item, err := c.itemCall(ctx, http.MethodPost, "/templates/"+url.PathEscape(id)+"/duplicate", struct{}{})
	if err != nil {
		return Template{}, fmt.Errorf("duplicate template: %w", err)
	}
	return item, nil
}

// DeleteTemplate removes a card.
func (c *Client) DeleteTemplate(ctx context.Context, id string) error {
	if err := c.call(ctx, http.MethodDelete, "/templates/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}
