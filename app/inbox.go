package app

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vaultx/vaultx-term/client"
	"github.com/vaultx/vaultx-term/inbox"
	"github.com/vaultx/vaultx-term/model"
	"github.com/vaultx/vaultx-term/msg"
	"github.com/vaultx/vaultx-term/optimistic"
)

const pickDocument = "document"

func (m Model) handleInboxKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(k, m.keys.Up):
		m.inbox.Move(-1)
	case key.Matches(k, m.keys.Down):
		m.inbox.Move(1)
	case key.Matches(k, m.keys.Enter):
		if c, ok := m.inbox.Selected(); ok {
			return m, m.loadCase(c.ID)
		}
	case key.Matches(k, m.keys.Review):
		return m.caseAction(inbox.Review)
	case key.Matches(k, m.keys.Close):
		return m.caseAction(inbox.Close)
	case key.Matches(k, m.keys.Regenerate):
		if c, ok := m.inbox.Selected(); ok {
			m.toasts.Add("", "Regenerating summary…", model.ToastInfo)
			return m, m.regenerate(c.ID)
		}
	case key.Matches(k, m.keys.Refresh):
		return m, m.loadInbox()
	case key.Matches(k, m.keys.Documents):
		return m.openDocuments()
	}
	return m, nil
}

// loadInbox fetches the first inbox page and the dashboard together. A
// dashboard failure only drops the KPI line.
func (m Model) loadInbox() tea.Cmd {
	api, ctx, log := m.api, m.ctx, m.log
	return func() tea.Msg {
		var (
			page *client.InboxPage
			dash *client.Dashboard
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			page, err = api.ListInbox(gctx, client.InboxQuery{})
			return err
		})
		g.Go(func() error {
			d, err := api.Dashboard(gctx)
			if err != nil {
				if client.IsUnauthorized(err) {
					return err
				}
				log.Debug("dashboard unavailable", zap.Error(err))
				return nil
			}
			dash = d
			return nil
		})
		if err := g.Wait(); err != nil {
			return msg.InboxLoaded{Err: err}
		}
		return msg.InboxLoaded{Page: page, Dashboard: dash}
	}
}

func (m Model) handleInboxLoaded(v msg.InboxLoaded) (tea.Model, tea.Cmd) {
	if v.Err != nil {
		return m.fail("Inbox unavailable", v.Err), nil
	}
	m.cases.Replace(v.Page.Rows)
	m.inbox.SetDashboard(v.Dashboard)
	m.syncInbox()
	if m.inbox.DetailID() == "" {
		if c, ok := m.inbox.Selected(); ok {
			return m, m.loadCase(c.ID)
		}
	}
	return m, nil
}

// syncInbox pushes the store's rows into the view.
func (m *Model) syncInbox() {
	m.inbox.SetRows(m.cases.Items(), m.cases.Pending)
	m.refreshStatus()
}

func (m Model) loadCase(id string) tea.Cmd {
	api, ctx := m.api, m.ctx
	return func() tea.Msg {
		d, err := api.GetCase(ctx, id)
		return msg.CaseLoaded{ID: id, Detail: d, Err: err}
	}
}

func (m Model) handleCaseLoaded(v msg.CaseLoaded) (tea.Model, tea.Cmd) {
	if v.Err != nil {
		return m.fail("Case unavailable", v.Err), nil
	}
	m.inbox.SetDetail(v.ID, v.Detail)
	return m, nil
}

// caseAction applies a optimistically to the selected case and sends the
// request.
func (m Model) caseAction(a inbox.Action) (tea.Model, tea.Cmd) {
	c, ok := m.inbox.Selected()
	if !ok {
		return m, nil
	}
	if !a.Allowed(c.Status) {
		m.toasts.Add("", fmt.Sprintf("Case is already %s.", inbox.StatusLabel(c.Status)), model.ToastWarning)
		return m, nil
	}
	mut, err := m.cases.Begin(c.ID, a.Mutate)
	switch {
	case errors.Is(err, optimistic.ErrInFlight):
		m.toasts.Add("", "An update for this case is already in progress.", model.ToastWarning)
		return m, nil
	case err != nil:
		return m, nil
	}
	m.caseMuts[c.ID] = mut
	m.syncInbox()

	request := a.Request(m.api)
	ctx, id, action := m.ctx, c.ID, string(a)
	optimisticValue := mut.Optimistic
	return m, func() tea.Msg {
		record, err := request(ctx, optimisticValue)
		return msg.CaseSettled{ID: id, Action: action, Record: record, Err: err}
	}
}

func (m Model) handleCaseSettled(v msg.CaseSettled) (tea.Model, tea.Cmd) {
	mut, ok := m.caseMuts[v.ID]
	if !ok {
		return m, nil
	}
	delete(m.caseMuts, v.ID)

	a := inbox.Action(v.Action)
	op := optimistic.Op{Title: "Action failed", Fallback: fmt.Sprintf("Could not mark the case %s.", a.Verb())}
	out := m.cases.Settle(mut, v.Record, v.Err, op, m.hooks())
	m.log.Debug("case mutation settled", zap.String("case_id", v.ID), zap.String("action", v.Action), zap.Stringer("result", out.Result))
	if m.state == StateSignedOut {
		return m, nil
	}
	m.syncInbox()
	if out.Result != optimistic.Confirmed {
		return m, nil
	}
	m.toasts.Add("", "Case marked "+a.Verb()+".", model.ToastInfo)
	if m.inbox.DetailID() == v.ID {
		return m, m.loadCase(v.ID)
	}
	return m, nil
}

func (m Model) regenerate(id string) tea.Cmd {
	api, ctx := m.api, m.ctx
	return func() tea.Msg {
		return msg.SummaryRegenerated{ID: id, Err: api.RegenerateSummary(ctx, id)}
	}
}

func (m Model) handleRegenerated(v msg.SummaryRegenerated) (tea.Model, tea.Cmd) {
	if v.Err != nil {
		return m.fail("Regenerate failed", v.Err), nil
	}
	m.toasts.Add("", "Summary regenerated.", model.ToastInfo)
	return m, m.loadCase(v.ID)
}

// openDocuments offers the documents of the case shown in the detail pane.
func (m Model) openDocuments() (tea.Model, tea.Cmd) {
	d := m.inbox.Detail()
	if d == nil || len(d.Documents) == 0 {
		m.toasts.Add("", "This case has no documents.", model.ToastInfo)
		return m, nil
	}
	items := make([]model.PickerItem, len(d.Documents))
	for i, doc := range d.Documents {
		items[i] = model.PickerItem{Value: doc.ID, Label: doc.FileName, Detail: doc.MimeType}
	}
	m.picker.Open("Documents", pickDocument, items)
	return m, nil
}

func (m Model) documentURL(caseID, docID string) tea.Cmd {
	api, ctx := m.api, m.ctx
	return func() tea.Msg {
		url, err := api.DocumentURL(ctx, caseID, docID)
		return msg.DocumentLinked{CaseID: caseID, DocID: docID, URL: url, Err: err}
	}
}

func (m Model) handleDocumentLinked(v msg.DocumentLinked) (tea.Model, tea.Cmd) {
	if v.Err != nil {
		return m.fail("Document unavailable", v.Err), nil
	}
	m.log.Info("document link issued", zap.String("case_id", v.CaseID), zap.String("document_id", v.DocID))
	m.toasts.Add("Document", v.URL, model.ToastInfo)
	return m, nil
}
