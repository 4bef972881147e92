package app

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vaultx/vaultx-term/client"
	"github.com/vaultx/vaultx-term/model"
	"github.com/vaultx/vaultx-term/msg"
	"github.com/vaultx/vaultx-term/notes"
	"github.com/vaultx/vaultx-term/optimistic"
)

const (
	pickCreateType = "create-type"
	pickField      = "field"
	confirmDelete  = "delete"

	opMove    = "move"
	opApprove = "approve"
	opRename  = "rename"
	opTags    = "tags"
	opContent = "content"
)

func (m Model) handleNotesKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(k, m.keys.MoveLeft):
		return m.moveCard(-1)
	case key.Matches(k, m.keys.MoveRight):
		return m.moveCard(1)
	case key.Matches(k, m.keys.Up):
		m.board.MoveRow(-1)
	case key.Matches(k, m.keys.Down):
		m.board.MoveRow(1)
	case key.Matches(k, m.keys.Left):
		m.board.MoveColumn(-1)
	case key.Matches(k, m.keys.Right):
		m.board.MoveColumn(1)

	case key.Matches(k, m.keys.Approve):
		return m.toggleApproval()
	case key.Matches(k, m.keys.Rename):
		if t, ok := m.board.Selected(); ok {
			return m.openPrompt(promptRename, t.Title, nil)
		}
	case key.Matches(k, m.keys.EditTags):
		if t, ok := m.board.Selected(); ok {
			return m.openPrompt(promptEditTags, strings.Join(t.Tags, ", "), nil)
		}
	case key.Matches(k, m.keys.EditField):
		if t, ok := m.board.Selected(); ok {
			fields := notes.Fields(t.Type)
			items := make([]model.PickerItem, len(fields))
			for i, f := range fields {
				items[i] = model.PickerItem{Value: f.Key, Label: f.Label, Detail: notes.FieldValue(t.Content, f.Key)}
			}
			m.picker.Open("Edit "+notes.TypeLabel(t.Type)+" field", pickField, items)
		}
	case key.Matches(k, m.keys.Create):
		items := make([]model.PickerItem, len(client.TemplateTypes))
		for i, tt := range client.TemplateTypes {
			items[i] = model.PickerItem{Value: string(tt), Label: notes.TypeLabel(tt)}
		}
		m.picker.Open("New card type", pickCreateType, items)
	case key.Matches(k, m.keys.Duplicate):
		if t, ok := m.board.Selected(); ok {
			return m, m.duplicate(t.ID)
		}
	case key.Matches(k, m.keys.Delete):
		if t, ok := m.board.Selected(); ok {
			m.deleteID = t.ID
			m.confirm.Ask(confirmDelete, "Delete **"+t.Title+"**? This cannot be undone.")
		}

	case key.Matches(k, m.keys.Search):
		return m.openPrompt(promptSearch, m.board.Filters().Query, nil)
	case key.Matches(k, m.keys.TypeFilter):
		f := m.board.Filters()
		f.Type = notes.NextType(f.Type)
		return m.applyFilters(f, false)
	case key.Matches(k, m.keys.TagFilter):
		return m.openPrompt(promptTag, m.board.Filters().Tag, m.board.Tags())
	case key.Matches(k, m.keys.ClearAll):
		return m.applyFilters(notes.Filters{}, false)
	case key.Matches(k, m.keys.Refresh):
		return m, m.loadBoard()
	}
	return m, nil
}

// -- Prompt --

func (m Model) openPrompt(mode promptMode, value string, completions []string) (Model, tea.Cmd) {
	m.promptMode = mode
	m.prompt.Reset()
	m.prompt.SetLabel(mode.label())
	m.prompt.SetCompletions(completions)
	m.prompt.SetValue(value)
	m.composer.Blur()
	return m, m.prompt.Focus()
}

func (m Model) closePrompt() (Model, tea.Cmd) {
	m.promptMode = promptNone
	m.prompt.Blur()
	m.prompt.Reset()
	if m.tab == TabIntake {
		return m, m.composer.Focus()
	}
	return m, nil
}

func (m Model) handlePromptKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case key.Matches(k, m.keys.Escape):
		m, cmd = m.closePrompt()
		m.createType = ""
		m.editField = ""
		m.submission = client.SubmitRequest{}
		return m, cmd

	case key.Matches(k, m.keys.Enter):
		mode, value := m.promptMode, strings.TrimSpace(m.prompt.Value())
		m, cmd = m.closePrompt()
		var next tea.Cmd
		switch mode {
		case promptSearch:
			f := m.board.Filters()
			f.Query = value
			m, next = m.applyFilters(f, false)
		case promptTag:
			f := m.board.Filters()
			f.Tag = strings.TrimPrefix(value, "#")
			m, next = m.applyFilters(f, false)
		case promptRename:
			m, next = m.rename(value)
		case promptCreate:
			m, next = m.create(value)
		case promptPatient, promptDOB, promptPhone, promptEmail:
			m, next = m.collectPatient(mode, value)
		case promptEditTags:
			m, next = m.editTags(value)
		case promptField:
			m, next = m.editContent(value)
		}
		return m, tea.Batch(cmd, next)
	}

	before := m.prompt.Value()
	updated, cmd := m.prompt.Update(k)
	if inp, ok := updated.(model.InputModel); ok {
		m.prompt = inp
	}
	if m.promptMode == promptSearch && m.prompt.Value() != before {
		f := m.board.Filters()
		f.Query = m.prompt.Value()
		next, debounce := m.applyFilters(f, true)
		return next, tea.Batch(cmd, debounce)
	}
	return m, cmd
}

// applyFilters filters the visible cards at once and refetches from the
// server, after searchDebounce when debounced.
func (m Model) applyFilters(f notes.Filters, debounced bool) (Model, tea.Cmd) {
	m.board.SetFilters(f)
	m.searchSeq++
	seq := m.searchSeq
	if debounced {
		return m, tea.Tick(searchDebounce, func(time.Time) tea.Msg { return msg.SearchDue{Seq: seq} })
	}
	return m, m.fetchTemplates(seq)
}

// -- Loading --

// loadBoard fetches columns and cards together.
func (m Model) loadBoard() tea.Cmd {
	api, ctx, q := m.api, m.ctx, m.board.Filters().ServerQuery()
	return func() tea.Msg {
		var (
			cols  []client.Column
			items []client.Template
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			cols, err = api.ListColumns(gctx)
			return err
		})
		g.Go(func() error {
			var err error
			items, err = api.ListTemplates(gctx, q)
			return err
		})
		if err := g.Wait(); err != nil {
			return msg.BoardLoaded{Err: err}
		}
		return msg.BoardLoaded{Columns: cols, Items: items}
	}
}

func (m Model) handleBoardLoaded(v msg.BoardLoaded) (tea.Model, tea.Cmd) {
	if v.Err != nil {
		return m.fail("Notes unavailable", v.Err), nil
	}
	m.board.SetColumns(v.Columns)
	m.templates.Replace(v.Items)
	m.syncBoard()
	return m, nil
}

func (m Model) fetchTemplates(seq int) tea.Cmd {
	api, ctx, q := m.api, m.ctx, m.board.Filters().ServerQuery()
	return func() tea.Msg {
		items, err := api.ListTemplates(ctx, q)
		return msg.TemplatesLoaded{Seq: seq, Items: items, Err: err}
	}
}

func (m Model) handleTemplatesLoaded(v msg.TemplatesLoaded) (tea.Model, tea.Cmd) {
	if v.Seq != m.searchSeq {
		return m, nil
	}
	if v.Err != nil {
		return m.fail("Search failed", v.Err), nil
	}
	m.templates.Replace(v.Items)
	m.syncBoard()
	return m, nil
}

func (m *Model) syncBoard() {
	m.board.SetItems(m.templates.Items(), m.templates.Pending)
	m.refreshStatus()
}

// -- Optimistic edits --

// beginTemplate applies mutate to card id and sends request with the
// optimistic value.
func (m Model) beginTemplate(id, op string, mutate func(client.Template) client.Template,
	request func(client.Template) (client.Template, error)) (Model, tea.Cmd) {
	mut, err := m.templates.Begin(id, mutate)
	switch {
	case errors.Is(err, optimistic.ErrInFlight):
		m.toasts.Add("", "This card is still saving.", model.ToastWarning)
		return m, nil
	case err != nil:
		return m, nil
	}
	m.tplMuts[id] = mut
	m.syncBoard()

	value := mut.Optimistic
	return m, func() tea.Msg {
		record, err := request(value)
		return msg.TemplateSettled{ID: id, Op: op, Record: record, Err: err}
	}
}

func (m Model) moveCard(offset int) (tea.Model, tea.Cmd) {
	t, ok := m.board.Selected()
	if !ok {
		return m, nil
	}
	to, ok := notes.Neighbor(m.board.Columns(), t.ColumnID, offset)
	if !ok {
		return m, nil
	}
	api, ctx := m.api, m.ctx
	return m.beginTemplate(t.ID, opMove,
		func(t client.Template) client.Template { t.ColumnID = to; return t },
		func(v client.Template) (client.Template, error) { return api.MoveTemplate(ctx, v.ID, v.ColumnID) })
}

func (m Model) toggleApproval() (tea.Model, tea.Cmd) {
	t, ok := m.board.Selected()
	if !ok {
		return m, nil
	}
	api, ctx := m.api, m.ctx
	return m.beginTemplate(t.ID, opApprove,
		func(t client.Template) client.Template { t.IsApproved = !t.IsApproved; return t },
		func(v client.Template) (client.Template, error) {
			return api.UpdateTemplate(ctx, v.ID, client.TemplatePatch{IsApproved: &v.IsApproved})
		})
}

func (m Model) rename(title string) (Model, tea.Cmd) {
	t, ok := m.board.Selected()
	if !ok || title == "" || title == t.Title {
		return m, nil
	}
	api, ctx := m.api, m.ctx
	return m.beginTemplate(t.ID, opRename,
		func(t client.Template) client.Template { t.Title = title; return t },
		func(v client.Template) (client.Template, error) {
			return api.UpdateTemplate(ctx, v.ID, client.TemplatePatch{Title: &v.Title})
		})
}

// editTags replaces the selected card's tags with the comma-separated list.
func (m Model) editTags(value string) (Model, tea.Cmd) {
	t, ok := m.board.Selected()
	if !ok {
		return m, nil
	}
	tags := notes.ParseTags(value)
	if slices.Equal(tags, t.Tags) {
		return m, nil
	}
	api, ctx := m.api, m.ctx
	return m.beginTemplate(t.ID, opTags,
		func(t client.Template) client.Template { t.Tags = tags; return t },
		func(v client.Template) (client.Template, error) {
			return api.UpdateTemplate(ctx, v.ID, client.TemplatePatch{Tags: &v.Tags})
		})
}

// editContent sets the content field picked earlier. The whole content
// block is sent so the server never merges a partial union.
func (m Model) editContent(value string) (Model, tea.Cmd) {
	field := m.editField
	m.editField = ""
	t, ok := m.board.Selected()
	if !ok || field == "" || notes.FieldValue(t.Content, field) == value {
		return m, nil
	}
	content, err := notes.SetField(t.Type, t.Content, field, value)
	if err != nil {
		return m.fail("Update failed", err), nil
	}
	api, ctx := m.api, m.ctx
	return m.beginTemplate(t.ID, opContent,
		func(t client.Template) client.Template { t.Content = content; return t },
		func(v client.Template) (client.Template, error) {
			return api.UpdateTemplate(ctx, v.ID, client.TemplatePatch{Content: &v.Content})
		})
}

var templateOps = map[string]optimistic.Op{
	opMove:    {Title: "Move failed", Fallback: "Could not move the card."},
	opApprove: {Title: "Update failed", Fallback: "Could not change approval."},
	opRename:  {Title: "Rename failed", Fallback: "Could not rename the card."},
	opTags:    {Title: "Update failed", Fallback: "Could not update the tags."},
	opContent: {Title: "Update failed", Fallback: "Could not update the card."},
}

func (m Model) handleTemplateSettled(v msg.TemplateSettled) (tea.Model, tea.Cmd) {
	mut, ok := m.tplMuts[v.ID]
	if !ok {
		return m, nil
	}
	delete(m.tplMuts, v.ID)
	out := m.templates.Settle(mut, v.Record, v.Err, templateOps[v.Op], m.hooks())
	m.log.Debug("card mutation settled", zap.String("template_id", v.ID), zap.String("op", v.Op), zap.Stringer("result", out.Result))
	if m.state == StateSignedOut {
		return m, nil
	}
	m.syncBoard()
	return m, nil
}

// -- Create, duplicate, delete --

func (m Model) create(title string) (Model, tea.Cmd) {
	tt := m.createType
	m.createType = ""
	if title == "" || tt == "" {
		return m, nil
	}
	content, err := client.EmptyContent(tt)
	if err != nil {
		return m.fail("Create failed", err), nil
	}
	col := notes.DefaultColumns[0].ID
	if c, ok := m.board.CurrentColumn(); ok {
		col = c.ID
	}
	nt := client.NewTemplate{ColumnID: col, Type: tt, Title: title, Tags: []string{}, Content: content}
	api, ctx := m.api, m.ctx
	return m, func() tea.Msg {
		item, err := api.CreateTemplate(ctx, nt)
		return msg.TemplateAdded{Item: item, Op: "create", Err: err}
	}
}

func (m Model) duplicate(id string) tea.Cmd {
	api, ctx := m.api, m.ctx
	return func() tea.Msg {
		item, err := api.DuplicateTemplate(ctx, id)
		return msg.TemplateAdded{Item: item, Op: "duplicate", Err: err}
	}
}

func (m Model) handleTemplateAdded(v msg.TemplateAdded) (tea.Model, tea.Cmd) {
	if v.Err != nil {
		title := "Create failed"
		if v.Op == "duplicate" {
			title = "Duplicate failed"
		}
		return m.fail(title, v.Err), nil
	}
	m.templates.Prepend(v.Item)
	m.syncBoard()
	return m, nil
}

func (m Model) deleteCard(id string) tea.Cmd {
	api, ctx := m.api, m.ctx
	return func() tea.Msg {
		return msg.TemplateDeleted{ID: id, Err: api.DeleteTemplate(ctx, id)}
	}
}

func (m Model) handleTemplateDeleted(v msg.TemplateDeleted) (tea.Model, tea.Cmd) {
	if v.Err != nil {
		return m.fail("Delete failed", v.Err), nil
	}
	m.templates.Remove(v.ID)
	m.syncBoard()
	m.toasts.Add("", "Card deleted.", model.ToastInfo)
	return m, nil
}

// -- Overlay answers --

func (m Model) handlePick(v model.PickerChoice) (tea.Model, tea.Cmd) {
	switch v.Purpose {
	case pickCreateType:
		m.createType = client.TemplateType(v.Value)
		return m.openPrompt(promptCreate, "", nil)
	case pickField:
		t, ok := m.board.Selected()
		if !ok {
			return m, nil
		}
		f, ok := notes.LookupField(t.Type, v.Value)
		if !ok {
			return m, nil
		}
		m.editField = f.Key
		var cmd tea.Cmd
		m, cmd = m.openPrompt(promptField, notes.FieldValue(t.Content, f.Key), nil)
		m.prompt.SetLabel(f.Label)
		return m, cmd
	case pickDocument:
		if d := m.inbox.Detail(); d != nil {
			return m, m.documentURL(d.ID, v.Value)
		}
	}
	return m, nil
}

func (m Model) handleConfirm(v model.ConfirmDecision) (tea.Model, tea.Cmd) {
	if v.Purpose != confirmDelete {
		return m, nil
	}
	id := m.deleteID
	m.deleteID = ""
	if !v.Confirm || id == "" {
		return m, nil
	}
	return m, m.deleteCard(id)
}
