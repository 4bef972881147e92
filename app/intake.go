package app

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/vaultx/vaultx-term/client"
	"github.com/vaultx/vaultx-term/model"
	"github.com/vaultx/vaultx-term/msg"
	"github.com/vaultx/vaultx-term/transcript"
)

func (m Model) handleIntakeKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(k, m.keys.Escape):
		if m.assembler.Snapshot().State.Active() {
			m.abortTurn()
			m.assembler.Cancel()
			return m.afterTurn(), nil
		}
		m.composer.Reset()
		return m, nil

	case key.Matches(k, m.keys.NewIntake):
		return m.newIntake()

	case key.Matches(k, m.keys.Submit):
		return m.beginSubmit()

	case key.Matches(k, m.keys.Send):
		return m.sendTurn(m.composer.Value())

	case key.Matches(k, m.keys.PageUp), key.Matches(k, m.keys.PageDown):
		updated, cmd := m.chat.Update(k)
		if c, ok := updated.(model.ChatModel); ok {
			m.chat = c
		}
		return m, cmd
	}

	updated, cmd := m.composer.Update(k)
	if inp, ok := updated.(model.InputModel); ok {
		m.composer = inp
	}
	return m, cmd
}

// newIntake drops the conversation and starts over from the greeting.
func (m Model) newIntake() (tea.Model, tea.Cmd) {
	m.abortTurn()
	m.assembler.Reset()
	m.composer.Reset()
	m.toasts.Add("", "Started a new intake", model.ToastInfo)
	return m.afterTurn(), nil
}

// sendTurn starts a turn with text and begins draining its stream.
func (m Model) sendTurn(text string) (tea.Model, tea.Cmd) {
	turn, err := m.assembler.Begin(text)
	switch {
	case errors.Is(err, transcript.ErrEmptyMessage):
		return m, nil
	case errors.Is(err, transcript.ErrBusy):
		m.toasts.Add("", "Please wait for the nurse to finish.", model.ToastWarning)
		return m, nil
	case err != nil:
		return m.fail("Send failed", err), nil
	}
	m.composer.Submit(strings.TrimSpace(text))
	m.log.Debug("turn started", zap.String("turn_id", turn.ID), zap.Int("history", len(turn.Request.History)))

	ctx, cancel := context.WithCancel(m.ctx)
	m.turnCancel = cancel
	events := transcript.Pump(ctx, m.api, turn.Request)

	spin := m.activity.Start()
	m.chat.SetSnapshot(m.assembler.Snapshot())
	m.refreshStatus()
	m.layout()
	return m, tea.Batch(waitTurn(turn.ID, events), spin)
}

// waitTurn delivers the next stream event of turnID. The handler re-issues
// it until the turn ends.
func waitTurn(turnID string, events <-chan transcript.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return msg.TurnEvent{TurnID: turnID, Closed: true}
		}
		return turnEvent{TurnEvent: msg.TurnEvent{TurnID: turnID, Event: ev}, events: events}
	}
}

// turnEvent carries the channel so the next wait can be scheduled.
type turnEvent struct {
	msg.TurnEvent
	events <-chan transcript.Event
}

func (m Model) handleTurnEvent(v msg.TurnEvent) (tea.Model, tea.Cmd) {
	return m.applyTurnEvent(v, nil)
}

func (m Model) applyTurnEvent(v msg.TurnEvent, events <-chan transcript.Event) (tea.Model, tea.Cmd) {
	var eff transcript.Effect
	switch {
	case v.Closed:
		eff = m.assembler.Finish(v.TurnID, context.Canceled)
	case v.Event.End:
		eff = m.assembler.Finish(v.TurnID, v.Event.Err)
	default:
		eff = m.assembler.HandleFrame(v.TurnID, v.Event.Frame)
	}

	if eff.Changed {
		snap := m.assembler.Snapshot()
		m.chat.SetSnapshot(snap)
		m.activity.SetReceived(openReplyLen(snap))
	}
	if eff.SignedOut {
		return m.signOut(), nil
	}
	if eff.Notice != nil {
		m.toasts.Add(eff.Notice.Title, eff.Notice.Message, model.ToastError)
	}

	ended := eff.Terminal || v.Closed || v.Event.End || v.TurnID != m.assembler.TurnID()
	if ended {
		if v.TurnID == m.assembler.TurnID() {
			m.abortTurn()
			m = m.afterTurn()
		}
		return m, nil
	}
	m.refreshStatus()
	if events == nil {
		return m, nil
	}
	return m, waitTurn(v.TurnID, events)
}

func openReplyLen(s transcript.Snapshot) int {
	if !s.Open || len(s.Messages) == 0 {
		return 0
	}
	return len([]rune(s.Messages[len(s.Messages)-1].Content))
}

// abortTurn stops the stream of the current turn, if any.
func (m *Model) abortTurn() {
	if m.turnCancel != nil {
		m.turnCancel()
		m.turnCancel = nil
	}
}

// afterTurn refreshes the views once a turn is over.
func (m Model) afterTurn() Model {
	m.activity.Stop()
	m.chat.SetSnapshot(m.assembler.Snapshot())
	m.refreshStatus()
	m.layout()
	return m
}

// beginSubmit asks for the patient details before submitting.
func (m Model) beginSubmit() (tea.Model, tea.Cmd) {
	snap := m.assembler.Snapshot()
	if snap.State.Active() {
		m.toasts.Add("", "Wait for the nurse to finish before submitting.", model.ToastWarning)
		return m, nil
	}
	if !hasPatientMessage(snap) {
		m.toasts.Add("", "Nothing to submit yet.", model.ToastWarning)
		return m, nil
	}
	if m.submitting {
		return m, nil
	}
	m.submission = client.SubmitRequest{}
	return m.openPrompt(promptPatient, "", nil)
}

// collectPatient stores the answer to mode and asks for the next detail,
// submitting after the last one. Blank answers are left out.
func (m Model) collectPatient(mode promptMode, value string) (Model, tea.Cmd) {
	switch mode {
	case promptPatient:
		m.submission.PatientName = value
	case promptDOB:
		m.submission.PatientDOB = value
	case promptPhone:
		m.submission.Phone = value
	case promptEmail:
		m.submission.Email = value
	}
	if next := mode.nextPatientPrompt(); next != promptNone {
		return m.openPrompt(next, "", nil)
	}
	return m.submitIntake()
}

func hasPatientMessage(s transcript.Snapshot) bool {
	for _, mm := range s.Messages {
		if mm.Role == transcript.RolePatient {
			return true
		}
	}
	return false
}

func (m Model) submitIntake() (Model, tea.Cmd) {
	m.submitting = true
	api, ctx := m.api, m.ctx
	req := m.submission
	req.Transcript = m.assembler.Transcript()
	m.submission = client.SubmitRequest{}
	return m, func() tea.Msg {
		resp, err := api.SubmitIntake(ctx, req)
		if err != nil {
			return msg.IntakeSubmitted{Err: err}
		}
		return msg.IntakeSubmitted{SessionID: resp.SessionID}
	}
}

func (m Model) handleSubmitted(v msg.IntakeSubmitted) (tea.Model, tea.Cmd) {
	m.submitting = false
	if v.Err != nil {
		return m.fail("Submit failed", v.Err), nil
	}
	m.log.Info("intake submitted", zap.String("session_id", v.SessionID))
	m.toasts.Add("Submitted", "Intake sent to the care team.", model.ToastInfo)
	m.assembler.Reset()
	m = m.afterTurn()
	return m, m.loadInbox()
}
