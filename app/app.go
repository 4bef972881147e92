// Package app is the root bubbletea model of the vaultx terminal client.
package app

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/vaultx/vaultx-term/client"
	"github.com/vaultx/vaultx-term/model"
	"github.com/vaultx/vaultx-term/msg"
	"github.com/vaultx/vaultx-term/optimistic"
	"github.com/vaultx/vaultx-term/style"
	"github.com/vaultx/vaultx-term/tokens"
	"github.com/vaultx/vaultx-term/transcript"
)

// API is the part of the backend client the app calls. *client.Client
// implements it.
type API interface {
	ListInbox(ctx context.Context, q client.InboxQuery) (*client.InboxPage, error)
	Dashboard(ctx context.Context) (*client.Dashboard, error)
	GetCase(ctx context.Context, id string) (*client.CaseDetail, error)
	ReviewCase(ctx context.Context, c client.Case) (client.Case, error)
	CloseCase(ctx context.Context, c client.Case) (client.Case, error)
	RegenerateSummary(ctx context.Context, id string) error
	DocumentURL(ctx context.Context, caseID, docID string) (string, error)

	ListColumns(ctx context.Context) ([]client.Column, error)
	ListTemplates(ctx context.Context, q client.TemplateQuery) ([]client.Template, error)
	CreateTemplate(ctx context.Context, t client.NewTemplate) (client.Template, error)
	UpdateTemplate(ctx context.Context, id string, patch client.TemplatePatch) (client.Template, error)
	MoveTemplate(ctx context.Context, id, toColumnID string) (client.Template, error)
	DuplicateTemplate(ctx context.Context, id string) (client.Template, error)
	DeleteTemplate(ctx context.Context, id string) error

	StreamTurn(ctx context.Context, req client.TurnRequest, fn client.FrameFunc) error
	SubmitIntake(ctx context.Context, req client.SubmitRequest) (*client.SubmitResponse, error)
}

// Options configure a Model.
type Options struct {
	Version       string
	BackendURL    string
	HistoryBudget int            // tokens; 0 sends the whole history
	Counter       tokens.Counter // nil uses the heuristic
	Log           *zap.Logger
}

const searchDebounce = 300 * time.Millisecond

// Model is the root bubbletea model.
type Model struct {
	api  API
	ctx  context.Context
	log  *zap.Logger
	opts Options
	keys KeyMap

	state  State
	tab    Tab
	width  int
	height int

	banner   model.BannerModel
	status   model.StatusModel
	toasts   model.ToastsModel
	palette  model.PaletteModel
	picker   model.PickerModel
	confirm  model.ConfirmModel
	activity model.ActivityModel

	// Intake
	chat       model.ChatModel
	composer   model.InputModel
	assembler  *transcript.Assembler
	turnCancel context.CancelFunc
	submitting bool
	submission client.SubmitRequest // patient details collected before submit

	// Inbox
	inbox    model.InboxModel
	cases    *optimistic.Store[client.Case]
	caseMuts map[string]*optimistic.Mutation[client.Case]

	// Notes
	board      model.BoardModel
	templates  *optimistic.Store[client.Template]
	tplMuts    map[string]*optimistic.Mutation[client.Template]
	prompt     model.InputModel
	promptMode promptMode
	searchSeq  int
	createType client.TemplateType
	editField  string
	deleteID   string
}

// New builds the root model. ctx bounds every request the model makes.
func New(ctx context.Context, api API, opts Options) Model {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Counter == nil {
		opts.Counter = tokens.Heuristic{}
	}
	a := transcript.New(transcript.Greeting)
	a.SetHistoryBudget(opts.HistoryBudget, opts.Counter)

	m := Model{
		api:      api,
		ctx:      ctx,
		log:      opts.Log,
		opts:     opts,
		keys:     DefaultKeyMap(),
		width:    80,
		height:   24,
		banner:   model.NewBanner(opts.Version, tabNames...),
		status:   model.NewStatus(opts.BackendURL),
		toasts:   model.NewToasts(),
		palette:  model.NewPalette(),
		picker:   model.NewPicker(),
		confirm:  model.NewConfirm(),
		activity: model.NewActivity(),

		chat:      model.NewChat(80, 16),
		composer:  model.NewInput("Describe your symptoms…"),
		assembler: a,

		inbox:    model.NewInbox(),
		cases:    optimistic.NewStore(caseKey, nil),
		caseMuts: map[string]*optimistic.Mutation[client.Case]{},

		board:     model.NewBoard(),
		templates: optimistic.NewStore(templateKey, nil),
		tplMuts:   map[string]*optimistic.Mutation[client.Template]{},
		prompt:    model.NewInput(""),
	}
	m.composer.Focus()
	m.chat.SetSnapshot(a.Snapshot())
	m.refreshStatus()
	return m
}

func caseKey(c client.Case) string         { return c.ID }
func templateKey(t client.Template) string { return t.ID }

// Init loads the inbox and the board and starts the toast clock.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadInbox(), m.loadBoard(), tickCmd(), tea.WindowSize())
}

// Update routes messages to the tab handlers.
func (m Model) Update(rawMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := rawMsg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = v.Width, v.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(v)

	case msg.Tick:
		m.toasts.Tick()
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.activity, cmd = m.activity.Update(v)
		return m, cmd

	case msg.SignedOut:
		return m.signOut(), nil

	case model.PaletteExecuteMsg:
		return m.runCommand(v.Command)
	case model.PaletteDismissMsg:
		return m, nil
	case model.PickerChoice:
		return m.handlePick(v)
	case model.PickerCancel:
		m.createType = ""
		m.editField = ""
		return m, nil
	case model.ConfirmDecision:
		return m.handleConfirm(v)

	// Intake
	case turnEvent:
		return m.applyTurnEvent(v.TurnEvent, v.events)
	case msg.TurnEvent:
		return m.handleTurnEvent(v)
	case msg.IntakeSubmitted:
		return m.handleSubmitted(v)

	// Inbox
	case msg.InboxLoaded:
		return m.handleInboxLoaded(v)
	case msg.CaseLoaded:
		return m.handleCaseLoaded(v)
	case msg.CaseSettled:
		return m.handleCaseSettled(v)
	case msg.SummaryRegenerated:
		return m.handleRegenerated(v)
	case msg.DocumentLinked:
		return m.handleDocumentLinked(v)

	// Notes
	case msg.BoardLoaded:
		return m.handleBoardLoaded(v)
	case msg.SearchDue:
		if v.Seq != m.searchSeq {
			return m, nil
		}
		return m, m.fetchTemplates(v.Seq)
	case msg.TemplatesLoaded:
		return m.handleTemplatesLoaded(v)
	case msg.TemplateSettled:
		return m.handleTemplateSettled(v)
	case msg.TemplateAdded:
		return m.handleTemplateAdded(v)
	case msg.TemplateDeleted:
		return m.handleTemplateDeleted(v)
	}
	return m, nil
}

// View renders the active tab between the banner and the status line.
func (m Model) View() string {
	if m.state == StateSignedOut {
		return m.signedOutView()
	}
	if m.palette.IsActive() {
		return m.palette.View()
	}

	sections := []string{m.banner.View()}
	switch m.tab {
	case TabIntake:
		sections = append(sections, m.chat.View())
		if m.activity.Active() {
			sections = append(sections, m.activity.View())
		}
		if m.promptMode.intake() {
			sections = append(sections, m.prompt.View())
		} else {
			sections = append(sections, m.composer.View())
		}
	case TabInbox:
		sections = append(sections, m.inbox.View())
	case TabNotes:
		sections = append(sections, m.board.View())
		if m.promptMode != promptNone {
			sections = append(sections, m.prompt.View())
		}
	}
	if m.picker.IsActive() {
		sections = append(sections, m.picker.View())
	}
	if m.confirm.IsActive() {
		sections = append(sections, m.confirm.View())
	}
	if m.toasts.HasToasts() {
		sections = append(sections, m.toasts.View(m.width))
	}
	sections = append(sections, m.status.View())
	return strings.Join(sections, "\n")
}

func (m Model) signedOutView() string {
	body := style.Title.Render("Signed out") + "\n\n" +
		"Your session has expired or was rejected by the server.\n" +
		"Sign in again with:\n\n" +
		style.Bold.Render("  vaultx auth import --cookie token=<value>") + "\n\n" +
		style.Hint.Render("Press q or ctrl+c to quit.")
	return style.SignedOut.Render(body)
}

// layout sizes the sub-models to the terminal.
func (m *Model) layout() {
	w, h := m.width, m.height
	body := h - 4 // banner, input, status, spacing
	if m.toasts.HasToasts() {
		body -= m.toasts.Len()
	}
	if body < 5 {
		body = 5
	}
	chatH := body
	if m.activity.Active() {
		chatH--
	}
	m.chat.SetSize(w, chatH)
	m.composer.SetWidth(w - 4)
	m.prompt.SetWidth(w - 20)
	m.inbox.SetSize(w, body)
	m.board.SetSize(w, body)
	m.picker.SetWidth(w - 4)
	m.confirm.SetWidth(w - 4)
}

func (m Model) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.state == StateSignedOut {
		if key.Matches(k, m.keys.Quit) || k.String() == "q" {
			return m, tea.Quit
		}
		return m, nil
	}
	if key.Matches(k, m.keys.Quit) {
		m.abortTurn()
		return m, tea.Quit
	}

	// Overlays take every key while open.
	if m.palette.IsActive() {
		var cmd tea.Cmd
		m.palette, cmd = m.palette.Update(k)
		return m, cmd
	}
	if m.picker.IsActive() {
		updated, cmd := m.picker.Update(k)
		if p, ok := updated.(model.PickerModel); ok {
			m.picker = p
		}
		return m, cmd
	}
	if m.confirm.IsActive() {
		updated, cmd := m.confirm.Update(k)
		if c, ok := updated.(model.ConfirmModel); ok {
			m.confirm = c
		}
		return m, cmd
	}
	if m.promptMode != promptNone {
		return m.handlePromptKey(k)
	}

	switch {
	case key.Matches(k, m.keys.Palette):
		return m, m.palette.Open(m.paletteItems(), m.width, m.height)
	case key.Matches(k, m.keys.NextTab):
		return m.switchTab(m.tab.next())
	case key.Matches(k, m.keys.Intake):
		return m.switchTab(TabIntake)
	case key.Matches(k, m.keys.Inbox):
		return m.switchTab(TabInbox)
	case key.Matches(k, m.keys.Notes):
		return m.switchTab(TabNotes)
	}

	switch m.tab {
	case TabIntake:
		return m.handleIntakeKey(k)
	case TabInbox:
		return m.handleInboxKey(k)
	case TabNotes:
		return m.handleNotesKey(k)
	}
	return m, nil
}

func (m Model) switchTab(t Tab) (tea.Model, tea.Cmd) {
	m.tab = t
	m.banner.SetActive(int(t))
	m.refreshStatus()
	if t == TabIntake {
		return m, m.composer.Focus()
	}
	m.composer.Blur()
	return m, nil
}

// signOut switches to the signed-out screen. It runs once; later 401s are
// ignored.
func (m Model) signOut() Model {
	if m.state == StateSignedOut {
		return m
	}
	m.log.Info("session rejected, signing out")
	m.abortTurn()
	m.state = StateSignedOut
	return m
}

// hooks returns the side effects of a failed optimistic mutation. They
// write to *m, so m must be the model being returned from Update.
func (m *Model) hooks() optimistic.Hooks {
	return optimistic.Hooks{
		Notify: func(title, message string) {
			m.toasts.Add(title, message, model.ToastError)
		},
		Unauthorized: func() {
			*m = m.signOut()
		},
	}
}

// fail surfaces a non-optimistic request error: 401 signs out, anything
// else becomes an error toast titled title.
func (m Model) fail(title string, err error) Model {
	unauthorized, message := optimistic.Classify(err, "Something went wrong.")
	if unauthorized {
		return m.signOut()
	}
	m.log.Warn(title, zap.Error(err))
	m.toasts.Add(title, message, model.ToastError)
	return m
}

func (m *Model) refreshStatus() {
	m.status.SetTurnState(m.assembler.Snapshot().State)
	m.status.SetPending(m.cases.PendingCount() + m.templates.PendingCount())
	m.status.SetHint(m.keys.hints(m.tab))
	if m.opts.HistoryBudget > 0 {
		used := 0
		for _, mm := range m.assembler.Snapshot().Messages {
			used += m.opts.Counter.Count(mm.Content)
		}
		m.status.SetHistory(used, m.opts.HistoryBudget)
	}
	if n := m.cases.PendingCount(); n > 0 {
		m.banner.SetBadge(int(TabInbox), "⟳")
	} else {
		m.banner.SetBadge(int(TabInbox), "")
	}
	if n := m.templates.PendingCount(); n > 0 {
		m.banner.SetBadge(int(TabNotes), "⟳")
	} else {
		m.banner.SetBadge(int(TabNotes), "")
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return msg.Tick{} })
}
