// Package msg defines the tea.Msg types dispatched within the vaultx TUI.
// It carries data only; the app package decides what each message does.
package msg

import (
	"github.com/vaultx/vaultx-term/client"
	"github.com/vaultx/vaultx-term/transcript"
)

// -- Lifecycle --

// Tick drives toast expiry.
type Tick struct{}

// SignedOut is sent once any call is refused with 401.
type SignedOut struct{}

// -- Inbox --

// InboxLoaded carries the inbox page and the dashboard KPIs, fetched together.
type InboxLoaded struct {
	Page      *client.InboxPage
	Dashboard *client.Dashboard
	Err       error
}

// CaseLoaded carries the detail of the selected case.
type CaseLoaded struct {
	ID     string
	Detail *client.CaseDetail
	Err    error
}

// CaseSettled is the answer to a review or close request.
type CaseSettled struct {
	ID     string
	Action string
	Record client.Case
	Err    error
}

// SummaryRegenerated is the answer to a summary rebuild.
type SummaryRegenerated struct {
	ID  string
	Err error
}

// DocumentLinked carries a resolved document download link.
type DocumentLinked struct {
	CaseID string
	DocID  string
	URL    string
	Err    error
}

// -- Notes board --

// BoardLoaded carries columns and cards fetched together.
type BoardLoaded struct {
	Columns []client.Column
	Items   []client.Template
	Err     error
}

// SearchDue fires when the search debounce for Seq has elapsed.
type SearchDue struct {
	Seq int
}

// TemplatesLoaded is a filtered refetch of cards for search Seq.
type TemplatesLoaded struct {
	Seq   int
	Items []client.Template
	Err   error
}

// TemplateSettled is the answer to an optimistic card edit (move, approve, rename).
type TemplateSettled struct {
	ID     string
	Op     string
	Record client.Template
	Err    error
}

// TemplateAdded is a card created or duplicated on the server.
type TemplateAdded struct {
	Item client.Template
	Op   string
	Err  error
}

// TemplateDeleted is the answer to a delete.
type TemplateDeleted struct {
	ID  string
	Err error
}

// -- Intake --

// TurnEvent is one item from the stream of turn TurnID. Closed is set when
// the stream channel was closed without a final event.
type TurnEvent struct {
	TurnID string
	Event  transcript.Event
	Closed bool
}

// IntakeSubmitted is the answer to an intake submission.
type IntakeSubmitted struct {
	SessionID string
	Err       error
}
