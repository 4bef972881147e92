package app

// State represents the current application state.
type State int

const (
	StateReady     State = iota // Normal operation
	StateSignedOut              // A call was refused with 401; only quitting is possible
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateSignedOut:
		return "signed_out"
	default:
		return "unknown"
	}
}

// Tab is one of the three screens.
type Tab int

const (
	TabIntake Tab = iota
	TabInbox
	TabNotes
)

var tabNames = []string{"Intake", "Inbox", "Notes"}

func (t Tab) String() string {
	if int(t) < len(tabNames) {
		return tabNames[t]
	}
	return "unknown"
}

// next returns the tab after t, wrapping around.
func (t Tab) next() Tab {
	return (t + 1) % Tab(len(tabNames))
}

// promptMode is what the notes line editor is collecting.
type promptMode int

const (
	promptNone promptMode = iota
	promptSearch
	promptRename
	promptTag
	promptCreate
	promptPatient
	promptDOB
	promptPhone
	promptEmail
	promptEditTags
	promptField
)

func (p promptMode) label() string {
	switch p {
	case promptSearch:
		return "Search"
	case promptRename:
		return "Rename"
	case promptTag:
		return "Tag"
	case promptCreate:
		return "Title"
	case promptPatient:
		return "Patient name"
	case promptDOB:
		return "Date of birth"
	case promptPhone:
		return "Phone"
	case promptEmail:
		return "Email"
	case promptEditTags:
		return "Tags"
	case promptField:
		return "Field"
	default:
		return ""
	}
}

// intake reports whether p collects patient details for a submission.
func (p promptMode) intake() bool {
	return p == promptPatient || p == promptDOB || p == promptPhone || p == promptEmail
}

// nextPatientPrompt is the detail asked for after p; promptNone ends the
// sequence.
func (p promptMode) nextPatientPrompt() promptMode {
	switch p {
	case promptPatient:
		return promptDOB
	case promptDOB:
		return promptPhone
	case promptPhone:
		return promptEmail
	}
	return promptNone
}
