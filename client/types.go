package client

import (
	"encoding/json"
	"fmt"
)

// CaseStatus is the lifecycle state of an intake case.
type CaseStatus string

const (
	StatusPending  CaseStatus = "pending"
	StatusReviewed CaseStatus = "reviewed"
	StatusClosed   CaseStatus = "closed"
)

// Case is one row of GET /doctor/inbox.
type Case struct {
	ID            string     `json:"id"`
	SubmittedAt   string     `json:"submitted_at"`
	PatientName   string     `json:"patient_name"`
	Status        CaseStatus `json:"status"`
	RedFlagsCount int        `json:"red_flags_count"`
	FilesCount    int        `json:"files_count"`
	PatientPhone  string     `json:"patient_phone,omitempty"`
	UpdatedAt     string     `json:"updated_at,omitempty"`
	Complaint     string     `json:"complaint,omitempty"`
	ProbableDx    string     `json:"probable_dx,omitempty"`
}

// PageMeta is the paging block of list responses.
type PageMeta struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// InboxPage from GET /doctor/inbox.
type InboxPage struct {
	Rows []Case   `json:"rows"`
	Meta PageMeta `json:"meta"`
}

// InboxQuery selects a page of the inbox.
type InboxQuery struct {
	Page     int
	PageSize int
	Sort     string
}

// Patient identifies the person behind an intake.
type Patient struct {
	Name  string `json:"name"`
	DOB   string `json:"dob,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// TranscriptEntry is one stored line of a submitted intake.
type TranscriptEntry struct {
	Role      string `json:"role"` // patient | agent | doctor
	Content   string `json:"content"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Document is a file attached to a case.
type Document struct {
	ID          string `json:"id"`
	FileName    string `json:"file_name"`
	MimeType    string `json:"mime_type"`
	StoragePath string `json:"storage_path,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

type Assessment struct {
	Condition string `json:"condition"`
	Rationale string `json:"rationale,omitempty"`
}

// SOAP is the structured clinical note of a summary.
type SOAP struct {
	Subjective string       `json:"subjective"`
	Objective  string       `json:"objective"`
	Assessment []Assessment `json:"assessment"`
	Plan       []string     `json:"plan"`
}

type Diagnosis struct {
	Condition  string `json:"condition"`
	Likelihood string `json:"likelihood,omitempty"`
	Rationale  string `json:"rationale,omitempty"`
}

type RedFlag struct {
	Flag   string `json:"flag"`
	Reason string `json:"reason,omitempty"`
}

// Summary is the generated clinical summary of a case.
type Summary struct {
	SOAP       *SOAP       `json:"soap"`
	DDx        []Diagnosis `json:"ddx"`
	ICD10Codes []string    `json:"icd10_codes"`
	RedFlags   []RedFlag   `json:"red_flags"`
}

// CaseDetail from GET /doctor/intake/{id}.
type CaseDetail struct {
	ID          string            `json:"id"`
	Status      CaseStatus        `json:"status"`
	SubmittedAt string            `json:"submitted_at"`
	ClosedAt    string            `json:"closed_at,omitempty"`
	Patient     Patient           `json:"patient"`
	Transcript  []TranscriptEntry `json:"transcript"`
	Documents   []Document        `json:"documents"`
	Summary     *Summary          `json:"summary"`
}

// Dashboard from GET /doctor/dashboard. Chart series are passed through raw.
type Dashboard struct {
	KPIs struct {
		TotalCases        int     `json:"totalCases"`
		AvgResolutionTime float64 `json:"avgResolutionTime"`
		PendingCases      int     `json:"pendingCases"`
		AvgAge            float64 `json:"avgAge"`
	} `json:"kpis"`
	Charts json.RawMessage `json:"charts,omitempty"`
}

// Column is one lane of the notes board.
type Column struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// TemplateType discriminates template content.
type TemplateType string

const (
	TypeSOAP      TemplateType = "soap"
	TypeSnippet   TemplateType = "snippet"
	TypePrompt    TemplateType = "prompt"
	TypeChecklist TemplateType = "checklist"
)

// TemplateTypes lists every type in display order.
var TemplateTypes = []TemplateType{TypeSOAP, TypeSnippet, TypePrompt, TypeChecklist}

type SOAPContent struct {
	S string `json:"S"`
	O string `json:"O"`
	A string `json:"A"`
	P string `json:"P"`
}

type SnippetContent struct {
	Section string `json:"section"`
	Text    string `json:"text"`
}

type PromptContent struct {
	System string `json:"system,omitempty"`
	User   string `json:"user"`
}

type ChecklistItem struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

type ChecklistContent struct {
	Items []ChecklistItem `json:"items"`
}

// TemplateContent is a union keyed by the type name; exactly one field is set.
type TemplateContent struct {
	SOAP      *SOAPContent      `json:"soap,omitempty"`
	Snippet   *SnippetContent   `json:"snippet,omitempty"`
	Prompt    *PromptContent    `json:"prompt,omitempty"`
	Checklist *ChecklistContent `json:"checklist,omitempty"`
}

// Kind reports which variant is populated, or "" when none is.
func (c TemplateContent) Kind() TemplateType {
	switch {
	case c.SOAP != nil:
		return TypeSOAP
	case c.Snippet != nil:
		return TypeSnippet
	case c.Prompt != nil:
		return TypePrompt
	case c.Checklist != nil:
		return TypeChecklist
	}
	return ""
}

// EmptyContent returns a blank content block for t.
func EmptyContent(t TemplateType) (TemplateContent, error) {
	switch t {
	case TypeSOAP:
		return TemplateContent{SOAP: &SOAPContent{}}, nil
	case TypeSnippet:
		return TemplateContent{Snippet: &SnippetContent{}}, nil
	case TypePrompt:
		return TemplateContent{Prompt: &PromptContent{}}, nil
	case TypeChecklist:
		return TemplateContent{Checklist: &ChecklistContent{Items: []ChecklistItem{}}}, nil
	}
	return TemplateContent{}, fmt.Errorf("unknown template type %q", t)
}

// Template is one card of the notes board.
type Template struct {
	ID         string          `json:"id"`
	ColumnID   string          `json:"column_id"`
	Type       TemplateType    `json:"type"`
	Title      string          `json:"title"`
	Tags       []string        `json:"tags"`
	Content    TemplateContent `json:"content"`
	IsApproved bool            `json:"is_approved"`
	UpdatedAt  string          `json:"updated_at"`
	CreatedAt  string          `json:"created_at"`
}

// TemplateQuery filters GET /templates. Empty fields are omitted.
type TemplateQuery struct {
	Q    string
	Type TemplateType
	Tag  string
}

// NewTemplate is the body of POST /templates.
type NewTemplate struct {
	ColumnID string          `json:"column_id"`
	Type     TemplateType    `json:"type"`
	Title    string          `json:"title"`
	Tags     []string        `json:"tags"`
	Content  TemplateContent `json:"content"`
}

// TemplatePatch is the body of PATCH /templates/{id}. Nil fields are left
// unchanged; a non-nil empty Tags clears the tags. Column changes go
// through MoveTemplate.
type TemplatePatch struct {
	Title      *string          `json:"title,omitempty"`
	Tags       *[]string        `json:"tags,omitempty"`
	Content    *TemplateContent `json:"content,omitempty"`
	IsApproved *bool            `json:"is_approved,omitempty"`
}

// ChatMessage is one entry of the agent-turn history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TurnRequest for POST /intake/agent-turn.
type TurnRequest struct {
	History     []ChatMessage `json:"history"`
	UserMessage string        `json:"user_message"`
}

// SubmitRequest for POST /intake/submit.
type SubmitRequest struct {
	Transcript  []ChatMessage `json:"transcript"`
	Summary     Summary       `json:"summary"`
	PatientName string        `json:"patient_name,omitempty"`
	PatientDOB  string        `json:"patient_dob,omitempty"`
	Phone       string        `json:"patient_phone,omitempty"`
	Email       string        `json:"patient_email,omitempty"`
}

// SubmitResponse from POST /intake/submit.
type SubmitResponse struct {
	OK        bool   `json:"ok"`
	SessionID string `json:"sessionId"`
}
