// Package inbox holds the doctor inbox rules: which status transitions a
// case allows and how rows are filtered and counted.
package inbox

import (
	"context"
	"strings"

	"github.com/vaultx/vaultx-term/client"
)

// Action is a status transition a doctor can apply to a case.
type Action string

const (
	Review Action = "review"
	Close  Action = "close"
)

// Allowed reports whether a can be applied to a case in status.
// Review is only offered for pending cases; close for anything not closed.
func (a Action) Allowed(status client.CaseStatus) bool {
	switch a {
	case Review:
		return status == client.StatusPending
	case Close:
		return status != client.StatusClosed
	}
	return false
}

// Target is the status a case has after a.
func (a Action) Target() client.CaseStatus {
	if a == Review {
		return client.StatusReviewed
	}
	return client.StatusClosed
}

// Verb is the past-tense label used in confirmations.
func (a Action) Verb() string {
	if a == Review {
		return "reviewed"
	}
	return "closed"
}

// Mutate returns the optimistic form of c after a.
func (a Action) Mutate(c client.Case) client.Case {
	c.Status = a.Target()
	return c
}

// Caser is the part of the API client the inbox actions call.
type Caser interface {
	ReviewCase(ctx context.Context, c client.Case) (client.Case, error)
	CloseCase(ctx context.Context, c client.Case) (client.Case, error)
}

// Request returns the remote call for a, suitable for optimistic.Apply.
func (a Action) Request(api Caser) func(context.Context, client.Case) (client.Case, error) {
	if a == Review {
		return api.ReviewCase
	}
	return api.CloseCase
}

// Counts tallies cases per status.
type Counts struct {
	Total    int
	Pending  int
	Reviewed int
	Closed   int
	RedFlags int // cases with at least one red flag
}

// Count tallies rows.
func Count(rows []client.Case) Counts {
	var c Counts
	for _, r := range rows {
		c.Total++
		switch r.Status {
		case client.StatusPending:
			c.Pending++
		case client.StatusReviewed:
			c.Reviewed++
		case client.StatusClosed:
			c.Closed++
		}
		if r.RedFlagsCount > 0 {
			c.RedFlags++
		}
	}
	return c
}

// Filter keeps rows matching status (empty for any) whose patient name,
// complaint or probable diagnosis contains q, case-insensitively.
func Filter(rows []client.Case, status client.CaseStatus, q string) []client.Case {
	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]client.Case, 0, len(rows))
	for _, r := range rows {
		if status != "" && r.Status != status {
			continue
		}
		if q != "" && !containsAny(q, r.PatientName, r.Complaint, r.ProbableDx) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func containsAny(q string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// StatusLabel is the display form of a status.
func StatusLabel(s client.CaseStatus) string {
	switch s {
	case client.StatusPending:
		return "Pending"
	case client.StatusReviewed:
		return "Reviewed"
	case client.StatusClosed:
		return "Closed"
	}
	if s == "" {
		return "—"
	}
	return string(s)
}
