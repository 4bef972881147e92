package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// SubmitIntake stores a finished intake and returns the new case id.
// Blank patient fields are dropped and the summary placeholders are sent
// as empty lists; the server generates the real summary.
func (c *Client) SubmitIntake(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	req.PatientName = strings.TrimSpace(req.PatientName)
	req.PatientDOB = strings.TrimSpace(req.PatientDOB)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.TrimSpace(req.Email)
	if req.Summary.DDx == nil {
		req.Summary.DDx = []Diagnosis{}
	}
	if req.Summary.ICD10Codes == nil {
		req.Summary.ICD10Codes = []string{}
	}
	if req.Summary.RedFlags == nil {
		req.Summary.RedFlags = []RedFlag{}
	}

	var out SubmitResponse
	if err := c.call(ctx, http.MethodPost, "/intake/submit", req, &out); err != nil {
		return nil, fmt.Errorf("submit intake: %w", err)
	}
	if !out.OK {
		return nil, fmt.Errorf("submit intake: %w", &ResponseError{Reason: "submission not confirmed"})
	}
	return &out, nil
}
