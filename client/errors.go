package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status    int
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("API %d", e.Status)
}

// Unauthorized reports whether the session is missing or expired.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// ServerMessage is the human-readable message the server attached, if any.
func (e *APIError) ServerMessage() string {
	return e.Message
}

// ResponseError is a 2xx response whose body is not what the call expects:
// undecodable JSON or a missing record. The request reached the server, so
// it is reported as an application failure, not a network one.
type ResponseError struct {
	Reason string
	Err    error
}

func (e *ResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unexpected response: %s: %v", e.Reason, e.Err)
	}
	return "unexpected response: " + e.Reason
}

func (e *ResponseError) Unwrap() error { return e.Err }

// ServerMessage is always empty; callers fall back to their own text.
func (e *ResponseError) ServerMessage() string { return "" }

// IsUnauthorized reports whether err wraps a 401 from the backend.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Unauthorized()
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details"`
}

func (c *Client) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode}
	if resp.Request != nil {
		apiErr.RequestID = resp.Request.Header.Get(headerRequestID)
	}
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		switch {
		case eb.Error != "":
			apiErr.Message = eb.Error
		case eb.Message != "":
			apiErr.Message = eb.Message
		}
	}
	apiErr.Message = strings.TrimSpace(apiErr.Message)
	return apiErr
}
