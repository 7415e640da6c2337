package notion

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrMissingToken is returned by NewClient when no integration token is given.
var ErrMissingToken = errors.New("notion integration token is required")

// APIError is an error answer from the Notion API.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("notion API returned status %d", e.Status)
	}
	return e.Message
}

// Message returns the Notion message carried by err, or err.Error() if err
// did not come from the API.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return err.Error()
}

// IsNotFound reports whether err is a Notion object_not_found answer.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusNotFound || apiErr.Code == "object_not_found"
	}
	return false
}

func parseAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	apiErr := &APIError{Status: resp.StatusCode}
	if len(body) > 0 {
		_ = json.Unmarshal(body, apiErr)
		apiErr.Status = resp.StatusCode
	}
	return apiErr
}
