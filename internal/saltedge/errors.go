package saltedge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrMissingCredentials = errors.New("saltedge: app id and secret are required")

// APIError is returned for every non-2xx response.
type APIError struct {
	StatusCode   int
	Status       string
	ErrorClass   string
	ErrorMessage string
	Body         string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "saltedge: %d %s", e.StatusCode, e.Status)
	switch {
	case e.ErrorClass != "" || e.ErrorMessage != "":
		if e.ErrorMessage != "" {
			b.WriteString(" - " + e.ErrorMessage)
		}
		if e.ErrorClass != "" {
			b.WriteString(" (" + e.ErrorClass + ")")
		}
	case e.Body != "":
		b.WriteString(" - " + e.Body)
	}
	return b.String()
}

// IsErrorClass reports whether err is an APIError carrying the given class.
func IsErrorClass(err error, class string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.ErrorClass == class
}

type errorBody struct {
	ErrorClass   string `json:"error_class"`
	ErrorMessage string `json:"error_message"`
	Error        *struct {
		Class   string `json:"class"`
		Message string `json:"message"`
	} `json:"error"`
}

func newAPIError(statusCode int, status string, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		Status:     statusText(statusCode, status),
		Body:       strings.TrimSpace(string(body)),
	}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return apiErr
	}
	apiErr.ErrorClass = parsed.ErrorClass
	apiErr.ErrorMessage = parsed.ErrorMessage
	if parsed.Error != nil {
		if apiErr.ErrorClass == "" {
			apiErr.ErrorClass = parsed.Error.Class
		}
		if apiErr.ErrorMessage == "" {
			apiErr.ErrorMessage = parsed.Error.Message
		}
	}
	return apiErr
}

// statusText strips the numeric prefix net/http puts on Response.Status.
func statusText(code int, status string) string {
	return strings.TrimSpace(strings.TrimPrefix(status, fmt.Sprintf("%d", code)))
}
