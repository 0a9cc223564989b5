package saltedge

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAPIError(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		body      string
		wantClass string
		wantMsg   string
		wantErr   string
	}{
		{
			name:      "top level fields",
			code:      http.StatusNotFound,
			body:      `{"error_class":"ConnectionNotFound","error_message":"Connection not found"}`,
			wantClass: "ConnectionNotFound",
			wantMsg:   "Connection not found",
			wantErr:   "saltedge: 404 Not Found - Connection not found (ConnectionNotFound)",
		},
		{
			name:      "nested error object",
			code:      http.StatusBadRequest,
			body:      `{"error":{"class":"WrongRequestFormat","message":"bad json"}}`,
			wantClass: "WrongRequestFormat",
			wantMsg:   "bad json",
			wantErr:   "saltedge: 400 Bad Request - bad json (WrongRequestFormat)",
		},
		{
			name:      "class only",
			code:      http.StatusUnauthorized,
			body:      `{"error_class":"InvalidSignature"}`,
			wantClass: "InvalidSignature",
			wantErr:   "saltedge: 401 Unauthorized (InvalidSignature)",
		},
		{
			name:    "non json body",
			code:    http.StatusBadGateway,
			body:    "upstream unavailable",
			wantErr: "saltedge: 502 Bad Gateway - upstream unavailable",
		},
		{
			name:    "empty body",
			code:    http.StatusInternalServerError,
			body:    "",
			wantErr: "saltedge: 500 Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := fmt.Sprintf("%d %s", tt.code, http.StatusText(tt.code))
			err := newAPIError(tt.code, status, []byte(tt.body))

			assert.Equal(t, tt.code, err.StatusCode)
			assert.Equal(t, tt.wantClass, err.ErrorClass)
			assert.Equal(t, tt.wantMsg, err.ErrorMessage)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestIsErrorClass(t *testing.T) {
	err := fmt.Errorf("ShowConnection: %w", &APIError{StatusCode: 404, ErrorClass: "ConnectionNotFound"})

	assert.True(t, IsErrorClass(err, "ConnectionNotFound"))
	assert.False(t, IsErrorClass(err, "CustomerNotFound"))
	assert.False(t, IsErrorClass(fmt.Errorf("plain"), "ConnectionNotFound"))
}
