package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Send(t *testing.T) {
	var gotAuth string
	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"email-1"}`))
	}))
	defer srv.Close()

	c := New("re_key", "ScanPay <hello@scanpay.test>", WithEndpoint(srv.URL))
	err := c.Send(context.Background(), Message{
		To:      []string{"user@example.com"},
		Subject: "Hi",
		HTML:    "<p>hi</p>",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer re_key", gotAuth)
	assert.Equal(t, "ScanPay <hello@scanpay.test>", got.From)
	assert.Equal(t, []string{"user@example.com"}, got.To)
}

func TestClient_SendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid to"}`))
	}))
	defer srv.Close()

	err := New("re_key", "a@b.test", WithEndpoint(srv.URL)).Send(context.Background(), Message{To: []string{"x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 422")
}

func TestClient_Disabled(t *testing.T) {
	c := New("", "a@b.test")
	assert.False(t, c.Enabled())
	assert.ErrorIs(t, c.Send(context.Background(), Message{}), ErrDisabled)
}

func TestRenderContact_EscapesAndBreaksLines(t *testing.T) {
	html, err := RenderContact(ContactData{
		Email:   "user@example.com",
		Message: "line one\n<script>alert(1)</script>",
		SentAt:  time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Contains(t, html, "line one<br>")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "2024-05-01 10:30 UTC")
}

func TestRenderWelcome(t *testing.T) {
	html, err := RenderWelcome(WelcomeData{Email: "user@example.com"})
	require.NoError(t, err)
	assert.Contains(t, html, "user@example.com")
}
