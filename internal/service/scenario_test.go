package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanpay/scanpay-api/internal/saltedge"
)

type aggregatorLog struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   [][]byte
}

func (l *aggregatorLog) record(r *http.Request, body []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests = append(l.requests, r.Clone(context.Background()))
	l.bodies = append(l.bodies, body)
}

func newFakeAggregatorServer(t *testing.T) (*httptest.Server, *aggregatorLog) {
	t.Helper()
	log := &aggregatorLog{}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /connections/connect", func(w http.ResponseWriter, r *http.Request) {
		var body json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&body)
		log.record(r, body)
		_, _ = w.Write([]byte(`{"data":{"connect_url":"https://www.saltedge.com/connect?token=abc","expires_at":"2024-03-15T11:00:00Z"}}`))
	})
	mux.HandleFunc("GET /accounts", func(w http.ResponseWriter, r *http.Request) {
		log.record(r, nil)
		_, _ = w.Write([]byte(`{"data":[{"id":"acc-1","balance":10},{"id":"acc-2","balance":20}],"meta":{}}`))
	})
	mux.HandleFunc("GET /transactions", func(w http.ResponseWriter, r *http.Request) {
		log.record(r, nil)
		switch r.URL.Query().Get("account_id") {
		case "acc-1":
			_, _ = w.Write([]byte(`{"data":[{"id":"t1","account_id":"acc-1","amount":250.00,"currency_code":"CZK","extra":{"payer":"Jan Novak"}}],"meta":{}}`))
		default:
			_, _ = w.Write([]byte(`{"data":[{"id":"t2","account_id":"acc-2","amount":-99.90,"currency_code":"CZK","extra":{"payee":"Coffee Shop"}}],"meta":{}}`))
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, log
}

func TestScenario_ConnectSessionOverHTTP(t *testing.T) {
	srv, log := newFakeAggregatorServer(t)
	client, err := saltedge.NewClient(saltedge.Config{AppID: "app", Secret: "sec", BaseURL: srv.URL})
	require.NoError(t, err)

	svc := NewConnectSessionService(client, client.Environment(), "https://scanpay.test")
	session, err := svc.Create(context.Background(), ConnectSessionInput{
		CustomerID: "cust-1",
		Consent:    &ConsentInput{Scopes: []string{"accounts", "transactions"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://www.saltedge.com/connect?token=abc", session.ConnectURL)

	require.Len(t, log.requests, 1)
	var sent struct {
		Data struct {
			CustomerID           string `json:"customer_id"`
			IncludeFakeProviders bool   `json:"include_fake_providers"`
			Consent              struct {
				PeriodDays int `json:"period_days"`
			} `json:"consent"`
			Attempt struct {
				FetchScopes []string `json:"fetch_scopes"`
			} `json:"attempt"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(log.bodies[0], &sent))
	assert.Equal(t, "cust-1", sent.Data.CustomerID)
	assert.True(t, sent.Data.IncludeFakeProviders)
	assert.Equal(t, 90, sent.Data.Consent.PeriodDays)
	assert.Equal(t, []string{"accounts", "transactions"}, sent.Data.Attempt.FetchScopes)
	assert.Empty(t, log.requests[0].Header.Get("Signature"))
}

func TestScenario_FinishCallbackSyncsEachAccount(t *testing.T) {
	srv, log := newFakeAggregatorServer(t)
	client, err := saltedge.NewClient(saltedge.Config{AppID: "app", Secret: "sec", BaseURL: srv.URL})
	require.NoError(t, err)

	obs := &recordedPayments{}
	syncer := NewTransactionSync(client, obs, nil)
	syncer.now = func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }
	processor := NewCallbackProcessor(syncer, nil)

	cb, err := processor.Process(context.Background(), CallbackPayload{
		Data: CallbackData{ConnectionID: "conn-1", CustomerID: "cust-1", Stage: "finish"},
	})
	require.NoError(t, err)
	assert.Equal(t, CallbackSuccess, cb.Kind)

	var accountCalls, txCalls int
	for _, r := range log.requests {
		switch r.URL.Path {
		case "/accounts":
			accountCalls++
			assert.Equal(t, "conn-1", r.URL.Query().Get("connection_id"))
		case "/transactions":
			txCalls++
			assert.Equal(t, "conn-1", r.URL.Query().Get("connection_id"))
			assert.Equal(t, "2024-03-14", r.URL.Query().Get("from_date"))
		}
	}
	assert.Equal(t, 1, accountCalls)
	assert.Equal(t, 2, txCalls)

	require.Len(t, obs.payments, 2)
	assert.Equal(t, DirectionIncoming, obs.payments[0].Direction)
	assert.Equal(t, "Jan Novak", obs.payments[0].Counterparty)
	assert.Equal(t, DirectionOutgoing, obs.payments[1].Direction)
	assert.Equal(t, "Coffee Shop", obs.payments[1].Counterparty)
	assert.Equal(t, "99.9", obs.payments[1].Amount.String())
}
