package mockprovider_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanpay/scanpay-api/internal/handler"
	"github.com/scanpay/scanpay-api/internal/mockprovider"
	"github.com/scanpay/scanpay-api/internal/saltedge"
	"github.com/scanpay/scanpay-api/internal/service"
)

const (
	appID  = "mock-app"
	secret = "mock-secret"
)

type recordingObserver struct {
	mu       sync.Mutex
	payments []service.DetectedPayment
}

func (o *recordingObserver) PaymentDetected(_ context.Context, p service.DetectedPayment) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.payments = append(o.payments, p)
}

func (o *recordingObserver) count(direction service.Direction) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, p := range o.payments {
		if p.Direction == direction {
			n++
		}
	}
	return n
}

// callbackReceiver records the status the wrapped handler gave each delivery.
type callbackReceiver struct {
	mu      sync.Mutex
	handler http.Handler
	codes   []int
}

func (c *callbackReceiver) set(h http.Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

func (c *callbackReceiver) statuses() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int{}, c.codes...)
}

func (c *callbackReceiver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	c.mu.Lock()
	c.codes = append(c.codes, rec.Code)
	c.mu.Unlock()

	w.WriteHeader(rec.Code)
	_, _ = w.Write(rec.Body.Bytes())
}

func startReceiver(t *testing.T) (*callbackReceiver, string) {
	t.Helper()
	recv := &callbackReceiver{}
	srv := httptest.NewServer(recv)
	t.Cleanup(srv.Close)
	return recv, srv.URL + "/api/saltedge/callbacks"
}

func startProvider(t *testing.T, cfg mockprovider.Config) *httptest.Server {
	t.Helper()
	cfg.AppID = appID
	cfg.Secret = secret

	provider, err := mockprovider.New(cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(provider.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, baseURL, secret string, env saltedge.Environment) *saltedge.Client {
	t.Helper()
	c, err := saltedge.NewClient(saltedge.Config{
		AppID:       appID,
		Secret:      secret,
		BaseURL:     baseURL + "/api/v6",
		Environment: env,
	})
	require.NoError(t, err)
	return c
}

func TestAuthenticate(t *testing.T) {
	srv := startProvider(t, mockprovider.Config{})

	_, err := newClient(t, srv.URL, "wrong", saltedge.EnvironmentSandbox).ListCustomers(context.Background())
	assert.True(t, saltedge.IsErrorClass(err, "WrongClientSecret"), err)

	_, err = newClient(t, srv.URL, secret, saltedge.EnvironmentLive).ListCustomers(context.Background())
	assert.NoError(t, err)
}

func TestCustomers(t *testing.T) {
	srv := startProvider(t, mockprovider.Config{})
	client := newClient(t, srv.URL, secret, saltedge.EnvironmentSandbox)
	ctx := context.Background()

	created, err := client.CreateCustomer(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, created.Data.CustomerID)

	_, err = client.CreateCustomer(ctx, "alice@example.com")
	var apiErr *saltedge.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "DuplicatedCustomer", apiErr.ErrorClass)

	shown, err := client.ShowCustomer(ctx, created.Data.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", shown.Data.Identifier)

	list, err := client.ListCustomers(ctx)
	require.NoError(t, err)
	assert.Len(t, list.Data, 1)
}

func TestConnectSession_UnknownCustomer(t *testing.T) {
	srv := startProvider(t, mockprovider.Config{})
	client := newClient(t, srv.URL, secret, saltedge.EnvironmentSandbox)

	svc := service.NewConnectSessionService(client, client.Environment(), "https://app.example.com")
	_, err := svc.Create(context.Background(), service.ConnectSessionInput{
		CustomerID: "nope",
		Consent:    &service.ConsentInput{Scopes: []string{"accounts"}},
	})
	assert.True(t, saltedge.IsErrorClass(err, "CustomerNotFound"), err)
}

func keyPair(t *testing.T) (privatePEM, publicPEM string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	privatePEM = string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}))
	publicPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pub}))
	return privatePEM, publicPEM
}

// The full loop: connect session, widget completion, signed finish callback,
// sync through the callback handler, refresh, removal.
func TestConnectCallbackSync(t *testing.T) {
	ctx := context.Background()
	privatePEM, publicPEM := keyPair(t)

	recv, callbackURL := startReceiver(t)

	srv := startProvider(t, mockprovider.Config{
		CallbackURL:        callbackURL,
		CallbackPrivateKey: privatePEM,
		PageSize:           1,
		AccountsPerConn:    1,
		TransactionsPerAcc: 3,
	})
	client := newClient(t, srv.URL, secret, saltedge.EnvironmentLive)

	verifier, err := saltedge.NewCallbackVerifier(publicPEM, callbackURL)
	require.NoError(t, err)
	observer := &recordingObserver{}
	syncer := service.NewTransactionSync(client, observer, nil)
	recv.set(http.HandlerFunc(handler.NewCallbackHandler(service.NewCallbackProcessor(syncer, nil), verifier).Receive))

	customer, err := client.CreateCustomer(ctx, "bob@example.com")
	require.NoError(t, err)

	session, err := service.NewConnectSessionService(client, client.Environment(), "https://app.example.com").
		Create(ctx, service.ConnectSessionInput{
			CustomerID: customer.Data.CustomerID,
			Consent:    &service.ConsentInput{Scopes: []string{"accounts", "transactions"}},
		})
	require.NoError(t, err)

	browser := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := browser.Get(session.ConnectURL)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/connect-bank/success", location.Path)
	connectionID := location.Query().Get("connection_id")
	require.NotEmpty(t, connectionID)

	// The 24h lookback keeps yesterday's debit and today's credit.
	assert.Equal(t, []int{http.StatusOK}, recv.statuses())
	assert.Equal(t, 1, observer.count(service.DirectionIncoming))
	assert.Equal(t, 1, observer.count(service.DirectionOutgoing))

	conns, err := client.ListConnections(ctx, customer.Data.CustomerID)
	require.NoError(t, err)
	require.Len(t, conns.Data, 1)
	assert.Equal(t, saltedge.ConnectionStatusActive, conns.Data[0].Status)

	refreshed, err := service.NewRefreshService(client).Refresh(ctx, connectionID)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AttemptID)
	assert.Equal(t, []int{http.StatusOK, http.StatusOK}, recv.statuses())
	assert.Equal(t, 3, observer.count(service.DirectionIncoming))
	assert.Equal(t, 2, observer.count(service.DirectionOutgoing))

	removed, err := client.RemoveConnection(ctx, connectionID)
	require.NoError(t, err)
	assert.True(t, removed.Data.Removed)

	_, err = client.ShowConnection(ctx, connectionID)
	assert.True(t, saltedge.IsErrorClass(err, "ConnectionNotFound"), err)
}

func TestConnectCallback_WrongKeyIsRejected(t *testing.T) {
	ctx := context.Background()
	signingKey, _ := keyPair(t)
	_, otherPublic := keyPair(t)

	recv, callbackURL := startReceiver(t)

	srv := startProvider(t, mockprovider.Config{
		CallbackURL:        callbackURL,
		CallbackPrivateKey: signingKey,
		AccountsPerConn:    1,
		TransactionsPerAcc: 1,
	})
	client := newClient(t, srv.URL, secret, saltedge.EnvironmentSandbox)

	verifier, err := saltedge.NewCallbackVerifier(otherPublic, callbackURL)
	require.NoError(t, err)
	observer := &recordingObserver{}
	recv.set(http.HandlerFunc(handler.NewCallbackHandler(
		service.NewCallbackProcessor(service.NewTransactionSync(client, observer, nil), nil),
		verifier,
	).Receive))

	customer, err := client.CreateCustomer(ctx, "carol@example.com")
	require.NoError(t, err)
	session, err := client.CreateConnectSession(ctx, saltedge.ConnectSessionRequest{
		CustomerID: customer.Data.CustomerID,
		Consent:    saltedge.Consent{Scopes: []string{"accounts"}},
	})
	require.NoError(t, err)

	resp, err := http.Get(session.Data.ConnectURL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []int{http.StatusUnauthorized}, recv.statuses())
	assert.Zero(t, observer.count(service.DirectionIncoming))
}
