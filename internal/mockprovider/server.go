// Package mockprovider is an in-memory stand-in for the Salt Edge v6 API.
// It serves the endpoints the client uses, completes connect sessions in a
// fake widget and posts finish callbacks the way the real aggregator does.
package mockprovider

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scanpay/scanpay-api/internal/logging"
	"github.com/scanpay/scanpay-api/internal/saltedge"
	"github.com/scanpay/scanpay-api/internal/service"
)

const (
	apiPrefix    = "/api/v6"
	providerCode = "fakebank_simple_xf"
	providerName = "Fake Bank Simple"
)

type Option func(*Server)

func WithHTTPClient(hc *http.Client) Option {
	return func(s *Server) { s.httpClient = hc }
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

type Server struct {
	cfg         Config
	signer      *saltedge.Signer
	callbackKey *rsa.PrivateKey
	httpClient  *http.Client
	now         func() time.Time

	mu   sync.Mutex
	data *store
}

func New(cfg Config, opts ...Option) (*Server, error) {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}

	s := &Server{
		cfg:        cfg,
		signer:     saltedge.NewSigner(cfg.Secret),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
		data:       newStore(),
	}
	if cfg.CallbackPrivateKey != "" {
		key, err := parsePrivateKey(cfg.CallbackPrivateKey)
		if err != nil {
			return nil, fmt.Errorf("mockprovider.New: %w", err)
		}
		s.callbackKey = key
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func parsePrivateKey(pemKey string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemKey))
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("unexpected key type %T", parsed)
	}
	return key, nil
}

func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST "+apiPrefix+"/customers", s.createCustomer)
	api.HandleFunc("GET "+apiPrefix+"/customers", s.listCustomers)
	api.HandleFunc("GET "+apiPrefix+"/customers/{id}", s.showCustomer)
	api.HandleFunc("POST "+apiPrefix+"/connections/connect", s.createConnectSession)
	api.HandleFunc("GET "+apiPrefix+"/connections", s.listConnections)
	api.HandleFunc("GET "+apiPrefix+"/connections/{id}", s.showConnection)
	api.HandleFunc("DELETE "+apiPrefix+"/connections/{id}", s.removeConnection)
	api.HandleFunc("POST "+apiPrefix+"/connections/{id}/refresh", s.refreshConnection)
	api.HandleFunc("GET "+apiPrefix+"/accounts", s.listAccounts)
	api.HandleFunc("GET "+apiPrefix+"/transactions", s.listTransactions)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /connect/{token}", s.completeConnect)
	mux.Handle(apiPrefix+"/", s.authenticate(api))
	return mux
}

type envelope struct {
	Data any `json:"data"`
}

type listEnvelope struct {
	Data any           `json:"data"`
	Meta saltedge.Meta `json:"meta"`
}

type apiError struct {
	Class   string `json:"class"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, class, message string) {
	writeJSON(w, status, map[string]apiError{"error": {Class: class, Message: message}})
}

// authenticate checks the App-id and Secret headers and, when the request
// carries one, the Expires-at / Signature pair.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("App-id") != s.cfg.AppID {
			writeError(w, http.StatusUnauthorized, "ClientNotFound", "Client with given App-id was not found")
			return
		}
		if r.Header.Get("Secret") != s.cfg.Secret {
			writeError(w, http.StatusUnauthorized, "WrongClientSecret", "Secret does not match the App-id")
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			writeError(w, http.StatusBadRequest, "WrongRequestFormat", "Unreadable body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		if sig := r.Header.Get("Signature"); sig != "" {
			exp, err := strconv.ParseInt(r.Header.Get("Expires-at"), 10, 64)
			if err != nil || exp < s.now().Unix() {
				writeError(w, http.StatusUnauthorized, "ExpiresAtInvalid", "Expires-at is missing or in the past")
				return
			}
			fullURL := "http://" + r.Host + r.URL.RequestURI()
			if s.signer.Sign(r.Method, fullURL, exp, body) != sig {
				writeError(w, http.StatusUnauthorized, "InvalidSignature", "Signature does not match the request")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func decodeData(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(&envelope{Data: v})
}

func (s *Server) stamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

func (s *Server) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
	}
	if err := decodeData(r, &req); err != nil || req.Identifier == "" {
		writeError(w, http.StatusBadRequest, "WrongRequestFormat", "identifier is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data.hasIdentifier(req.Identifier) {
		writeError(w, http.StatusConflict, "DuplicatedCustomer", "Customer with such identifier already exists")
		return
	}
	c := saltedge.Customer{
		CustomerID: s.data.id(),
		Identifier: req.Identifier,
		CreatedAt:  s.stamp(),
		UpdatedAt:  s.stamp(),
	}
	s.data.customers = append(s.data.customers, c)

	writeJSON(w, http.StatusOK, envelope{Data: c})
}

func (s *Server) listCustomers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customers := append([]saltedge.Customer{}, s.data.customers...)
	writeJSON(w, http.StatusOK, listEnvelope{Data: customers})
}

func (s *Server) showCustomer(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.data.customer(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "CustomerNotFound", "Customer was not found")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: c})
}

func (s *Server) createConnectSession(w http.ResponseWriter, r *http.Request) {
	var req saltedge.ConnectSessionRequest
	if err := decodeData(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "WrongRequestFormat", "Malformed connect request")
		return
	}
	if len(req.Consent.Scopes) == 0 {
		writeError(w, http.StatusBadRequest, "WrongRequestFormat", "consent.scopes is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.customer(req.CustomerID); !ok {
		writeError(w, http.StatusNotFound, "CustomerNotFound", "Customer was not found")
		return
	}

	token := uuid.NewString()
	s.data.sessions[token] = pendingSession{
		customerID: req.CustomerID,
		returnTo:   req.ReturnTo,
		fromDate:   req.Attempt.FromDate,
	}

	writeJSON(w, http.StatusOK, envelope{Data: saltedge.ConnectSession{
		ConnectURL: "http://" + r.Host + "/connect/" + token,
		ExpiresAt:  s.now().Add(time.Hour).UTC().Format(time.RFC3339),
	}})
}

// completeConnect plays the widget: the bank login always succeeds, the
// finish callback is delivered, then the browser goes back to return_to.
func (s *Server) completeConnect(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	session, ok := s.data.sessions[r.PathValue("token")]
	if !ok {
		s.mu.Unlock()
		http.Error(w, "connect session not found or expired", http.StatusNotFound)
		return
	}
	delete(s.data.sessions, r.PathValue("token"))

	conn := &saltedge.Connection{
		ID:           s.data.id(),
		ProviderID:   "1234",
		ProviderCode: providerCode,
		ProviderName: providerName,
		CustomerID:   session.customerID,
		CountryCode:  "XF",
		Status:       saltedge.ConnectionStatusActive,
		LastAttempt:  s.attempt(session.fromDate),
		CreatedAt:    s.stamp(),
		UpdatedAt:    s.stamp(),
	}
	s.data.connections[conn.ID] = conn
	s.data.seed(conn, s.cfg.AccountsPerConn, s.cfg.TransactionsPerAcc, s.now())
	s.mu.Unlock()

	logging.FromContext(r.Context()).Info("connection completed", "connection_id", conn.ID, "customer_id", conn.CustomerID)
	s.notify(r.Context(), conn.ID, conn.CustomerID)

	if session.returnTo == "" {
		writeJSON(w, http.StatusOK, envelope{Data: map[string]string{"connection_id": conn.ID}})
		return
	}
	target, err := url.Parse(session.returnTo)
	if err != nil {
		http.Error(w, "invalid return_to", http.StatusBadRequest)
		return
	}
	q := target.Query()
	q.Set("connection_id", conn.ID)
	target.RawQuery = q.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func (s *Server) attempt(fromDate string) saltedge.Attempt {
	return saltedge.Attempt{
		ID:             s.data.id(),
		APIMode:        "service",
		APIVersion:     "6",
		AutomaticFetch: true,
		Categorize:     true,
		CreatedAt:      s.stamp(),
		UpdatedAt:      s.stamp(),
		SuccessAt:      s.stamp(),
		FetchScopes:    []string{"accounts", "transactions"},
		FromDate:       fromDate,
		Stages:         []saltedge.Stage{{Name: "finish", CreatedAt: s.stamp(), UpdatedAt: s.stamp()}},
	}
}

func (s *Server) listConnections(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		writeError(w, http.StatusBadRequest, "WrongRequestFormat", "customer_id is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conns := []saltedge.Connection{}
	for _, c := range s.data.connections {
		if c.CustomerID == customerID {
			conns = append(conns, *c)
		}
	}
	writeJSON(w, http.StatusOK, listEnvelope{Data: conns})
}

func (s *Server) showConnection(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.data.connections[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "ConnectionNotFound", "Connection was not found")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: conn})
}

func (s *Server) removeConnection(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.connections[id]; !ok {
		writeError(w, http.StatusNotFound, "ConnectionNotFound", "Connection was not found")
		return
	}
	for _, acc := range s.data.accounts[id] {
		delete(s.data.transactions, acc.ID)
	}
	delete(s.data.accounts, id)
	delete(s.data.connections, id)

	writeJSON(w, http.StatusOK, envelope{Data: saltedge.RemoveResult{ID: id, Removed: true}})
}

// refreshConnection books one new credit on every account and sends a finish
// callback, standing in for a background fetch.
func (s *Server) refreshConnection(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	conn, ok := s.data.connections[id]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "ConnectionNotFound", "Connection was not found")
		return
	}
	var opts saltedge.RefreshOptions
	_ = decodeData(r, &opts)

	conn.LastAttempt = s.attempt(opts.FromDate)
	conn.UpdatedAt = s.stamp()
	for _, acc := range s.data.accounts[id] {
		s.data.transactions[acc.ID] = append(s.data.transactions[acc.ID], saltedge.Transaction{
			ID:           s.data.id(),
			AccountID:    acc.ID,
			Mode:         "normal",
			Status:       saltedge.TransactionStatusPosted,
			MadeOn:       s.now().UTC().Format(saltedge.DateLayout),
			Amount:       decimalTen,
			CurrencyCode: acc.CurrencyCode,
			Description:  "Refresh credit",
			Extra:        saltedge.TransactionExtra{Payer: "Fake Payer"},
			CreatedAt:    s.stamp(),
			UpdatedAt:    s.stamp(),
		})
	}
	result := saltedge.RefreshResult{AttemptID: conn.LastAttempt.ID}
	customerID := conn.CustomerID
	s.mu.Unlock()

	s.notify(r.Context(), id, customerID)
	writeJSON(w, http.StatusOK, envelope{Data: result})
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("connection_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "WrongRequestFormat", "connection_id is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.connections[id]; !ok {
		writeError(w, http.StatusNotFound, "ConnectionNotFound", "Connection was not found")
		return
	}
	accounts := append([]saltedge.Account{}, s.data.accounts[id]...)
	writeJSON(w, http.StatusOK, listEnvelope{Data: accounts})
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	connID, accID := q.Get("connection_id"), q.Get("account_id")
	if connID == "" || accID == "" {
		writeError(w, http.StatusBadRequest, "WrongRequestFormat", "connection_id and account_id are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.connections[connID]; !ok {
		writeError(w, http.StatusNotFound, "ConnectionNotFound", "Connection was not found")
		return
	}
	found := false
	for _, acc := range s.data.accounts[connID] {
		if acc.ID == accID {
			found = true
			break
		}
	}
	if !found {
		writeError(w, http.StatusNotFound, "AccountNotFound", "Account was not found")
		return
	}

	txs, next := page(s.data.transactions[accID], q.Get("from_id"), q.Get("from_date"), q.Get("to_date"), s.cfg.PageSize)
	writeJSON(w, http.StatusOK, listEnvelope{Data: txs, Meta: saltedge.Meta{NextID: next}})
}

// notify posts a finish callback and logs the outcome. Delivery failures are
// not retried.
func (s *Server) notify(ctx context.Context, connectionID, customerID string) {
	if s.cfg.CallbackURL == "" {
		return
	}
	log := logging.FromContext(ctx).With("connection_id", connectionID)

	status, err := s.postCallback(ctx, service.CallbackPayload{
		Data: service.CallbackData{
			ConnectionID: connectionID,
			CustomerID:   customerID,
			Stage:        "finish",
		},
		Meta: service.CallbackMeta{Version: "6", Time: s.stamp()},
	})
	if err != nil {
		log.Error("callback delivery failed", "error", err)
		return
	}
	log.Info("callback delivered", "status", status)
}

func (s *Server) postCallback(ctx context.Context, payload service.CallbackPayload) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("postCallback: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.CallbackURL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("postCallback: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if s.callbackKey != nil {
		digest := sha256.Sum256([]byte(s.cfg.CallbackURL + "|" + string(body)))
		sig, err := rsa.SignPKCS1v15(rand.Reader, s.callbackKey, crypto.SHA256, digest[:])
		if err != nil {
			return 0, fmt.Errorf("postCallback: sign: %w", err)
		}
		req.Header.Set("Signature", base64.StdEncoding.EncodeToString(sig))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("postCallback: send: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("postCallback: receiver answered %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}
