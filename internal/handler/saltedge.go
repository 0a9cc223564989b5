package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/scanpay/scanpay-api/internal/logging"
	"github.com/scanpay/scanpay-api/internal/saltedge"
	"github.com/scanpay/scanpay-api/internal/service"
)

const notAvailable = "Not available"

type saltEdgeAPI interface {
	CreateCustomer(ctx context.Context, identifier string) (*saltedge.CustomerResponse, error)
	ListCustomers(ctx context.Context) (*saltedge.CustomerListResponse, error)
	ListConnections(ctx context.Context, customerID string) (*saltedge.ConnectionListResponse, error)
	ShowConnection(ctx context.Context, connectionID string) (*saltedge.ConnectionResponse, error)
	RemoveConnection(ctx context.Context, connectionID string) (*saltedge.RemoveResponse, error)
	ListAccounts(ctx context.Context, connectionID string) (*saltedge.AccountListResponse, error)
	ListTransactions(ctx context.Context, connectionID, accountID string, q saltedge.TransactionQuery) (*saltedge.TransactionListResponse, error)
}

type connectSessionService interface {
	Create(ctx context.Context, in service.ConnectSessionInput) (*saltedge.ConnectSession, error)
}

type refreshService interface {
	Refresh(ctx context.Context, connectionID string) (*saltedge.RefreshResult, error)
}

type SaltEdgeHandler struct {
	client   saltEdgeAPI
	sessions connectSessionService
	refresh  refreshService
}

func NewSaltEdgeHandler(client saltEdgeAPI, sessions connectSessionService, refresh refreshService) *SaltEdgeHandler {
	return &SaltEdgeHandler{client: client, sessions: sessions, refresh: refresh}
}

type createCustomerRequest struct {
	Identifier string `json:"identifier"`
}

func (r createCustomerRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Identifier == "" {
		errs = append(errs, FieldError{Field: "identifier", Message: "required"})
	}
	return errs
}

func (h *SaltEdgeHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req createCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	resp, err := h.client.CreateCustomer(r.Context(), req.Identifier)
	if err != nil {
		log.Error("create customer failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	log.Info("customer created", "customer_id", resp.Data.CustomerID)
	RespondSuccess(w, http.StatusOK, resp.Data)
}

func (h *SaltEdgeHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	resp, err := h.client.ListCustomers(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("list customers failed", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccessWithMeta(w, http.StatusOK, resp.Data, resp.Meta)
}

func (h *SaltEdgeHandler) Connect(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var in service.ConnectSessionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	session, err := h.sessions.Create(r.Context(), in)
	if err != nil {
		log.Warn("connect session failed", "customer_id", in.CustomerID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, session)
}

func (h *SaltEdgeHandler) ListConnections(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		RespondAppError(w, ErrCustomerIDRequired, nil)
		return
	}

	resp, err := h.client.ListConnections(r.Context(), customerID)
	if err != nil {
		logging.FromContext(r.Context()).Error("list connections failed", "customer_id", customerID, "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccessWithMeta(w, http.StatusOK, resp.Data, resp.Meta)
}

func (h *SaltEdgeHandler) ShowConnection(w http.ResponseWriter, r *http.Request) {
	connectionID := r.PathValue("connectionId")
	if connectionID == "" {
		RespondAppError(w, ErrConnectionIDRequired, nil)
		return
	}

	resp, err := h.client.ShowConnection(r.Context(), connectionID)
	if err != nil {
		logging.FromContext(r.Context()).Error("show connection failed", "connection_id", connectionID, "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, resp.Data)
}

func (h *SaltEdgeHandler) RemoveConnection(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	connectionID := r.PathValue("connectionId")
	if connectionID == "" {
		RespondAppError(w, ErrConnectionIDRequired, nil)
		return
	}

	resp, err := h.client.RemoveConnection(r.Context(), connectionID)
	if err != nil {
		log.Error("remove connection failed", "connection_id", connectionID, "error", err)
		RespondDomainError(w, err)
		return
	}

	log.Info("connection removed", "connection_id", connectionID, "removed", resp.Data.Removed)
	RespondSuccess(w, http.StatusOK, resp.Data)
}

func (h *SaltEdgeHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	connectionID := r.URL.Query().Get("connection_id")
	if connectionID == "" {
		RespondAppError(w, ErrConnectionIDRequired, nil)
		return
	}

	resp, err := h.client.ListAccounts(r.Context(), connectionID)
	if err != nil {
		logging.FromContext(r.Context()).Error("list accounts failed", "connection_id", connectionID, "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccessWithMeta(w, http.StatusOK, resp.Data, resp.Meta)
}

type accountDetailsDTO struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	Balance       decimal.Decimal       `json:"balance"`
	Currency      string                `json:"currency"`
	Nature        string                `json:"nature"`
	IBAN          string                `json:"iban"`
	AccountNumber string                `json:"account_number"`
	SWIFT         string                `json:"swift"`
	SortCode      string                `json:"sort_code"`
	RoutingNumber string                `json:"routing_number"`
	BSB           string                `json:"bsb"`
	Extra         saltedge.AccountExtra `json:"all_extra_fields"`
}

type accountDetailsResponse struct {
	ConnectionID  string              `json:"connection_id"`
	Accounts      []accountDetailsDTO `json:"accounts"`
	TotalAccounts int                 `json:"total_accounts"`
}

func toAccountDetailsDTO(a saltedge.Account) accountDetailsDTO {
	return accountDetailsDTO{
		ID:            a.ID,
		Name:          a.Name,
		Balance:       a.Balance,
		Currency:      a.CurrencyCode,
		Nature:        a.Nature,
		IBAN:          orNotAvailable(a.Extra.IBAN),
		AccountNumber: stringOr(a.Extra.AccountNumber, a.Name),
		SWIFT:         orNotAvailable(a.Extra.SWIFT),
		SortCode:      orNotAvailable(a.Extra.SortCode),
		RoutingNumber: orNotAvailable(a.Extra.RoutingNumber),
		BSB:           orNotAvailable(a.Extra.BSB),
		Extra:         a.Extra,
	}
}

// DebugAccounts lists the bank identifiers of every account of a connection.
func (h *SaltEdgeHandler) DebugAccounts(w http.ResponseWriter, r *http.Request) {
	connectionID := r.URL.Query().Get("connection_id")
	if connectionID == "" {
		RespondAppError(w, ErrConnectionIDRequired, nil)
		return
	}

	resp, err := h.client.ListAccounts(r.Context(), connectionID)
	if err != nil {
		logging.FromContext(r.Context()).Error("debug accounts failed", "connection_id", connectionID, "error", err)
		RespondDomainError(w, err)
		return
	}

	accounts := make([]accountDetailsDTO, 0, len(resp.Data))
	for _, a := range resp.Data {
		accounts = append(accounts, toAccountDetailsDTO(a))
	}
	RespondSuccess(w, http.StatusOK, accountDetailsResponse{
		ConnectionID:  connectionID,
		Accounts:      accounts,
		TotalAccounts: len(accounts),
	})
}

func (h *SaltEdgeHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	connectionID := q.Get("connection_id")
	accountID := q.Get("account_id")

	if connectionID == "" {
		RespondAppError(w, ErrConnectionIDRequired, nil)
		return
	}
	if accountID == "" {
		RespondAppError(w, ErrAccountIDRequired, nil)
		return
	}

	resp, err := h.client.ListTransactions(r.Context(), connectionID, accountID, saltedge.TransactionQuery{
		FromID:   q.Get("from_id"),
		FromDate: q.Get("from_date"),
		ToDate:   q.Get("to_date"),
	})
	if err != nil {
		logging.FromContext(r.Context()).Error("list transactions failed",
			"connection_id", connectionID,
			"account_id", accountID,
			"error", err,
		)
		RespondDomainError(w, err)
		return
	}
	RespondSuccessWithMeta(w, http.StatusOK, resp.Data, resp.Meta)
}

type refreshRequest struct {
	ConnectionID string `json:"connection_id"`
}

func (h *SaltEdgeHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	result, err := h.refresh.Refresh(r.Context(), req.ConnectionID)
	if err != nil {
		log.Error("refresh failed", "connection_id", req.ConnectionID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    result,
		Message: "Connection refresh initiated",
	})
}

func orNotAvailable(v string) string {
	return stringOr(v, notAvailable)
}

func stringOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
