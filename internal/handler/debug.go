package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/scanpay/scanpay-api/internal/logging"
	"github.com/scanpay/scanpay-api/internal/service"
)

const (
	present = "***PRESENT***"
	missing = "MISSING"
)

// DebugConfig is the aggregator configuration the debug report describes.
// Secret values never leave this package; only their presence and length.
type DebugConfig struct {
	AppID       string
	Secret      string
	BaseURL     string
	Environment string
	AppEnv      string
	// CallbackURL is the URL callback signatures are checked against.
	// Empty means the local callback route.
	CallbackURL string
}

type DebugHandler struct {
	cfg        DebugConfig
	siteURL    string
	httpClient *http.Client
	now        func() time.Time
}

func NewDebugHandler(cfg DebugConfig, siteURL string) *DebugHandler {
	return &DebugHandler{
		cfg:        cfg,
		siteURL:    strings.TrimRight(siteURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		now:        time.Now,
	}
}

type configReport struct {
	AppID         string `json:"SALTEDGE_APP_ID"`
	Secret        string `json:"SALTEDGE_SECRET"`
	BaseURL       string `json:"SALTEDGE_BASE_URL"`
	Environment   string `json:"SALTEDGE_ENVIRONMENT"`
	AppEnv        string `json:"APP_ENV"`
	AppIDLength   int    `json:"SALTEDGE_APP_ID_LENGTH"`
	SecretLength  int    `json:"SALTEDGE_SECRET_LENGTH"`
	CallbackRoute string `json:"callback_url"`
}

func presence(v string) string {
	if v == "" {
		return missing
	}
	return present
}

func (h *DebugHandler) Config(w http.ResponseWriter, r *http.Request) {
	report := configReport{
		AppID:         presence(h.cfg.AppID),
		Secret:        presence(h.cfg.Secret),
		BaseURL:       h.cfg.BaseURL,
		Environment:   h.cfg.Environment,
		AppEnv:        h.cfg.AppEnv,
		AppIDLength:   len(h.cfg.AppID),
		SecretLength:  len(h.cfg.Secret),
		CallbackRoute: h.signedCallbackURL(),
	}

	logging.FromContext(r.Context()).Info("configuration check",
		"app_id", report.AppID,
		"secret", report.Secret,
		"environment", report.Environment,
	)

	RespondJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    report,
		Message: "Environment variables check complete",
	})
}

type testWebhookRequest struct {
	ConnectionID string `json:"connection_id"`
	CustomerID   string `json:"customer_id"`
}

func (r testWebhookRequest) Validate() []FieldError {
	var errs []FieldError
	if r.ConnectionID == "" {
		errs = append(errs, FieldError{Field: "connection_id", Message: "required"})
	}
	if r.CustomerID == "" {
		errs = append(errs, FieldError{Field: "customer_id", Message: "required"})
	}
	return errs
}

type testWebhookResult struct {
	WebhookStatus    int                     `json:"webhook_status"`
	WebhookResponse  json.RawMessage         `json:"webhook_response"`
	SimulatedPayload service.CallbackPayload `json:"simulated_payload"`
}

// TestWebhook posts a simulated finish callback to this service's own
// callback route and reports what came back.
func (h *DebugHandler) TestWebhook(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req testWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	payload := service.CallbackPayload{
		Data: service.CallbackData{
			ConnectionID: req.ConnectionID,
			CustomerID:   req.CustomerID,
			Stage:        "finish",
		},
		Meta: service.CallbackMeta{
			Version: "6",
			Time:    h.now().UTC().Format(time.RFC3339),
		},
	}

	status, body, err := h.postCallback(r, payload)
	if err != nil {
		log.Error("test webhook failed", "connection_id", req.ConnectionID, "error", err)
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	log.Info("test webhook sent", "connection_id", req.ConnectionID, "webhook_status", status)
	RespondJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Message: "Test webhook sent successfully",
		Data: testWebhookResult{
			WebhookStatus:    status,
			WebhookResponse:  body,
			SimulatedPayload: payload,
		},
	})
}

func (h *DebugHandler) callbackURL() string {
	return h.siteURL + "/api/saltedge/callbacks"
}

func (h *DebugHandler) signedCallbackURL() string {
	if h.cfg.CallbackURL != "" {
		return h.cfg.CallbackURL
	}
	return h.callbackURL()
}

func (h *DebugHandler) postCallback(r *http.Request, payload service.CallbackPayload) (int, json.RawMessage, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("postCallback: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.callbackURL(), bytes.NewReader(b))
	if err != nil {
		return 0, nil, fmt.Errorf("postCallback: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("postCallback: send: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("postCallback: read body: %w", err)
	}
	if !json.Valid(body) {
		quoted, _ := json.Marshal(string(body))
		body = quoted
	}
	return resp.StatusCode, body, nil
}
