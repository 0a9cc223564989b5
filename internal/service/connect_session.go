package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/scanpay/scanpay-api/internal/domain"
	"github.com/scanpay/scanpay-api/internal/logging"
	"github.com/scanpay/scanpay-api/internal/saltedge"
)

const (
	defaultPeriodDays = 90
	defaultLocale     = "en"
	defaultTheme      = "default"
	connectReturnPath = "/connect-bank/success"
)

var defaultFetchScopes = []string{"accounts", "transactions"}

type ConsentInput struct {
	Scopes     []string `json:"scopes"`
	FromDate   string   `json:"from_date,omitempty"`
	ToDate     string   `json:"to_date,omitempty"`
	PeriodDays *int     `json:"period_days,omitempty"`
}

type AttemptInput struct {
	ReturnConnectionID *bool    `json:"return_connection_id,omitempty"`
	ReturnErrorClass   *bool    `json:"return_error_class,omitempty"`
	FetchScopes        []string `json:"fetch_scopes,omitempty"`
	IncludeNatures     []string `json:"include_natures,omitempty"`
	ExcludeAccounts    []string `json:"exclude_accounts,omitempty"`
	FromDate           string   `json:"from_date,omitempty"`
	ToDate             string   `json:"to_date,omitempty"`
	Categorize         *bool    `json:"categorize,omitempty"`
	StoreCredentials   *bool    `json:"store_credentials,omitempty"`
}

// ConnectSessionInput is what callers hand to the orchestrator. Nil pointers
// mean "not provided" and are replaced by defaults.
type ConnectSessionInput struct {
	CustomerID              string        `json:"customer_id"`
	Consent                 *ConsentInput `json:"consent,omitempty"`
	Attempt                 *AttemptInput `json:"attempt,omitempty"`
	Locale                  string        `json:"locale,omitempty"`
	Theme                   string        `json:"theme,omitempty"`
	ReturnTo                string        `json:"return_to,omitempty"`
	ShowConsentConfirmation *bool         `json:"show_consent_confirmation,omitempty"`
	IncludeFakeProviders    *bool         `json:"include_fake_providers,omitempty"`
	ProviderModes           []string      `json:"provider_modes,omitempty"`
	CountryCodes            []string      `json:"country_codes,omitempty"`
	ProviderCode            string        `json:"provider_code,omitempty"`
	DisableProviderSearch   *bool         `json:"disable_provider_search,omitempty"`
	LostConnectionNotify    *bool         `json:"lost_connection_notify,omitempty"`
	CredentialsStrategy     string        `json:"credentials_strategy,omitempty"`
}

type ConnectSessionService struct {
	client      connectSessionCreator
	environment saltedge.Environment
	baseURL     string
}

func NewConnectSessionService(client connectSessionCreator, environment saltedge.Environment, baseURL string) *ConnectSessionService {
	return &ConnectSessionService{
		client:      client,
		environment: environment,
		baseURL:     strings.TrimRight(baseURL, "/"),
	}
}

func (s *ConnectSessionService) Create(ctx context.Context, in ConnectSessionInput) (*saltedge.ConnectSession, error) {
	req, err := s.BuildRequest(in)
	if err != nil {
		return nil, fmt.Errorf("CreateConnectSession: %w", err)
	}

	resp, err := s.client.CreateConnectSession(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("CreateConnectSession: %w", err)
	}

	logging.FromContext(ctx).Info("connect session created",
		"customer_id", req.CustomerID,
		"expires_at", resp.Data.ExpiresAt,
	)
	return &resp.Data, nil
}

// BuildRequest validates the input and merges it over the defaults.
func (s *ConnectSessionService) BuildRequest(in ConnectSessionInput) (saltedge.ConnectSessionRequest, error) {
	if strings.TrimSpace(in.CustomerID) == "" {
		return saltedge.ConnectSessionRequest{}, domain.ErrCustomerIDRequired
	}
	if in.Consent == nil || len(in.Consent.Scopes) == 0 {
		return saltedge.ConnectSessionRequest{}, domain.ErrConsentScopesRequired
	}

	periodDays := defaultPeriodDays
	if in.Consent.PeriodDays != nil {
		periodDays = *in.Consent.PeriodDays
	}

	attempt := in.Attempt
	if attempt == nil {
		attempt = &AttemptInput{}
	}
	fetchScopes := defaultFetchScopes
	if attempt.FetchScopes != nil {
		fetchScopes = attempt.FetchScopes
	}

	returnTo := in.ReturnTo
	if returnTo == "" {
		returnTo = s.baseURL + connectReturnPath
	}

	return saltedge.ConnectSessionRequest{
		CustomerID: in.CustomerID,
		Consent: saltedge.Consent{
			Scopes:     in.Consent.Scopes,
			FromDate:   in.Consent.FromDate,
			ToDate:     in.Consent.ToDate,
			PeriodDays: &periodDays,
		},
		Attempt: saltedge.AttemptRequest{
			ReturnConnectionID: boolOr(attempt.ReturnConnectionID, true),
			ReturnErrorClass:   boolOr(attempt.ReturnErrorClass, true),
			FetchScopes:        append([]string(nil), fetchScopes...),
			IncludeNatures:     attempt.IncludeNatures,
			ExcludeAccounts:    attempt.ExcludeAccounts,
			FromDate:           attempt.FromDate,
			ToDate:             attempt.ToDate,
			Categorize:         boolOr(attempt.Categorize, true),
			StoreCredentials:   boolOr(attempt.StoreCredentials, true),
		},
		Theme:                   stringOr(in.Theme, defaultTheme),
		Locale:                  stringOr(in.Locale, defaultLocale),
		ReturnTo:                returnTo,
		ProviderModes:           in.ProviderModes,
		CountryCodes:            in.CountryCodes,
		ProviderCode:            in.ProviderCode,
		DisableProviderSearch:   boolOr(in.DisableProviderSearch, false),
		LostConnectionNotify:    boolOr(in.LostConnectionNotify, false),
		CredentialsStrategy:     in.CredentialsStrategy,
		IncludeFakeProviders:    boolOr(in.IncludeFakeProviders, s.environment == saltedge.EnvironmentSandbox),
		ShowConsentConfirmation: boolOr(in.ShowConsentConfirmation, true),
	}, nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func stringOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
