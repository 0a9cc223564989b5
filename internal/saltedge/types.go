package saltedge

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type Environment string

const (
	EnvironmentSandbox Environment = "sandbox"
	EnvironmentLive    Environment = "live"
)

func (e Environment) IsValid() bool {
	return e == EnvironmentSandbox || e == EnvironmentLive
}

// Meta carries the cursor of a list response. The client never follows it.
type Meta struct {
	NextID   string `json:"next_id,omitempty"`
	NextPage string `json:"next_page,omitempty"`
}

type Customer struct {
	CustomerID         string  `json:"customer_id"`
	Identifier         string  `json:"identifier"`
	CategorizationType *string `json:"categorization_type"`
	BlockedAt          *string `json:"blocked_at"`
	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
}

type ConnectionStatus string

const (
	ConnectionStatusActive   ConnectionStatus = "active"
	ConnectionStatusInactive ConnectionStatus = "inactive"
	ConnectionStatusDisabled ConnectionStatus = "disabled"
)

type Stage struct {
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Attempt describes the most recent fetch of a connection only.
type Attempt struct {
	ID               string   `json:"id"`
	APIMode          string   `json:"api_mode"`
	APIVersion       string   `json:"api_version"`
	AutomaticFetch   bool     `json:"automatic_fetch"`
	UserPresent      bool     `json:"user_present"`
	DailyRefresh     bool     `json:"daily_refresh"`
	Categorize       bool     `json:"categorize"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
	SuccessAt        string   `json:"success_at"`
	FailAt           string   `json:"fail_at"`
	FailMessage      string   `json:"fail_message"`
	FailErrorClass   string   `json:"fail_error_class"`
	Partial          bool     `json:"partial"`
	StoreCredentials bool     `json:"store_credentials"`
	IncludeNatures   []string `json:"include_natures"`
	ExcludeAccounts  []string `json:"exclude_accounts"`
	FetchScopes      []string `json:"fetch_scopes"`
	FromDate         string   `json:"from_date"`
	ToDate           string   `json:"to_date"`
	Stages           []Stage  `json:"stages"`
}

type HolderInfo struct {
	Names        []string          `json:"names"`
	Emails       []string          `json:"emails"`
	PhoneNumbers []string          `json:"phone_numbers"`
	Addresses    []json.RawMessage `json:"addresses"`
}

type Connection struct {
	ID                      string           `json:"id"`
	ProviderID              string           `json:"provider_id"`
	ProviderCode            string           `json:"provider_code"`
	ProviderName            string           `json:"provider_name"`
	CustomerID              string           `json:"customer_id"`
	CountryCode             string           `json:"country_code"`
	Status                  ConnectionStatus `json:"status"`
	Categorization          string           `json:"categorization"`
	ShowConsentConfirmation bool             `json:"show_consent_confirmation"`
	LastConsentID           string           `json:"last_consent_id"`
	LastAttempt             Attempt          `json:"last_attempt"`
	NextRefreshPossibleAt   string           `json:"next_refresh_possible_at"`
	StoreCredentials        bool             `json:"store_credentials"`
	HolderInfo              *HolderInfo      `json:"holder_info,omitempty"`
	CreatedAt               string           `json:"created_at"`
	UpdatedAt               string           `json:"updated_at"`
}

// AccountExtra holds the bank-specific identifiers. Everything the typed
// fields do not cover is kept in Raw.
type AccountExtra struct {
	AccountName     string           `json:"account_name,omitempty"`
	AccountNumber   string           `json:"account_number,omitempty"`
	IBAN            string           `json:"iban,omitempty"`
	SWIFT           string           `json:"swift,omitempty"`
	SortCode        string           `json:"sort_code,omitempty"`
	RoutingNumber   string           `json:"routing_number,omitempty"`
	BSB             string           `json:"bsb,omitempty"`
	ClientName      string           `json:"client_name,omitempty"`
	AvailableAmount *decimal.Decimal `json:"available_amount,omitempty"`
	CreditLimit     *decimal.Decimal `json:"credit_limit,omitempty"`
	Status          string           `json:"status,omitempty"`
	CardType        string           `json:"card_type,omitempty"`

	Raw map[string]any `json:"-"`
}

func (e *AccountExtra) UnmarshalJSON(b []byte) error {
	type plain AccountExtra
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*e = AccountExtra(p)
	return json.Unmarshal(b, &e.Raw)
}

func (e AccountExtra) MarshalJSON() ([]byte, error) {
	if e.Raw != nil {
		return json.Marshal(e.Raw)
	}
	type plain AccountExtra
	return json.Marshal(plain(e))
}

type Account struct {
	ID           string          `json:"id"`
	ConnectionID string          `json:"connection_id"`
	Name         string          `json:"name"`
	Nature       string          `json:"nature"`
	Balance      decimal.Decimal `json:"balance"`
	CurrencyCode string          `json:"currency_code"`
	Extra        AccountExtra    `json:"extra"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
}

type TransactionStatus string

const (
	TransactionStatusPosted  TransactionStatus = "posted"
	TransactionStatusPending TransactionStatus = "pending"
)

type TransactionExtra struct {
	Payer                string           `json:"payer,omitempty"`
	PayerInformation     string           `json:"payer_information,omitempty"`
	Payee                string           `json:"payee,omitempty"`
	PayeeInformation     string           `json:"payee_information,omitempty"`
	MCC                  string           `json:"mcc,omitempty"`
	MerchantID           string           `json:"merchant_id,omitempty"`
	OriginalAmount       *decimal.Decimal `json:"original_amount,omitempty"`
	OriginalCurrencyCode string           `json:"original_currency_code,omitempty"`
	Information          string           `json:"information,omitempty"`
	PostingDate          string           `json:"posting_date,omitempty"`
	EndToEndID           string           `json:"end_to_end_id,omitempty"`
}

// Transaction amounts are signed: positive is a credit, zero or negative a debit.
type Transaction struct {
	ID           string            `json:"id"`
	AccountID    string            `json:"account_id"`
	Duplicated   bool              `json:"duplicated"`
	Mode         string            `json:"mode"`
	Status       TransactionStatus `json:"status"`
	MadeOn       string            `json:"made_on"`
	Amount       decimal.Decimal   `json:"amount"`
	CurrencyCode string            `json:"currency_code"`
	Description  string            `json:"description"`
	Category     string            `json:"category"`
	Extra        TransactionExtra  `json:"extra"`
	CreatedAt    string            `json:"created_at"`
	UpdatedAt    string            `json:"updated_at"`
}

type ConnectSession struct {
	ConnectURL string `json:"connect_url"`
	ExpiresAt  string `json:"expires_at"`
}

type Consent struct {
	Scopes     []string `json:"scopes"`
	FromDate   string   `json:"from_date,omitempty"`
	ToDate     string   `json:"to_date,omitempty"`
	PeriodDays *int     `json:"period_days,omitempty"`
}

type AttemptRequest struct {
	ReturnConnectionID bool     `json:"return_connection_id"`
	ReturnErrorClass   bool     `json:"return_error_class"`
	FetchScopes        []string `json:"fetch_scopes"`
	IncludeNatures     []string `json:"include_natures,omitempty"`
	ExcludeAccounts    []string `json:"exclude_accounts,omitempty"`
	FromDate           string   `json:"from_date,omitempty"`
	ToDate             string   `json:"to_date,omitempty"`
	Categorize         bool     `json:"categorize"`
	StoreCredentials   bool     `json:"store_credentials"`
}

// ConnectSessionRequest is the fully populated wire body of /connections/connect.
type ConnectSessionRequest struct {
	CustomerID              string         `json:"customer_id"`
	Consent                 Consent        `json:"consent"`
	Attempt                 AttemptRequest `json:"attempt"`
	Theme                   string         `json:"theme"`
	Locale                  string         `json:"locale"`
	ReturnTo                string         `json:"return_to"`
	ProviderModes           []string       `json:"provider_modes,omitempty"`
	CountryCodes            []string       `json:"country_codes,omitempty"`
	ProviderCode            string         `json:"provider_code,omitempty"`
	DisableProviderSearch   bool           `json:"disable_provider_search,omitempty"`
	LostConnectionNotify    bool           `json:"lost_connection_notify,omitempty"`
	CredentialsStrategy     string         `json:"credentials_strategy,omitempty"`
	IncludeFakeProviders    bool           `json:"include_fake_providers"`
	ShowConsentConfirmation bool           `json:"show_consent_confirmation"`
}

type TransactionQuery struct {
	FromID   string
	FromDate string
	ToDate   string
}

type RefreshOptions struct {
	Categorize      *bool    `json:"categorize,omitempty"`
	FromDate        string   `json:"from_date,omitempty"`
	ToDate          string   `json:"to_date,omitempty"`
	IncludeNatures  []string `json:"include_natures,omitempty"`
	ExcludeAccounts []string `json:"exclude_accounts,omitempty"`
}

type RefreshResult struct {
	AttemptID string `json:"attempt_id"`
}

type RemoveResult struct {
	ID      string `json:"id"`
	Removed bool   `json:"removed"`
}

type CustomerResponse struct {
	Data Customer `json:"data"`
}

type CustomerListResponse struct {
	Data []Customer `json:"data"`
	Meta Meta       `json:"meta"`
}

type ConnectSessionResponse struct {
	Data ConnectSession `json:"data"`
}

type ConnectionResponse struct {
	Data Connection `json:"data"`
}

type ConnectionListResponse struct {
	Data []Connection `json:"data"`
	Meta Meta         `json:"meta"`
}

type AccountListResponse struct {
	Data []Account `json:"data"`
	Meta Meta      `json:"meta"`
}

type TransactionListResponse struct {
	Data []Transaction `json:"data"`
	Meta Meta          `json:"meta"`
}

type RefreshResponse struct {
	Data RefreshResult `json:"data"`
}

type RemoveResponse struct {
	Data RemoveResult `json:"data"`
}

// DateLayout is the YYYY-MM-DD form used by from_date / to_date.
const DateLayout = "2006-01-02"
