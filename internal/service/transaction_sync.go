package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/scanpay/scanpay-api/internal/logging"
	"github.com/scanpay/scanpay-api/internal/saltedge"
)

const (
	CallbackLookback = 24 * time.Hour
	RefreshLookback  = 7 * 24 * time.Hour
)

type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// DetectedPayment is one classified transaction. Amount is always
// non-negative; Direction carries the sign.
type DetectedPayment struct {
	Direction     Direction
	ConnectionID  string
	AccountID     string
	TransactionID string
	Counterparty  string
	Amount        decimal.Decimal
	Currency      string
	MadeOn        string
	Description   string
	Status        saltedge.TransactionStatus
}

type PaymentObserver interface {
	PaymentDetected(ctx context.Context, p DetectedPayment)
}

type syncMetrics interface {
	ObserveSyncAccountError()
}

type AccountSyncError struct {
	AccountID string `json:"account_id"`
	Message   string `json:"error"`
}

type SyncResult struct {
	ConnectionID string             `json:"connection_id"`
	FromDate     string             `json:"from_date"`
	Accounts     int                `json:"accounts"`
	Transactions int                `json:"transactions"`
	Incoming     int                `json:"incoming"`
	Outgoing     int                `json:"outgoing"`
	Errors       []AccountSyncError `json:"errors,omitempty"`
}

// Classify applies the sign convention: a strictly positive amount is money
// received, anything else is money sent.
func Classify(tx saltedge.Transaction) DetectedPayment {
	p := DetectedPayment{
		AccountID:     tx.AccountID,
		TransactionID: tx.ID,
		Currency:      tx.CurrencyCode,
		MadeOn:        tx.MadeOn,
		Description:   tx.Description,
		Status:        tx.Status,
	}
	if tx.Amount.IsPositive() {
		p.Direction = DirectionIncoming
		p.Counterparty = tx.Extra.Payer
		p.Amount = tx.Amount
	} else {
		p.Direction = DirectionOutgoing
		p.Counterparty = tx.Extra.Payee
		p.Amount = tx.Amount.Abs()
	}
	return p
}

type TransactionSync struct {
	client   transactionSource
	observer PaymentObserver
	metrics  syncMetrics
	now      func() time.Time
}

func NewTransactionSync(client transactionSource, observer PaymentObserver, metrics syncMetrics) *TransactionSync {
	return &TransactionSync{
		client:   client,
		observer: observer,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Sync pulls transactions for every account of the connection made on or
// after today minus lookback. Accounts are walked one at a time; a failing
// account is recorded in the result and does not stop the others. Only a
// failure to list the accounts is returned as an error.
func (s *TransactionSync) Sync(ctx context.Context, connectionID string, lookback time.Duration) (*SyncResult, error) {
	log := logging.FromContext(ctx).With("connection_id", connectionID)

	accounts, err := s.client.ListAccounts(ctx, connectionID)
	if err != nil {
		return nil, fmt.Errorf("Sync: list accounts: %w", err)
	}

	result := &SyncResult{
		ConnectionID: connectionID,
		FromDate:     s.now().UTC().Add(-lookback).Format(saltedge.DateLayout),
		Accounts:     len(accounts.Data),
	}

	for _, account := range accounts.Data {
		if err := s.syncAccount(ctx, connectionID, account.ID, result); err != nil {
			log.Error("account sync failed", "account_id", account.ID, "error", err)
			result.Errors = append(result.Errors, AccountSyncError{AccountID: account.ID, Message: err.Error()})
			if s.metrics != nil {
				s.metrics.ObserveSyncAccountError()
			}
		}
	}

	log.Info("transaction sync completed",
		"from_date", result.FromDate,
		"accounts", result.Accounts,
		"transactions", result.Transactions,
		"incoming", result.Incoming,
		"outgoing", result.Outgoing,
		"failed_accounts", len(result.Errors),
	)
	return result, nil
}

func (s *TransactionSync) syncAccount(ctx context.Context, connectionID, accountID string, result *SyncResult) error {
	query := saltedge.TransactionQuery{FromDate: result.FromDate}

	for {
		page, err := s.client.ListTransactions(ctx, connectionID, accountID, query)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}

		for _, tx := range page.Data {
			p := Classify(tx)
			p.ConnectionID = connectionID
			if p.AccountID == "" {
				p.AccountID = accountID
			}

			result.Transactions++
			if p.Direction == DirectionIncoming {
				result.Incoming++
			} else {
				result.Outgoing++
			}
			if s.observer != nil {
				s.observer.PaymentDetected(ctx, p)
			}
		}

		next := page.Meta.NextID
		if next == "" || next == query.FromID {
			return nil
		}
		query.FromID = next
	}
}

type paymentMetrics interface {
	ObservePayment(direction string)
}

// LogObserver writes every detected payment to the request logger.
type LogObserver struct {
	metrics paymentMetrics
}

func NewLogObserver(metrics paymentMetrics) *LogObserver {
	return &LogObserver{metrics: metrics}
}

func (o *LogObserver) PaymentDetected(ctx context.Context, p DetectedPayment) {
	log := logging.FromContext(ctx)

	switch p.Direction {
	case DirectionIncoming:
		log.Info("incoming payment detected",
			"connection_id", p.ConnectionID,
			"account_id", p.AccountID,
			"transaction_id", p.TransactionID,
			"payer", p.Counterparty,
			"amount", p.Amount.String(),
			"currency", p.Currency,
			"made_on", p.MadeOn,
		)
	default:
		log.Info("outgoing payment detected",
			"connection_id", p.ConnectionID,
			"account_id", p.AccountID,
			"transaction_id", p.TransactionID,
			"payee", p.Counterparty,
			"amount", p.Amount.String(),
			"currency", p.Currency,
			"made_on", p.MadeOn,
		)
	}

	if o.metrics != nil {
		o.metrics.ObservePayment(string(p.Direction))
	}
}
