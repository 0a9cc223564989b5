package service

import (
	"context"
	"time"

	"github.com/scanpay/scanpay-api/internal/captcha"
	"github.com/scanpay/scanpay-api/internal/domain"
	"github.com/scanpay/scanpay-api/internal/mailer"
	"github.com/scanpay/scanpay-api/internal/saltedge"
)

type connectSessionCreator interface {
	CreateConnectSession(ctx context.Context, req saltedge.ConnectSessionRequest) (*saltedge.ConnectSessionResponse, error)
}

type accountLister interface {
	ListAccounts(ctx context.Context, connectionID string) (*saltedge.AccountListResponse, error)
}

type transactionSource interface {
	accountLister
	ListTransactions(ctx context.Context, connectionID, accountID string, opts saltedge.TransactionQuery) (*saltedge.TransactionListResponse, error)
}

type connectionRefresher interface {
	RefreshConnection(ctx context.Context, connectionID string, opts saltedge.RefreshOptions) (*saltedge.RefreshResponse, error)
}

type transactionSyncer interface {
	Sync(ctx context.Context, connectionID string, lookback time.Duration) (*SyncResult, error)
}

type waitlistRepository interface {
	Create(ctx context.Context, entry *domain.WaitlistEntry) error
}

type emailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
	Enabled() bool
}

type captchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (captcha.Result, error)
}

type modelRunner interface {
	Run(ctx context.Context, model string, input map[string]any) (string, error)
}
