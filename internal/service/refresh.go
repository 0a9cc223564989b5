package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/scanpay/scanpay-api/internal/domain"
	"github.com/scanpay/scanpay-api/internal/logging"
	"github.com/scanpay/scanpay-api/internal/saltedge"
)

type RefreshService struct {
	client connectionRefresher
	now    func() time.Time
}

func NewRefreshService(client connectionRefresher) *RefreshService {
	return &RefreshService{client: client, now: time.Now}
}

// Refresh asks the aggregator to re-fetch the last week of a connection with
// categorization on. Results arrive later through the callback.
func (s *RefreshService) Refresh(ctx context.Context, connectionID string) (*saltedge.RefreshResult, error) {
	if strings.TrimSpace(connectionID) == "" {
		return nil, fmt.Errorf("Refresh: %w", domain.ErrConnectionIDRequired)
	}

	categorize := true
	opts := saltedge.RefreshOptions{
		Categorize: &categorize,
		FromDate:   s.now().UTC().Add(-RefreshLookback).Format(saltedge.DateLayout),
	}

	resp, err := s.client.RefreshConnection(ctx, connectionID, opts)
	if err != nil {
		return nil, fmt.Errorf("Refresh: %w", err)
	}

	logging.FromContext(ctx).Info("connection refresh requested",
		"connection_id", connectionID,
		"attempt_id", resp.Data.AttemptID,
		"from_date", opts.FromDate,
	)
	return &resp.Data, nil
}
