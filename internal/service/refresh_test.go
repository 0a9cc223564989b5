package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanpay/scanpay-api/internal/domain"
	"github.com/scanpay/scanpay-api/internal/saltedge"
)

type fakeRefresher struct {
	connectionID string
	opts         saltedge.RefreshOptions
	calls        int
}

func (f *fakeRefresher) RefreshConnection(_ context.Context, connectionID string, opts saltedge.RefreshOptions) (*saltedge.RefreshResponse, error) {
	f.calls++
	f.connectionID = connectionID
	f.opts = opts
	return &saltedge.RefreshResponse{Data: saltedge.RefreshResult{AttemptID: "att-1"}}, nil
}

func TestRefresh(t *testing.T) {
	fake := &fakeRefresher{}
	svc := NewRefreshService(fake)
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }

	res, err := svc.Refresh(context.Background(), "conn-1")
	require.NoError(t, err)

	assert.Equal(t, "att-1", res.AttemptID)
	assert.Equal(t, "conn-1", fake.connectionID)
	require.NotNil(t, fake.opts.Categorize)
	assert.True(t, *fake.opts.Categorize)
	assert.Equal(t, "2024-03-08", fake.opts.FromDate)
}

func TestRefresh_RequiresConnectionID(t *testing.T) {
	fake := &fakeRefresher{}
	_, err := NewRefreshService(fake).Refresh(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrConnectionIDRequired)
	assert.Zero(t, fake.calls)
}
