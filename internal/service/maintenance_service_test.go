package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aquacentre-api/pkg/jobs"
)

type recordingRegistrar struct {
	specs map[string]string
	tasks map[string]jobs.Task
}

func (r *recordingRegistrar) Register(name, spec string, task jobs.Task) error {
	r.specs[name] = spec
	r.tasks[name] = task
	return nil
}

type fakeExpirer struct{ calls int }

func (f *fakeExpirer) ExpireStale(ctx context.Context) error {
	f.calls++
	return nil
}

type fakeCleaner struct {
	ttl time.Duration
	err error
}

func (f *fakeCleaner) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	f.ttl = ttl
	return []string{"receipts/u1/r1.pdf"}, f.err
}

func TestMaintenanceRegistersTasks(t *testing.T) {
	expirer := &fakeExpirer{}
	cleaner := &fakeCleaner{}
	svc := NewMaintenanceService(expirer, cleaner, nil, 48*time.Hour, nil)
	reg := &recordingRegistrar{specs: map[string]string{}, tasks: map[string]jobs.Task{}}

	require.NoError(t, svc.Register(reg, MaintenanceSpecs{ExpirePayments: "@every 15m", PurgeReceipts: "@daily"}))
	assert.Equal(t, "@every 15m", reg.specs["expire-payments"])
	assert.Equal(t, "@daily", reg.specs["purge-receipts"])
	assert.Equal(t, "", reg.specs["refresh-templates"])

	require.NoError(t, reg.tasks["expire-payments"](context.Background()))
	assert.Equal(t, 1, expirer.calls)
	require.NoError(t, reg.tasks["purge-receipts"](context.Background()))
	assert.Equal(t, 48*time.Hour, cleaner.ttl)
	require.NoError(t, reg.tasks["refresh-templates"](context.Background()))
}

func TestPurgeReceiptsPropagatesError(t *testing.T) {
	svc := NewMaintenanceService(nil, &fakeCleaner{err: errors.New("disk")}, nil, 0, nil)
	assert.Error(t, svc.PurgeReceipts(context.Background()))
	assert.NoError(t, svc.ExpirePayments(context.Background()))
}
