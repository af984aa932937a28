package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/aquacentre-api/pkg/jobs"
)

type receiptCleaner interface {
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type paymentExpirer interface {
	ExpireStale(ctx context.Context) error
}

type taskRegistrar interface {
	Register(name, spec string, task jobs.Task) error
}

// MaintenanceSpecs are the cron specs of periodic tasks; an empty spec disables a task.
type MaintenanceSpecs struct {
	ExpirePayments   string
	PurgeReceipts    string
	RefreshTemplates string
}

// MaintenanceService groups periodic housekeeping.
type MaintenanceService struct {
	payments  paymentExpirer
	receipts  receiptCleaner
	cache     *CacheService
	retention time.Duration
	logger    *zap.Logger
}

// NewMaintenanceService constructs the housekeeping tasks.
func NewMaintenanceService(payments paymentExpirer, receipts receiptCleaner, cache *CacheService, retention time.Duration, logger *zap.Logger) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &MaintenanceService{payments: payments, receipts: receipts, cache: cache, retention: retention, logger: logger}
}

// Register schedules every task on r.
func (s *MaintenanceService) Register(r taskRegistrar, specs MaintenanceSpecs) error {
	if err := r.Register("expire-payments", specs.ExpirePayments, s.ExpirePayments); err != nil {
		return err
	}
	if err := r.Register("purge-receipts", specs.PurgeReceipts, s.PurgeReceipts); err != nil {
		return err
	}
	return r.Register("refresh-templates", specs.RefreshTemplates, s.RefreshTemplates)
}

// ExpirePayments marks abandoned checkouts expired.
func (s *MaintenanceService) ExpirePayments(ctx context.Context) error {
	if s.payments == nil {
		return nil
	}
	return s.payments.ExpireStale(ctx)
}

// PurgeReceipts deletes rendered receipts older than the retention period.
func (s *MaintenanceService) PurgeReceipts(_ context.Context) error {
	if s.receipts == nil {
		return nil
	}
	removed, err := s.receipts.CleanupOlderThan(s.retention)
	if err != nil {
		return err
	}
	if len(removed) > 0 {
		s.logger.Info("purged receipts", zap.Int("count", len(removed)))
	}
	return nil
}

// RefreshTemplates drops cached schedule templates so the next read reloads them.
func (s *MaintenanceService) RefreshTemplates(ctx context.Context) error {
	return s.cache.Invalidate(ctx, "schedules:*")
}
