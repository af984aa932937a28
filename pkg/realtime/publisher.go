package realtime

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/aquacentre-api/pkg/jobs"
)

// Publisher delivers events to the local hub immediately and to other
// instances asynchronously through the relay with retries.
type Publisher struct {
	hub    *Hub
	relay  *RedisRelay
	queue  *jobs.Queue
	logger *zap.Logger
	now    func() time.Time
}

// PublisherConfig tunes relay publication.
type PublisherConfig struct {
	Workers int
	Retries int
	Logger  *zap.Logger
}

// NewPublisher builds a publisher. relay may be nil for single instance deployments.
func NewPublisher(hub *Hub, relay *RedisRelay, cfg PublisherConfig) *Publisher {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	p := &Publisher{hub: hub, relay: relay, logger: cfg.Logger, now: time.Now}
	if relay != nil {
		p.queue = jobs.NewQueue("realtime-relay", p.relayJob, jobs.QueueConfig{
			Workers:    cfg.Workers,
			MaxRetries: cfg.Retries,
			Logger:     cfg.Logger,
		})
	}
	return p
}

// Start launches the relay workers.
func (p *Publisher) Start(ctx context.Context) {
	if p.queue != nil {
		p.queue.Start(ctx)
	}
}

// Stop drains the relay workers.
func (p *Publisher) Stop() {
	if p.queue != nil {
		p.queue.Stop()
	}
}

// Publish stamps and distributes e. It never blocks on the network.
func (p *Publisher) Publish(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = p.now().UTC()
	}
	p.hub.Broadcast(e)
	if p.queue == nil {
		return
	}
	if err := p.queue.TryEnqueue(jobs.Job{ID: e.RecordID, Kind: e.Table, Payload: e}); err != nil {
		p.logger.Warn("change event not relayed", zap.String("table", e.Table), zap.String("record_id", e.RecordID), zap.Error(err))
	}
}

func (p *Publisher) relayJob(ctx context.Context, job jobs.Job) error {
	e, ok := job.Payload.(Event)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	return p.relay.Publish(ctx, e)
}
