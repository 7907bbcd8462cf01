package messaging

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rl1809/eco-bazaar/internal/core/domain"
	"github.com/rl1809/eco-bazaar/internal/metrics"
	"github.com/rl1809/eco-bazaar/internal/port"
)

const (
	defaultPublishTimeout = 5 * time.Second
	defaultRetries        = 3
)

// Dispatcher drains the order event queue with a fixed pool of workers.
// Delivery is best effort: an event that still fails after the retries is
// logged and counted, the order itself is already committed.
type Dispatcher struct {
	publisher port.EventPublisher
	log       *slog.Logger
	workers   int
	timeout   time.Duration
	retries   int
	backoff   time.Duration
}

func NewDispatcher(publisher port.EventPublisher, workers int, log *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		publisher: publisher,
		log:       log,
		workers:   workers,
		timeout:   defaultPublishTimeout,
		retries:   defaultRetries,
		backoff:   200 * time.Millisecond,
	}
}

// Start launches the workers and returns a WaitGroup that completes once the
// queue is closed and drained.
func (d *Dispatcher) Start(queue <-chan domain.OrderPlaced) *sync.WaitGroup {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			d.workerLoop(id, queue)
		}(i)
	}
	d.log.Info("started event workers", "count", d.workers)
	return &wg
}

func (d *Dispatcher) workerLoop(id int, queue <-chan domain.OrderPlaced) {
	for event := range queue {
		if err := d.publish(event); err != nil {
			metrics.OrderEvents.WithLabelValues("failed").Inc()
			d.log.Error("failed to publish order event",
				"worker", id,
				"order_id", event.OrderID,
				"event_id", event.EventID,
				"error", err,
			)
			continue
		}
		metrics.OrderEvents.WithLabelValues("published").Inc()
	}
}

func (d *Dispatcher) publish(event domain.OrderPlaced) error {
	var err error
	for attempt := 0; attempt <= d.retries; attempt++ {
		if attempt > 0 {
			time.Sleep(d.backoff * time.Duration(attempt))
		}

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err = d.publisher.PublishOrderPlaced(ctx, event)
		cancel()
		if err == nil {
			return nil
		}
	}
	return err
}
