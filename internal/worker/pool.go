package worker

import (
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"dataservices/internal/metrics"
)

// HandlerFunc processes one delivery. A returned error rejects the delivery
// without requeue.
type HandlerFunc func(msg amqp.Delivery) error

// WorkerPool drains a delivery channel with a fixed number of goroutines.
type WorkerPool struct {
	name    string
	workers int
	handle  HandlerFunc
	logger  *zap.Logger

	wg sync.WaitGroup
}

func NewWorkerPool(name string, workerCount int, handle HandlerFunc, logger *zap.Logger) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerPool{
		name:    name,
		workers: workerCount,
		handle:  handle,
		logger:  logger,
	}
}

// Start launches the workers. They exit when msgs is closed.
func (wp *WorkerPool) Start(msgs <-chan amqp.Delivery) {
	wp.logger.Info("Starting worker pool", zap.String("pool", wp.name), zap.Int("workers", wp.workers))

	for range wp.workers {
		wp.wg.Add(1)
		go func() {
			defer wp.wg.Done()
			metrics.WorkerActive.Inc()
			defer metrics.WorkerActive.Dec()

			for msg := range msgs {
				wp.process(msg)
			}
		}()
	}
}

// Wait blocks until every worker has exited.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) process(msg amqp.Delivery) {
	if err := wp.handle(msg); err != nil {
		wp.logger.Warn("Failed to process message",
			zap.String("pool", wp.name),
			zap.String("routing_key", msg.RoutingKey),
			zap.Error(err))
		_ = msg.Reject(false)
		metrics.WorkerProcessed.WithLabelValues("rejected").Inc()
		return
	}
	_ = msg.Ack(false)
	metrics.WorkerProcessed.WithLabelValues("ok").Inc()
}
