// internal/consumer/consumer.go
package consumer

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"dataservices/internal/worker"
)

// Consumer holds control channels and metadata for a running queue consumer
type Consumer struct {
	QueueName   string
	Channel     *amqp.Channel
	StopChan    chan struct{}
	DoneChan    chan struct{}
	ConsumerTag string
	Pool        *worker.WorkerPool

	logger *zap.Logger
}

// StartConsumer consumes queueName and hands deliveries to a pool of
// workerCount goroutines running handler.
func StartConsumer(conn *amqp.Connection, queueName string, workerCount int, handler worker.HandlerFunc, logger *zap.Logger) (*Consumer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("queue %s: failed to open channel: %w", queueName, err)
	}
	if err := ch.Qos(2*max(workerCount, 1), 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("queue %s: failed to set prefetch: %w", queueName, err)
	}

	consumerTag := "consumer-" + uuid.NewString()
	msgs, err := ch.Consume(
		queueName,
		consumerTag,
		false, // autoAck: false to handle manually
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("queue %s: failed to start consuming: %w", queueName, err)
	}

	c := &Consumer{
		QueueName:   queueName,
		Channel:     ch,
		StopChan:    make(chan struct{}),
		DoneChan:    make(chan struct{}),
		ConsumerTag: consumerTag,
		Pool:        worker.NewWorkerPool(queueName, workerCount, handler, logger),
		logger:      logger,
	}

	jobs := make(chan amqp.Delivery)
	c.Pool.Start(jobs)
	go c.consumeLoop(msgs, jobs)

	logger.Info("Started consumer", zap.String("queue", queueName), zap.Int("workers", workerCount))
	return c, nil
}

// consumeLoop forwards deliveries to the pool until StopChan is closed
func (c *Consumer) consumeLoop(msgs <-chan amqp.Delivery, jobs chan<- amqp.Delivery) {
	defer func() {
		close(jobs)
		c.Pool.Wait()
		close(c.DoneChan)
	}()

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn("Delivery channel closed", zap.String("queue", c.QueueName))
				return
			}
			select {
			case jobs <- msg:
			case <-c.StopChan:
				_ = msg.Nack(false, true)
				return
			}

		case <-c.StopChan:
			c.logger.Info("Stopping consumer", zap.String("queue", c.QueueName))
			_ = c.Channel.Cancel(c.ConsumerTag, false)
			return
		}
	}
}

// Stop signals the consumer to stop and waits for in-flight work to finish
func (c *Consumer) Stop() {
	close(c.StopChan)
	<-c.DoneChan
	_ = c.Channel.Close()
	c.logger.Info("Stopped consumer", zap.String("queue", c.QueueName))
}
