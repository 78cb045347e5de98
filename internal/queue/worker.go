package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	maxAttempts    = 3
	retryBaseDelay = 2 * time.Second
	retryHeader    = "x-attempts"
)

// Sender delivers one email job. Implemented by the SMTP mailer; tests
// substitute a recorder.
type Sender interface {
	Send(job EmailJob) error
}

// Worker consumes email jobs and hands them to the Sender. It runs a
// reconnect loop with backoff and never panics; a job that keeps failing
// past maxAttempts is dropped with a log line rather than poisoning the
// queue.
type Worker struct {
	url    string
	sender Sender
}

func NewWorker(url string, sender Sender) *Worker {
	return &Worker{url: url, sender: sender}
}

// Run connects to the broker and consumes until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := amqp.Dial(w.url)
		if err != nil {
			log.Printf("email-worker: failed to dial broker: %v; retrying in %s", err, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := w.consumeLoop(ctx, conn); err != nil {
			log.Printf("email-worker: consume loop ended: %v; reconnecting", err)
		}
		_ = conn.Close()
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		log.Printf("email-worker: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(emailQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(emailQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			w.handle(ctx, ch, d)
		}
	}
}

// handle processes one delivery. Failures are retried with exponential
// delay by republishing the job with an incremented attempt header; the
// original delivery is always acked so the broker never sees a tight
// redelivery loop.
func (w *Worker) handle(ctx context.Context, ch *amqp.Channel, d amqp.Delivery) {
	var job EmailJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		log.Printf("email-worker: drop malformed job: %v", err)
		_ = d.Ack(false)
		return
	}

	if err := w.sender.Send(job); err == nil {
		_ = d.Ack(false)
		return
	} else {
		attempts := attemptCount(d) + 1
		if attempts >= maxAttempts {
			log.Printf("email-worker: job %s (%s) failed %d times, dropping: %v", job.JobID, job.Kind, attempts, err)
			_ = d.Ack(false)
			return
		}
		delay := retryBaseDelay << (attempts - 1)
		log.Printf("email-worker: job %s (%s) failed (attempt %d/%d), retrying in %s: %v",
			job.JobID, job.Kind, attempts, maxAttempts, delay, err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			_ = d.Nack(false, true) // requeue for the next worker
			return
		}
		pub := amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    job.JobID,
			Timestamp:    time.Now().UTC(),
			Headers:      amqp.Table{retryHeader: int32(attempts)},
			Body:         d.Body,
		}
		if err := ch.PublishWithContext(ctx, "", emailQueueName, false, false, pub); err != nil {
			log.Printf("email-worker: requeue job %s failed: %v", job.JobID, err)
			_ = d.Nack(false, true)
			return
		}
		_ = d.Ack(false)
	}
}

func attemptCount(d amqp.Delivery) int {
	if d.Headers == nil {
		return 0
	}
	switch v := d.Headers[retryHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}
