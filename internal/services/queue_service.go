package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// QueueTask is one HTTP-invocation task. The dispatcher delivers it to the
// target URL at least once; consumers must tolerate redelivery.
type QueueTask struct {
	ID         string            `json:"id"`
	Queue      string            `json:"queue"`
	Method     string            `json:"method"`
	URL        string            `json:"url"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       []byte            `json:"body,omitempty"`
	Attempts   int               `json:"attempts"`
	EnqueuedAt time.Time         `json:"enqueuedAt"`
}

// listCommands is the subset of Redis commands the queue uses.
type listCommands interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BLMove(ctx context.Context, source, destination, srcpos, destpos string, timeout time.Duration) *redis.StringCmd
	LMove(ctx context.Context, source, destination, srcpos, destpos string) *redis.StringCmd
	LRem(ctx context.Context, key string, count int64, value interface{}) *redis.IntCmd
}

// QueueService pushes tasks onto per-queue Redis lists and runs dispatcher
// loops that deliver them over HTTP.
//
// Each pop moves the task into a per-queue processing list; it is removed only
// after a terminal outcome, and anything left there (a crash mid-delivery) is
// drained back onto the queue when a dispatcher next starts. Delivery rules:
// 2xx acknowledges the task, 4xx drops it (the payload will never get better),
// anything else schedules a requeue with backoff up to maxAttempts.
type QueueService struct {
	client      listCommands
	httpClient  *http.Client
	logger      *logrus.Logger
	maxAttempts int
	backoff     func(attempt int) time.Duration
}

const (
	queueKeyPrefix  = "tasks:"
	dispatchTimeout = 10 * time.Minute
	popTimeout      = 5 * time.Second
)

func queueKey(queue string) string {
	return queueKeyPrefix + queue
}

func processingKey(queue string) string {
	return queueKey(queue) + ":processing"
}

// NewQueueService creates a queue service backed by the given Redis connection.
func NewQueueService(redisService *RedisService, maxAttempts int) *QueueService {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &QueueService{
		client:      redisService.Client(),
		httpClient:  &http.Client{Timeout: dispatchTimeout},
		logger:      logger,
		maxAttempts: maxAttempts,
		backoff:     retryBackoff,
	}
}

// Enqueue appends one task to the named queue. The body is delivered verbatim
// as the request body with a JSON content type.
func (q *QueueService) Enqueue(ctx context.Context, queue, method, url string, body []byte) (string, error) {
	task := QueueTask{
		ID:         uuid.NewString(),
		Queue:      queue,
		Method:     method,
		URL:        url,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
		EnqueuedAt: time.Now().UTC(),
	}

	if err := q.push(ctx, task); err != nil {
		return "", err
	}

	q.logger.WithFields(logrus.Fields{
		"task_id": task.ID,
		"queue":   queue,
		"url":     url,
	}).Info("Task enqueued")

	return task.ID, nil
}

func (q *QueueService) push(ctx context.Context, task QueueTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}
	if err := q.client.LPush(ctx, queueKey(task.Queue), data).Err(); err != nil {
		return fmt.Errorf("failed to push task: %w", err)
	}
	return nil
}

// StartDispatcher runs the delivery loop for one queue until ctx is cancelled.
// Call it in its own goroutine, one per queue.
func (q *QueueService) StartDispatcher(ctx context.Context, queue string) {
	if recovered := q.recoverProcessing(ctx, queue); recovered > 0 {
		q.logger.WithFields(logrus.Fields{
			"queue": queue,
			"count": recovered,
		}).Warn("Recovered in-flight tasks from previous run")
	}

	q.logger.WithFields(logrus.Fields{"queue": queue}).Info("Dispatcher started")

	for {
		if ctx.Err() != nil {
			q.logger.WithFields(logrus.Fields{"queue": queue}).Info("Dispatcher stopped")
			return
		}

		raw, err := q.client.BLMove(ctx, queueKey(queue), processingKey(queue), "RIGHT", "LEFT", popTimeout).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			q.logger.WithFields(logrus.Fields{
				"queue": queue,
				"error": err.Error(),
			}).Error("Queue pop failed")
			time.Sleep(time.Second)
			continue
		}

		var task QueueTask
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			q.logger.WithFields(logrus.Fields{
				"queue": queue,
				"error": err.Error(),
			}).Error("Dropping undecodable task")
			q.ack(context.WithoutCancel(ctx), queue, raw)
			continue
		}

		q.dispatch(ctx, task, raw)
	}
}

// recoverProcessing drains tasks a previous dispatcher left in the processing
// list back onto the queue.
func (q *QueueService) recoverProcessing(ctx context.Context, queue string) int {
	count := 0
	for {
		_, err := q.client.LMove(ctx, processingKey(queue), queueKey(queue), "RIGHT", "LEFT").Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) {
				q.logger.WithFields(logrus.Fields{
					"queue": queue,
					"error": err.Error(),
				}).Error("Failed to recover processing list")
			}
			return count
		}
		count++
	}
}

// ack removes one delivered task from the processing list. A failed ack leaves
// the entry behind; the recovery drain redelivers it.
func (q *QueueService) ack(ctx context.Context, queue, raw string) {
	if err := q.client.LRem(ctx, processingKey(queue), 1, raw).Err(); err != nil {
		q.logger.WithFields(logrus.Fields{
			"queue": queue,
			"error": err.Error(),
		}).Warn("Failed to ack task")
	}
}

// dispatch delivers one task. raw is the exact list entry, kept for the ack.
// Acks and requeues run on a non-cancellable context so shutdown mid-delivery
// re-enqueues instead of dropping.
func (q *QueueService) dispatch(ctx context.Context, task QueueTask, raw string) {
	task.Attempts++
	ackCtx := context.WithoutCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, task.Method, task.URL, bytes.NewReader(task.Body))
	if err != nil {
		q.logger.WithFields(logrus.Fields{
			"task_id": task.ID,
			"error":   err.Error(),
		}).Error("Dropping task with invalid request")
		dispatchDrops.WithLabelValues(task.Queue).Inc()
		q.ack(ackCtx, task.Queue, raw)
		return
	}
	for k, v := range task.Headers {
		req.Header.Set(k, v)
	}

	resp, err := q.httpClient.Do(req)
	if err != nil {
		q.retry(ackCtx, task, raw, fmt.Sprintf("request failed: %v", err))
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		q.logger.WithFields(logrus.Fields{
			"task_id":  task.ID,
			"queue":    task.Queue,
			"attempts": task.Attempts,
			"status":   resp.StatusCode,
		}).Info("Task delivered")
		q.ack(ackCtx, task.Queue, raw)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		dispatchDrops.WithLabelValues(task.Queue).Inc()
		q.logger.WithFields(logrus.Fields{
			"task_id": task.ID,
			"queue":   task.Queue,
			"status":  resp.StatusCode,
		}).Warn("Dropping task on client error")
		q.ack(ackCtx, task.Queue, raw)
	default:
		q.retry(ackCtx, task, raw, fmt.Sprintf("status %d", resp.StatusCode))
	}
}

// retry schedules a delayed requeue off the dispatcher loop, so one failing
// task does not stall delivery of the rest of the queue. The original entry
// stays in the processing list until the requeued copy is pushed; a crash
// during the delay is recovered by the startup drain.
func (q *QueueService) retry(ctx context.Context, task QueueTask, raw, reason string) {
	if task.Attempts >= q.maxAttempts {
		dispatchDrops.WithLabelValues(task.Queue).Inc()
		q.logger.WithFields(logrus.Fields{
			"task_id":  task.ID,
			"queue":    task.Queue,
			"attempts": task.Attempts,
			"reason":   reason,
		}).Error("Task exhausted retries")
		q.ack(ctx, task.Queue, raw)
		return
	}

	delay := q.backoff(task.Attempts)
	q.logger.WithFields(logrus.Fields{
		"task_id":  task.ID,
		"queue":    task.Queue,
		"attempts": task.Attempts,
		"delay":    delay.String(),
		"reason":   reason,
	}).Warn("Task requeue scheduled")

	time.AfterFunc(delay, func() {
		bg := context.Background()
		if err := q.push(bg, task); err != nil {
			q.logger.WithFields(logrus.Fields{
				"task_id": task.ID,
				"error":   err.Error(),
			}).Error("Failed to requeue task, leaving it in the processing list")
			return
		}
		q.ack(bg, task.Queue, raw)
	})
}

// retryBackoff returns the delay before the given attempt is requeued.
// 2s, 4s, 8s... capped at one minute.
func retryBackoff(attempt int) time.Duration {
	d := time.Duration(1<<uint(attempt)) * time.Second
	if d > time.Minute {
		return time.Minute
	}
	return d
}
