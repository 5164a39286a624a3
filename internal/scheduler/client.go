package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"funnel_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	dispatchMaxRetry = 5
	dispatchTimeout  = 3 * time.Minute
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

type Client struct {
	client           enqueuer
	queue            string
	abandonmentDelay time.Duration
}

func NewClient(cfg config.SchedulerConfig, abandonmentDelay time.Duration) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return newClient(asynq.NewClient(opt), cfg.GetAsynqQueueName(), abandonmentDelay), nil
}

func newClient(e enqueuer, queue string, abandonmentDelay time.Duration) *Client {
	if queue == "" {
		queue = "default"
	}
	if abandonmentDelay <= 0 {
		abandonmentDelay = 45 * time.Minute
	}
	return &Client{client: e, queue: queue, abandonmentDelay: abandonmentDelay}
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueDispatch queues a notification dispatch for a lead. A dispatch
// already waiting for the same lead absorbs the new one.
func (c *Client) EnqueueDispatch(ctx context.Context, leadID uuid.UUID, trigger string) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewNotificationDispatchTask(NotificationDispatchPayload{LeadID: leadID.String(), Trigger: trigger})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.TaskID("dispatch:"+leadID.String()),
		asynq.MaxRetry(dispatchMaxRetry),
		asynq.Timeout(dispatchTimeout),
	)
	return ignoreDuplicate(err)
}

// ScheduleAbandonmentCheck arranges a dispatch for a lead after the
// abandonment delay, in case no tab trigger ever reaches the server.
func (c *Client) ScheduleAbandonmentCheck(ctx context.Context, leadID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewLeadAbandonmentCheckTask(LeadAbandonmentCheckPayload{LeadID: leadID.String()})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.ProcessIn(c.abandonmentDelay),
		asynq.TaskID("abandonment:"+leadID.String()),
		asynq.MaxRetry(dispatchMaxRetry),
		asynq.Timeout(dispatchTimeout),
	)
	return ignoreDuplicate(err)
}

func ignoreDuplicate(err error) error {
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
