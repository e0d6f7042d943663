package services

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// PollInterval is how often the unread count is re-checked.
const PollInterval = 5 * time.Minute

// UnreadSource is the subset of the notification manager the poller needs.
type UnreadSource interface {
	RequestPermission(ctx context.Context, userID string) bool
	UnreadCount(ctx context.Context, userID string) int
}

// Poller periodically re-checks a user's unread notification count and
// invokes the callback when the count has increased since the last poll.
// One poller serves one user session; Stop must be called when the session
// ends so no timer is left behind.
//
// The last observed count is kept in Redis when a client is available, so a
// restarted session does not re-signal notifications the user already saw.
// Without Redis the state is in-memory only.
type Poller struct {
	source     UnreadSource
	redis      *redis.Client
	onIncrease func(count int)
	log        *logrus.Entry

	// Interval may be overridden before Start. Defaults to PollInterval.
	Interval time.Duration

	mu        sync.Mutex
	lastCount int
	done      chan struct{}
	started   bool
}

func NewPoller(source UnreadSource, redisClient *redis.Client, onIncrease func(count int)) *Poller {
	return &Poller{
		source:     source,
		redis:      redisClient,
		onIncrease: onIncrease,
		log:        logrus.WithField("service", "poller"),
		Interval:   PollInterval,
	}
}

// Start requests permission once, records the initial unread count, and
// launches the polling loop. Calling Start on a running poller is a no-op.
func (p *Poller) Start(ctx context.Context, userID string) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	p.source.RequestPermission(ctx, userID)
	p.setLastCount(ctx, userID, p.source.UnreadCount(ctx, userID))

	go p.loop(ctx, userID, done)
}

// Stop cancels the polling loop. Safe to call more than once.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.started = false
	close(p.done)
}

func (p *Poller) loop(ctx context.Context, userID string, done <-chan struct{}) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx, userID)
		}
	}
}

func (p *Poller) poll(ctx context.Context, userID string) {
	count := p.source.UnreadCount(ctx, userID)
	last := p.getLastCount(ctx, userID)

	if count > last && p.onIncrease != nil {
		p.onIncrease(count)
	}
	p.setLastCount(ctx, userID, count)
}

func (p *Poller) getLastCount(ctx context.Context, userID string) int {
	if p.redis != nil {
		value, err := p.redis.Get(ctx, unreadCountKey(userID)).Result()
		if err == nil {
			if count, convErr := strconv.Atoi(value); convErr == nil {
				return count
			}
		} else if err != redis.Nil {
			p.log.WithField("userId", userID).WithError(err).Warn("failed to read cached unread count")
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastCount
}

func (p *Poller) setLastCount(ctx context.Context, userID string, count int) {
	p.mu.Lock()
	p.lastCount = count
	p.mu.Unlock()

	if p.redis != nil {
		if err := p.redis.Set(ctx, unreadCountKey(userID), count, 24*time.Hour).Err(); err != nil {
			p.log.WithField("userId", userID).WithError(err).Warn("failed to cache unread count")
		}
	}
}

func unreadCountKey(userID string) string {
	return "notifications:unread:" + userID
}
