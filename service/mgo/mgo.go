package mgo

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"duochat/data/mongoutil"
	"duochat/logger"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	baseBackoff = 200 * time.Millisecond
	maxBackoff  = 5 * time.Second
	healthEvery = 10 * time.Second
	failThresh  = 3
)

// MongoManager owns the process-wide mongo client. It connects in the
// background and reconnects after repeated health failures; WaitReady gates
// callers on the first successful connect, TryGetDB resolves the current
// client per call so a reconnect is picked up by every consumer.
type MongoManager struct {
	mu      sync.RWMutex
	client  *mongoutil.Client
	readyCh chan struct{} // closed exactly once, on first connect

	readyOnce sync.Once
	lastErr   atomic.Value // error
}

var globalMgr = MongoManager{readyCh: make(chan struct{})}

// StartAsync launches the connect/health cycle for the global manager. It
// runs until ctx is done.
func StartAsync(ctx context.Context, cfg *mongoutil.Config) {
	go globalMgr.run(ctx, cfg)
}

func Manager() *MongoManager {
	return &globalMgr
}

// Err returns the most recent connect/health error.
func Err() error {
	return globalMgr.Err()
}

// TryGetDB resolves the database of the globally managed client. ok is false
// while disconnected; callers treat that as a persistence failure.
func TryGetDB() (*mongo.Database, bool) {
	return globalMgr.TryGetDB()
}

func WaitReady(ctx context.Context, m *MongoManager) error {
	return m.WaitReady(ctx)
}

func (m *MongoManager) run(ctx context.Context, cfg *mongoutil.Config) {
	for {
		if !m.connect(ctx, cfg) {
			return
		}
		m.watch(ctx)

		select {
		case <-ctx.Done():
			return
		default:
			// health watch gave up on the client; reconnect
		}
	}
}

// connect retries with capped exponential backoff and jitter until a client
// is established. Returns false only when ctx ends first.
func (m *MongoManager) connect(ctx context.Context, cfg *mongoutil.Config) bool {
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		cli, err := mongoutil.NewMongoDB(ctx, cfg)
		if err == nil {
			m.mu.Lock()
			m.client = cli
			m.mu.Unlock()
			m.readyOnce.Do(func() { close(m.readyCh) })
			return true
		}
		m.lastErr.Store(err)
		logger.Warnf("[Mongo] connect attempt %d failed: %v", attempt+1, err)

		backoff := baseBackoff << attempt
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
		jitter := time.Duration(rand.Int63n(int64(backoff / 5)))

		timer := time.NewTimer(backoff - jitter/2)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		if attempt < 6 {
			attempt++
		}
	}
}

// watch pings the current client periodically and drops it after failThresh
// consecutive failures, returning so run can reconnect.
func (m *MongoManager) watch(ctx context.Context) {
	ticker := time.NewTicker(healthEvery)
	defer ticker.Stop()

	fail := 0
	for {
		select {
		case <-ctx.Done():
			m.dropClient()
			return
		case <-ticker.C:
			m.mu.RLock()
			c := m.client
			m.mu.RUnlock()
			if c == nil {
				return
			}

			if err := c.GetDB().Client().Ping(ctx, nil); err != nil {
				fail++
				m.lastErr.Store(err)
				logger.Warnf("[Mongo] health ping failed (%d/%d): %v", fail, failThresh, err)
				if fail >= failThresh {
					m.dropClient()
					return
				}
			} else {
				fail = 0
			}
		}
	}
}

func (m *MongoManager) dropClient() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		_ = m.client.GetDB().Client().Disconnect(context.Background())
		m.client = nil
	}
}

func (m *MongoManager) TryGetDB() (*mongo.Database, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.client == nil {
		return nil, false
	}
	return m.client.GetDB(), true
}

func (m *MongoManager) Err() error {
	if v := m.lastErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// WaitReady blocks until the first connect succeeds or ctx ends.
func (m *MongoManager) WaitReady(ctx context.Context) error {
	if _, ok := m.TryGetDB(); ok {
		return nil
	}
	if m.readyCh == nil {
		return fmt.Errorf("mongo manager not started")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.readyCh:
		return nil
	}
}
