// Package checkout runs multi-statement operations on a single pooled
// connection and warns when that connection is held for too long.
package checkout

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultThreshold is how long a connection may stay checked out before a warning is logged.
const DefaultThreshold = 5 * time.Second

// Options configures a checkout.
type Options struct {
	Operation string
	Threshold time.Duration
	Logger    *zap.Logger
}

// Session is a database connection checked out from the pool.
type Session struct {
	db       *gorm.DB
	mu       sync.Mutex
	lastStep string
}

// Step records what the session is about to execute and returns the connection-bound handle.
func (s *Session) Step(description string) *gorm.DB {
	s.mu.Lock()
	s.lastStep = description
	s.mu.Unlock()
	// each step needs its own statement on the shared connection
	return s.db.Session(&gorm.Session{})
}

// LastStep reports the most recently recorded step.
func (s *Session) LastStep() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStep
}

// Run checks out one connection, runs fn on it and releases it. The warning
// never aborts fn.
func Run(ctx context.Context, db *gorm.DB, opts Options, fn func(*Session) error) error {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		session := &Session{db: conn}
		started := time.Now()
		timer := time.AfterFunc(threshold, func() {
			logger.Warn("database connection checked out longer than threshold",
				zap.String("operation", opts.Operation),
				zap.Duration("threshold", threshold),
				zap.Duration("held_for", time.Since(started)),
				zap.String("last_step", session.LastStep()))
		})
		defer timer.Stop()
		return fn(session)
	})
}
