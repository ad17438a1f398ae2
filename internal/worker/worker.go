package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper removes cache entries aged past the stale ceiling and files
// orphaned by crashes. DBStore implements it.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Janitor runs the cache sweep on a fixed interval. Eviction on write
// keeps the cache inside its byte bound, the janitor handles what
// writes never touch: entries nobody requests anymore and orphaned
// artifact files.
type Janitor struct {
	Sweeper  Sweeper
	Logger   *zap.Logger
	Ticker   *time.Ticker
	StopChan chan bool
	mu       sync.Mutex
	running  bool
	active   bool
}

func NewJanitor(sweeper Sweeper, logger *zap.Logger) *Janitor {
	return &Janitor{
		Sweeper:  sweeper,
		Logger:   logger,
		StopChan: make(chan bool),
	}
}

func (j *Janitor) Start(interval time.Duration) {
	j.mu.Lock()
	if j.active {
		j.mu.Unlock()
		j.Logger.Warn("janitor already active")
		return
	}
	j.active = true
	j.mu.Unlock()

	j.Ticker = time.NewTicker(interval)
	go func() {
		defer func() {
			j.mu.Lock()
			j.active = false
			j.mu.Unlock()
		}()
		for {
			select {
			case <-j.Ticker.C:
				j.SweepNow()
			case <-j.StopChan:
				j.Ticker.Stop()
				return
			}
		}
	}()
	j.Logger.Info("cache janitor started", zap.Duration("interval", interval))
}

func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.active {
		j.mu.Unlock()
		return
	}
	j.mu.Unlock()

	j.StopChan <- true
	j.Logger.Info("cache janitor stopped")
}

func (j *Janitor) IsActive() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.active
}

// SweepNow runs one sweep, skipping if the previous one is still going.
func (j *Janitor) SweepNow() {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		j.Logger.Debug("sweep already in progress, skipping")
		return
	}
	j.running = true
	j.mu.Unlock()

	defer func() {
		j.mu.Lock()
		j.running = false
		j.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	removed, err := j.Sweeper.Sweep(ctx)
	if err != nil {
		j.Logger.Warn("cache sweep failed", zap.Int("removed", removed), zap.Error(err))
		return
	}
	if removed > 0 {
		j.Logger.Info("cache sweep done", zap.Int("removed", removed))
	}
}
