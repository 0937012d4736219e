package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/recurring"
)

// SweepProcessorConfig holds configuration for the sweep processor
type SweepProcessorConfig struct {
	// PollInterval is how often every user's rules are swept (default: 1h)
	PollInterval time.Duration

	// SweepTimeout bounds a single sweep of all users (default: 5m)
	SweepTimeout time.Duration
}

func DefaultSweepProcessorConfig() SweepProcessorConfig {
	return SweepProcessorConfig{
		PollInterval: 1 * time.Hour,
		SweepTimeout: 5 * time.Minute,
	}
}

// Sweeper runs one generation pass over all users.
type Sweeper interface {
	SweepAll(ctx context.Context) (recurring.SweepResult, error)
}

// SweepProcessor runs recurring sweeps on a fixed interval.
type SweepProcessor struct {
	sweeper Sweeper
	config  SweepProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	lastResult recurring.SweepResult
	lastRun    time.Time
}

func NewSweepProcessor(sweeper Sweeper, config SweepProcessorConfig) *SweepProcessor {
	def := DefaultSweepProcessorConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.SweepTimeout <= 0 {
		config.SweepTimeout = def.SweepTimeout
	}
	return &SweepProcessor{sweeper: sweeper, config: config}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SweepProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sweep processor is already running")
	}
	if p.sweeper == nil {
		p.mu.Unlock()
		return fmt.Errorf("sweep processor not properly initialized")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sweep processor started",
		"poll_interval", p.config.PollInterval)
	return nil
}

// Stop gracefully stops the processor and waits for the current sweep.
func (p *SweepProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Sweep processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sweep processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *SweepProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// LastResult returns the outcome of the most recent sweep and when it ran.
func (p *SweepProcessor) LastResult() (recurring.SweepResult, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastResult, p.lastRun
}

func (p *SweepProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// Sweep immediately on startup
	p.RunOnce(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single bounded sweep and records its result.
func (p *SweepProcessor) RunOnce(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, p.config.SweepTimeout)
	defer cancel()

	start := time.Now()
	result, err := p.sweeper.SweepAll(sweepCtx)
	if err != nil {
		slog.ErrorContext(ctx, "Recurring sweep finished with errors", "error", err)
	}

	p.mu.Lock()
	p.lastResult = result
	p.lastRun = start
	p.mu.Unlock()

	slog.InfoContext(ctx, "Recurring sweep cycle complete",
		"generated", result.Generated,
		"deactivated", result.Deactivated,
		"failed", result.Failed,
		"duration", time.Since(start))
}
