package worker

import (
	"errors"
	"fmt"
	"time"
)

// Config tunes the export worker.
type Config struct {
	Concurrency       int           // goroutines polling the queue
	PollInterval      time.Duration // idle wait between empty dequeues
	JobTimeout        time.Duration // upper bound on one handler run; large PDFs are the slowest
	ShutdownTimeout   time.Duration // how long Stop waits for running jobs
	StaleJobThreshold time.Duration // age after which a 'running' job is requeued on Start
}

// DefaultConfig returns the worker defaults used when WORKER_* is unset.
func DefaultConfig() Config {
	return Config{
		Concurrency:       2,
		PollInterval:      5 * time.Second,
		JobTimeout:        5 * time.Minute,
		ShutdownTimeout:   30 * time.Second,
		StaleJobThreshold: 10 * time.Minute,
	}
}

// Validate reports every out-of-range field at once.
func (c Config) Validate() error {
	var errs []error
	if c.Concurrency < 1 || c.Concurrency > 100 {
		errs = append(errs, fmt.Errorf("concurrency must be between 1 and 100, got %d", c.Concurrency))
	}
	if c.PollInterval < 100*time.Millisecond {
		errs = append(errs, fmt.Errorf("poll interval must be at least 100ms, got %v", c.PollInterval))
	}
	if c.JobTimeout < time.Second {
		errs = append(errs, fmt.Errorf("job timeout must be at least 1s, got %v", c.JobTimeout))
	}
	if c.ShutdownTimeout < time.Second {
		errs = append(errs, fmt.Errorf("shutdown timeout must be at least 1s, got %v", c.ShutdownTimeout))
	}
	if c.StaleJobThreshold < time.Minute {
		errs = append(errs, fmt.Errorf("stale job threshold must be at least 1m, got %v", c.StaleJobThreshold))
	}
	return errors.Join(errs...)
}
