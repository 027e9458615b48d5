// Package audit periodically re-verifies the expense and payment hash chains.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/fkhayef/splitledger/internal/integrity"
	"github.com/fkhayef/splitledger/pkg/logger"
)

// ChainReader returns the records of one hash chain in append order.
type ChainReader interface {
	Chain(ctx context.Context) ([]integrity.Link, error)
}

// Source is a named chain to verify.
type Source struct {
	Name  string
	Chain ChainReader
}

// Result is the outcome of verifying one chain.
type Result struct {
	Chain   string
	Records int
	Err     error
}

// Broken reports whether the chain failed verification, as opposed to
// failing to load.
func (r Result) Broken() bool {
	var b *integrity.BreakError
	return errors.As(r.Err, &b)
}

// Verify checks every source and logs each result.
func Verify(ctx context.Context, sources ...Source) []Result {
	results := make([]Result, len(sources))
	for i, s := range sources {
		results[i] = verify(ctx, s)

		entry := logger.Logger.WithFields(logrus.Fields{
			"chain":   s.Name,
			"records": results[i].Records,
		})
		switch {
		case results[i].Broken():
			entry.WithError(results[i].Err).Error("hash chain integrity violation")
		case results[i].Err != nil:
			entry.WithError(results[i].Err).Warn("hash chain audit could not run")
		default:
			entry.Info("hash chain verified")
		}
	}
	return results
}

func verify(ctx context.Context, s Source) Result {
	links, err := s.Chain.Chain(ctx)
	if err != nil {
		return Result{Chain: s.Name, Err: fmt.Errorf("failed to load %s chain: %w", s.Name, err)}
	}
	return Result{Chain: s.Name, Records: len(links), Err: integrity.Verify(links)}
}

// Start schedules Verify on a cron schedule and starts the scheduler. An
// empty schedule disables the audit and returns a nil *cron.Cron.
func Start(schedule string, timeout time.Duration, sources ...Source) (*cron.Cron, error) {
	if schedule == "" {
		logger.Logger.Info("hash chain audit disabled")
		return nil, nil
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		Verify(ctx, sources...)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule hash chain audit %q: %w", schedule, err)
	}

	c.Start()
	logger.Logger.WithField("schedule", schedule).Info("hash chain audit scheduled")
	return c, nil
}
