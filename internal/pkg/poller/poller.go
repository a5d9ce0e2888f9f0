// Package poller implements the client-side wait for media processing
// completion. Polling is purely observational: abandoning a poll has no
// effect on server-side state, and duplicate pollers for the same id are
// harmless.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"mediahub/internal/domain/media"
)

var (
	// ErrProcessingFailed carries the processor's error text verbatim.
	ErrProcessingFailed = errors.New("media processing failed")
	// ErrPollTimeout means the attempt budget ran out while the asset was
	// still processing; the server-side asset may yet complete.
	ErrPollTimeout = errors.New("media still processing after poll budget")
)

// StatusReader is the read-only status surface the poller consumes.
type StatusReader interface {
	GetStatus(ctx context.Context, id string) (*media.Asset, error)
}

type Options struct {
	Interval    time.Duration
	MaxAttempts uint64
}

const (
	DefaultInterval    = 2 * time.Second
	DefaultMaxAttempts = 30
)

type Poller struct {
	reader StatusReader
	opts   Options
}

func New(reader StatusReader, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	return &Poller{reader: reader, opts: opts}
}

// AwaitReady polls on a fixed interval until the asset reaches a terminal
// state. Context cancellation abandons the poll without error translation.
func (p *Poller) AwaitReady(ctx context.Context, mediaID string) (*media.Asset, error) {
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.opts.Interval), p.opts.MaxAttempts-1),
		ctx,
	)

	asset, err := backoff.RetryWithData(func() (*media.Asset, error) {
		a, err := p.reader.GetStatus(ctx, mediaID)
		if err != nil {
			// Unknown id or transport-level failure; retrying won't help.
			return nil, backoff.Permanent(err)
		}
		switch a.Status {
		case media.StatusReady:
			return a, nil
		case media.StatusFailed:
			msg := "unknown processing error"
			if a.ProcessingError != nil {
				msg = *a.ProcessingError
			}
			return nil, backoff.Permanent(fmt.Errorf("%w: %s", ErrProcessingFailed, msg))
		default:
			return nil, errStillProcessing
		}
	}, b)

	if err != nil {
		if errors.Is(err, errStillProcessing) {
			return nil, ErrPollTimeout
		}
		return nil, err
	}
	return asset, nil
}

var errStillProcessing = errors.New("still processing")
