package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mediahub/internal/domain/media"
)

// scriptedReader returns one canned asset per call, then repeats the last.
type scriptedReader struct {
	states []*media.Asset
	err    error
	calls  atomic.Int64
}

func (r *scriptedReader) GetStatus(ctx context.Context, id string) (*media.Asset, error) {
	n := int(r.calls.Add(1)) - 1
	if r.err != nil {
		return nil, r.err
	}
	if n >= len(r.states) {
		n = len(r.states) - 1
	}
	a := *r.states[n]
	a.ID = id
	return &a, nil
}

func processing() *media.Asset { return &media.Asset{Status: media.StatusProcessing} }
func ready() *media.Asset      { return &media.Asset{Status: media.StatusReady} }

func TestAwaitReady_ReturnsAfterProcessing(t *testing.T) {
	reader := &scriptedReader{states: []*media.Asset{processing(), processing(), ready()}}
	p := New(reader, Options{Interval: time.Millisecond, MaxAttempts: 10})

	asset, err := p.AwaitReady(context.Background(), "asset-1")
	assert.NoError(t, err)
	assert.Equal(t, media.StatusReady, asset.Status)
	assert.Equal(t, "asset-1", asset.ID)
	assert.EqualValues(t, 3, reader.calls.Load())
}

func TestAwaitReady_ImmediateReady(t *testing.T) {
	reader := &scriptedReader{states: []*media.Asset{ready()}}
	p := New(reader, Options{Interval: time.Millisecond, MaxAttempts: 3})

	_, err := p.AwaitReady(context.Background(), "asset-1")
	assert.NoError(t, err)
	assert.EqualValues(t, 1, reader.calls.Load())
}

func TestAwaitReady_FailedSurfacesProcessorError(t *testing.T) {
	msg := "unsupported codec"
	failed := &media.Asset{Status: media.StatusFailed, ProcessingError: &msg}
	reader := &scriptedReader{states: []*media.Asset{processing(), failed}}
	p := New(reader, Options{Interval: time.Millisecond, MaxAttempts: 10})

	_, err := p.AwaitReady(context.Background(), "asset-1")
	assert.ErrorIs(t, err, ErrProcessingFailed)
	assert.Contains(t, err.Error(), msg)
}

func TestAwaitReady_TimesOut(t *testing.T) {
	reader := &scriptedReader{states: []*media.Asset{processing()}}
	p := New(reader, Options{Interval: time.Millisecond, MaxAttempts: 4})

	_, err := p.AwaitReady(context.Background(), "asset-1")
	assert.ErrorIs(t, err, ErrPollTimeout)
	assert.EqualValues(t, 4, reader.calls.Load())
}

func TestAwaitReady_ReaderErrorIsPermanent(t *testing.T) {
	reader := &scriptedReader{err: media.ErrAssetNotFound}
	p := New(reader, Options{Interval: time.Millisecond, MaxAttempts: 10})

	_, err := p.AwaitReady(context.Background(), "ghost")
	assert.ErrorIs(t, err, media.ErrAssetNotFound)
	assert.EqualValues(t, 1, reader.calls.Load())
}

func TestAwaitReady_ContextCancel(t *testing.T) {
	reader := &scriptedReader{states: []*media.Asset{processing()}}
	p := New(reader, Options{Interval: 50 * time.Millisecond, MaxAttempts: 100})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := p.AwaitReady(ctx, "asset-1")
	assert.True(t, errors.Is(err, context.Canceled))
}
