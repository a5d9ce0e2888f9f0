// Package uploader coordinates N concurrent upload+poll tasks on the client
// side. The orchestrator never writes media links: each completed task hands
// its media id back and ownership stays the caller's concern.
package uploader

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"

	"mediahub/internal/domain/media"
)

var (
	ErrTooManyFiles = errors.New("upload queue is full")
	ErrTaskNotFound = errors.New("upload task not found")
	ErrTaskActive   = errors.New("task is still running")
)

// State is the local, client-visible view of one task's progress.
type State string

const (
	StatePending    State = "pending"
	StateUploading  State = "uploading"
	StateProcessing State = "processing"
	StateComplete   State = "complete"
	StateError      State = "error"
)

func (s State) Terminal() bool { return s == StateComplete || s == StateError }

// File is a local file handle queued for upload.
type File struct {
	Name    string
	Size    int64
	Kind    media.Kind
	Content io.Reader
}

// Task tracks one orchestrated upload. TargetOwner/TargetRole are optional
// hints for the caller's later attach; the orchestrator does not act on them.
type Task struct {
	ID          string
	FileName    string
	Size        int64
	Kind        media.Kind
	TargetOwner string
	TargetRole  string
	State       State
	Progress    int // coarse percent: 0 queued, 25 uploading, 60 processing, 100 complete
	MediaID     string
	Err         string
}

// Submitter performs the actual upload call.
type Submitter interface {
	Submit(ctx context.Context, file File) (mediaID string, err error)
}

// Waiter blocks until the asset reaches a terminal processing state.
type Waiter interface {
	AwaitReady(ctx context.Context, mediaID string) (*media.Asset, error)
}

type Options struct {
	MaxFiles      int
	MaxConcurrent int
	// OnUpdate, when set, observes every task state change.
	OnUpdate func(Task)
}

const (
	DefaultMaxFiles      = 20
	DefaultMaxConcurrent = 3
)

type Orchestrator struct {
	submitter Submitter
	waiter    Waiter
	opts      Options

	mu      sync.Mutex
	order   []string
	tasks   map[string]*Task
	files   map[string]File
	cancels map[string]context.CancelFunc
}

func New(submitter Submitter, waiter Waiter, opts Options) *Orchestrator {
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = DefaultMaxFiles
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	return &Orchestrator{
		submitter: submitter,
		waiter:    waiter,
		opts:      opts,
		tasks:     make(map[string]*Task),
		files:     make(map[string]File),
		cancels:   make(map[string]context.CancelFunc),
	}
}

// Add queues a file. Files past the configured cap are rejected, not dropped.
func (o *Orchestrator) Add(file File, targetOwner, targetRole string) (Task, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.tasks) >= o.opts.MaxFiles {
		return Task{}, ErrTooManyFiles
	}

	t := &Task{
		ID:          uuid.New().String(),
		FileName:    file.Name,
		Size:        file.Size,
		Kind:        file.Kind,
		TargetOwner: targetOwner,
		TargetRole:  targetRole,
		State:       StatePending,
	}
	o.tasks[t.ID] = t
	o.files[t.ID] = file
	o.order = append(o.order, t.ID)
	return *t, nil
}

// Run executes every queued task, bounded by MaxConcurrent. It returns once
// all tasks are terminal; individual failures are recorded on the tasks, not
// returned.
func (o *Orchestrator) Run(ctx context.Context) {
	o.mu.Lock()
	var queued []string
	for _, id := range o.order {
		if o.tasks[id].State == StatePending {
			queued = append(queued, id)
		}
	}
	o.mu.Unlock()

	sem := make(chan struct{}, o.opts.MaxConcurrent)
	var wg sync.WaitGroup
	for _, id := range queued {
		wg.Add(1)
		go func(taskID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			o.runTask(ctx, taskID)
		}(id)
	}
	wg.Wait()
}

func (o *Orchestrator) runTask(ctx context.Context, taskID string) {
	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.mu.Lock()
	file := o.files[taskID]
	o.cancels[taskID] = cancel
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.cancels, taskID)
		o.mu.Unlock()
	}()

	o.update(taskID, func(t *Task) {
		t.State = StateUploading
		t.Progress = 25
	})

	mediaID, err := o.submitter.Submit(taskCtx, file)
	if err != nil {
		o.fail(taskID, err)
		return
	}

	o.update(taskID, func(t *Task) {
		t.State = StateProcessing
		t.Progress = 60
		t.MediaID = mediaID
	})

	if _, err := o.waiter.AwaitReady(taskCtx, mediaID); err != nil {
		// A cancelled or timed-out wait only stops local observation; the
		// server-side asset may still complete later.
		o.fail(taskID, err)
		return
	}

	o.update(taskID, func(t *Task) {
		t.State = StateComplete
		t.Progress = 100
	})
}

// Cancel stops local progress reporting and polling for one task. It cannot
// abort an in-flight storage upload or the external processing job.
func (o *Orchestrator) Cancel(taskID string) error {
	o.mu.Lock()
	cancel, running := o.cancels[taskID]
	_, exists := o.tasks[taskID]
	o.mu.Unlock()

	if !exists {
		return ErrTaskNotFound
	}
	if running {
		cancel()
	}
	return nil
}

// Remove drops a terminal task from the visible queue. Pure UI action: the
// uploaded asset and any links created from it persist.
func (o *Orchestrator) Remove(taskID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	t, ok := o.tasks[taskID]
	if !ok {
		return ErrTaskNotFound
	}
	if !t.State.Terminal() {
		return ErrTaskActive
	}
	delete(o.tasks, taskID)
	delete(o.files, taskID)
	for i, id := range o.order {
		if id == taskID {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	return nil
}

// Snapshot returns the tasks in insertion order.
func (o *Orchestrator) Snapshot() []Task {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]Task, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, *o.tasks[id])
	}
	return out
}

// Progress reports aggregate completion across all tasks.
func (o *Orchestrator) Progress() (done, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, t := range o.tasks {
		if t.State.Terminal() {
			done++
		}
	}
	return done, len(o.tasks)
}

func (o *Orchestrator) update(taskID string, fn func(t *Task)) {
	o.mu.Lock()
	t, ok := o.tasks[taskID]
	if !ok {
		o.mu.Unlock()
		return
	}
	fn(t)
	snapshot := *t
	o.mu.Unlock()

	if o.opts.OnUpdate != nil {
		o.opts.OnUpdate(snapshot)
	}
}

func (o *Orchestrator) fail(taskID string, err error) {
	o.update(taskID, func(t *Task) {
		t.State = StateError
		t.Err = err.Error()
	})
}
