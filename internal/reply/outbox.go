package reply

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inboxd/inboxd/internal/channel"
	"github.com/inboxd/inboxd/internal/conversation"
)

// ErrQueueFull is returned when the dispatch queue cannot accept a task
// without blocking the caller.
var ErrQueueFull = errors.New("dispatch queue full")

// Result is a task's terminal outcome.
type Result struct {
	Status string
	Err    error
}

// Task is one queued reply resolution.
type Task struct {
	ID        string
	SessionID string
	done      chan Result
}

// Done delivers the task's terminal result exactly once.
func (t *Task) Done() <-chan Result {
	return t.done
}

// InputSource loads resolution inputs and persists takeover clears.
type InputSource interface {
	Load(ctx context.Context, sessionID string) (ResolveInput, error)
	ClearTakeover(ctx context.Context, sessionID string) error
}

// Responder executes positive decisions.
type Responder interface {
	RespondWithGeneratedReply(ctx context.Context, conv conversation.Conversation, ch channel.Channel, promptCtx *PromptContext) (string, string, error)
	RespondWithOutsideHoursMessage(ctx context.Context, conv conversation.Conversation, ch channel.Channel, text string) (string, string, error)
}

// Recorder keeps dispatch rows for observability.
type Recorder interface {
	Create(ctx context.Context, id, sessionID, channelID, kind string) error
	Finish(ctx context.Context, id, status string, attempts int, lastError, body string) error
}

// Outbox is the in-process dispatch queue decoupling reply generation from
// webhook acknowledgment. Failed attempts retry with exponential backoff and
// every task reports a terminal result through Done.
type Outbox struct {
	loader      InputSource
	responder   Responder
	recorder    Recorder
	tasks       chan *Task
	maxAttempts int
	retryBase   time.Duration
	logger      *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOutbox creates an outbox with a bounded queue.
func NewOutbox(
	log *slog.Logger,
	loader InputSource,
	responder Responder,
	recorder Recorder,
	queueSize, maxAttempts int,
	retryBase time.Duration,
) *Outbox {
	if log == nil {
		log = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if retryBase <= 0 {
		retryBase = 250 * time.Millisecond
	}
	return &Outbox{
		loader:      loader,
		responder:   responder,
		recorder:    recorder,
		tasks:       make(chan *Task, queueSize),
		maxAttempts: maxAttempts,
		retryBase:   retryBase,
		logger:      log.With(slog.String("service", "outbox")),
	}
}

// Start launches the worker.
func (o *Outbox) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.wg.Add(1)
	go o.worker(ctx)
}

// Stop cancels the worker and waits for the in-flight task to finish.
func (o *Outbox) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Enqueue hands a session to the worker without blocking. A full queue
// returns ErrQueueFull instead of delaying the caller.
func (o *Outbox) Enqueue(sessionID string) (*Task, error) {
	task := &Task{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		done:      make(chan Result, 1),
	}
	select {
	case o.tasks <- task:
		return task, nil
	default:
		return nil, ErrQueueFull
	}
}

func (o *Outbox) worker(ctx context.Context) {
	defer o.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-o.tasks:
			o.run(ctx, task)
		}
	}
}

func (o *Outbox) run(ctx context.Context, task *Task) {
	var (
		created  bool
		status   string
		body     string
		lastErr  error
		attempts int
	)
	for attempts < o.maxAttempts {
		attempts++
		status, body, lastErr = o.attempt(ctx, task, &created)
		if lastErr == nil {
			break
		}
		o.logger.Warn("dispatch attempt failed",
			slog.String("task_id", task.ID),
			slog.String("session_id", task.SessionID),
			slog.Int("attempt", attempts),
			slog.String("error", lastErr.Error()),
		)
		if attempts < o.maxAttempts && !o.sleep(ctx, o.retryBase<<(attempts-1)) {
			break
		}
	}
	if lastErr != nil {
		status = StatusFailed
	}

	if created {
		errText := ""
		if lastErr != nil {
			errText = lastErr.Error()
		}
		if err := o.recorder.Finish(ctx, task.ID, status, attempts, errText, body); err != nil {
			o.logger.Warn("finish dispatch record failed",
				slog.String("task_id", task.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	task.done <- Result{Status: status, Err: lastErr}
}

func (o *Outbox) attempt(ctx context.Context, task *Task, created *bool) (string, string, error) {
	in, err := o.loader.Load(ctx, task.SessionID)
	if err != nil {
		return StatusFailed, "", err
	}

	dec := Resolve(o.logger, in)
	if dec.ClearTakeover {
		if err := o.loader.ClearTakeover(ctx, task.SessionID); err != nil {
			return StatusFailed, "", fmt.Errorf("clear takeover: %w", err)
		}
	}

	switch dec.Outcome {
	case OutcomeSkip:
		o.logger.Debug("reply skipped",
			slog.String("session_id", task.SessionID),
			slog.String("reason", dec.Reason),
		)
		return StatusSkipped, "", nil
	case OutcomeOutsideHours:
		o.ensureRecord(ctx, task, in, KindOutsideHours, created)
		return o.responder.RespondWithOutsideHoursMessage(ctx, in.Conversation, *in.Channel, dec.OutsideHoursText)
	default:
		o.ensureRecord(ctx, task, in, KindGenerated, created)
		return o.responder.RespondWithGeneratedReply(ctx, in.Conversation, *in.Channel, dec.Context)
	}
}

// ensureRecord inserts the pending dispatch row once. Record keeping never
// blocks delivery; a failed insert is only logged.
func (o *Outbox) ensureRecord(ctx context.Context, task *Task, in ResolveInput, kind string, created *bool) {
	if *created {
		return
	}
	if err := o.recorder.Create(ctx, task.ID, task.SessionID, in.Channel.ID, kind); err != nil {
		o.logger.Warn("create dispatch record failed",
			slog.String("task_id", task.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	*created = true
}

func (o *Outbox) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
