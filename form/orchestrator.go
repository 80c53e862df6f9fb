// Package form implements the orchestration pattern for forms that coordinate
// a primary submit and a secondary suggestion fetch over one shared text
// field and one shared error slot.
package form

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/hrygo/reviewflow/internal/errors"
)

// Phase is the lifecycle of one in-flight form operation.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhasePending Phase = "pending"
	PhaseSuccess Phase = "success"
	PhaseError   Phase = "error"
)

// Kind distinguishes the two operations of a dual-async form.
type Kind string

const (
	KindSubmit     Kind = "submit"
	KindSuggestion Kind = "suggestion"
)

// Config wires an Orchestrator.
type Config[T any] struct {
	// Submit performs the primary remote call with the trimmed field content.
	Submit func(ctx context.Context, content string) (T, error)
	// Suggest fetches a generated draft for the field. Nil disables the
	// suggestion operation.
	Suggest func(ctx context.Context) (string, error)
	// OnCreated receives the record created by a successful submit.
	OnCreated func(T)
	// RequiredMessage is the validation message for an empty field.
	RequiredMessage string
	Logger          *slog.Logger
}

// Orchestrator governs one form. The submit and suggestion operations are
// independent: each rejects re-entry of its own kind while pending, but the
// two are never locked against each other. The error slot is a
// last-writer-wins register keyed by completion order, and a suggestion that
// completes after a successful submit has cleared the field is discarded.
type Orchestrator[T any] struct {
	mu           sync.Mutex
	field        string
	errMsg       string
	submitPhase  Phase
	suggestPhase Phase
	// submitEpoch advances on every successful submit; suggestion fetches
	// capture it at start and discard their result if it moved.
	submitEpoch uint64

	cfg Config[T]
	wg  sync.WaitGroup
}

// New creates an orchestrator in the idle state.
func New[T any](cfg Config[T]) *Orchestrator[T] {
	if cfg.RequiredMessage == "" {
		cfg.RequiredMessage = "Content is required"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator[T]{
		submitPhase:  PhaseIdle,
		suggestPhase: PhaseIdle,
		cfg:          cfg,
	}
}

// Field returns the current field content.
func (o *Orchestrator[T]) Field() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.field
}

// SetField records a user edit.
func (o *Orchestrator[T]) SetField(content string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.field = content
}

// Error returns the shared error slot, "" when clear.
func (o *Orchestrator[T]) Error() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.errMsg
}

// Phase returns the phase of the given operation kind.
func (o *Orchestrator[T]) Phase(kind Kind) Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	if kind == KindSuggestion {
		return o.suggestPhase
	}
	return o.submitPhase
}

// Submit validates the field and, when non-empty after trimming, starts the
// primary remote call. An empty field sets the shared error slot and performs
// no remote call. Returns a busy error while a prior submit is pending.
func (o *Orchestrator[T]) Submit(ctx context.Context) error {
	o.mu.Lock()
	if o.submitPhase == PhasePending {
		o.mu.Unlock()
		return errors.Busy("submit")
	}
	content := strings.TrimSpace(o.field)
	if content == "" {
		o.submitPhase = PhaseError
		o.errMsg = o.cfg.RequiredMessage
		o.mu.Unlock()
		return errors.Validation(o.cfg.RequiredMessage)
	}
	o.submitPhase = PhasePending
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		record, err := o.cfg.Submit(ctx, content)
		o.completeSubmit(record, err)
	}()
	return nil
}

func (o *Orchestrator[T]) completeSubmit(record T, err error) {
	o.mu.Lock()
	if err != nil {
		o.submitPhase = PhaseError
		o.errMsg = errors.MessageOf(err)
		o.mu.Unlock()
		o.cfg.Logger.Warn("submit failed", "error", err)
		return
	}
	o.submitPhase = PhaseSuccess
	o.field = ""
	o.errMsg = ""
	o.submitEpoch++
	o.mu.Unlock()

	if o.cfg.OnCreated != nil {
		o.cfg.OnCreated(record)
	}
}

// FetchSuggestion starts the secondary fetch. On success the result
// overwrites the field unconditionally (last suggestion wins), unless a
// submit succeeded while the fetch was in flight, in which case the stale
// result is discarded. Returns a busy error while a prior fetch is pending.
func (o *Orchestrator[T]) FetchSuggestion(ctx context.Context) error {
	if o.cfg.Suggest == nil {
		return errors.Validation("suggestions are not available for this form")
	}

	o.mu.Lock()
	if o.suggestPhase == PhasePending {
		o.mu.Unlock()
		return errors.Busy("suggestion fetch")
	}
	o.suggestPhase = PhasePending
	epoch := o.submitEpoch
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		suggestion, err := o.cfg.Suggest(ctx)
		o.completeSuggestion(suggestion, err, epoch)
	}()
	return nil
}

func (o *Orchestrator[T]) completeSuggestion(suggestion string, err error, epoch uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err != nil {
		o.suggestPhase = PhaseError
		o.errMsg = "Failed to get AI suggestion: " + errors.MessageOf(err)
		o.cfg.Logger.Warn("suggestion fetch failed", "error", err)
		return
	}
	if o.submitEpoch != epoch {
		// The form was reset by a successful submit after this fetch
		// started; the result is stale and must not repopulate the field.
		o.suggestPhase = PhaseIdle
		o.cfg.Logger.Debug("stale suggestion discarded")
		return
	}
	o.suggestPhase = PhaseSuccess
	o.field = suggestion
	o.errMsg = ""
}

// Wait blocks until every started operation has completed. Tests and
// command-line flows use it to observe final state.
func (o *Orchestrator[T]) Wait() {
	o.wg.Wait()
}
