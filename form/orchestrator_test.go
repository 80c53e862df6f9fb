package form

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/reviewflow/internal/errors"
)

type opResult struct {
	value string
	err   error
}

// harness drives an orchestrator whose operations complete only when the
// test sends a result, making completion order fully deterministic.
type harness struct {
	o             *Orchestrator[string]
	submitDone    chan opResult
	suggestDone   chan opResult
	submitCalls   atomic.Int32
	suggestCalls  atomic.Int32
	created       chan string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		submitDone:  make(chan opResult),
		suggestDone: make(chan opResult),
		created:     make(chan string, 4),
	}
	h.o = New(Config[string]{
		Submit: func(ctx context.Context, content string) (string, error) {
			h.submitCalls.Add(1)
			r := <-h.submitDone
			if r.err != nil {
				return "", r.err
			}
			if r.value == "" {
				return "created:" + content, nil
			}
			return r.value, nil
		},
		Suggest: func(ctx context.Context) (string, error) {
			h.suggestCalls.Add(1)
			r := <-h.suggestDone
			return r.value, r.err
		},
		OnCreated:       func(record string) { h.created <- record },
		RequiredMessage: "Response content is required",
	})
	return h
}

func (h *harness) awaitPhase(t *testing.T, kind Kind, phase Phase) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.o.Phase(kind) == phase
	}, time.Second, 2*time.Millisecond)
}

func TestOrchestrator_EmptySubmitIsValidationOnly(t *testing.T) {
	for _, content := range []string{"", "   ", "\n\t "} {
		h := newHarness(t)
		h.o.SetField(content)

		err := h.o.Submit(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeValidation))

		// The shared error slot shows the validation message and the
		// remote service was never called.
		assert.Equal(t, "Response content is required", h.o.Error())
		assert.Equal(t, PhaseError, h.o.Phase(KindSubmit))
		assert.Equal(t, int32(0), h.submitCalls.Load())
	}
}

func TestOrchestrator_SubmitSuccess(t *testing.T) {
	h := newHarness(t)
	h.o.SetField("  Thanks for the feedback!  ")

	require.NoError(t, h.o.Submit(context.Background()))
	h.submitDone <- opResult{}
	h.o.Wait()

	assert.Equal(t, PhaseSuccess, h.o.Phase(KindSubmit))
	assert.Empty(t, h.o.Field())
	assert.Empty(t, h.o.Error())
	// Content reaches the remote call trimmed.
	assert.Equal(t, "created:Thanks for the feedback!", <-h.created)
}

func TestOrchestrator_SubmitFailureFillsErrorSlot(t *testing.T) {
	h := newHarness(t)
	h.o.SetField("some content")

	require.NoError(t, h.o.Submit(context.Background()))
	h.submitDone <- opResult{err: errors.Transport("request failed", nil)}
	h.o.Wait()

	assert.Equal(t, PhaseError, h.o.Phase(KindSubmit))
	assert.Equal(t, "request failed", h.o.Error())
	// The field keeps the user's content for a retry.
	assert.Equal(t, "some content", h.o.Field())
}

func TestOrchestrator_SuggestionOverwritesUserEdits(t *testing.T) {
	h := newHarness(t)
	h.o.SetField("half-typed drafts are not merged")

	require.NoError(t, h.o.FetchSuggestion(context.Background()))
	h.suggestDone <- opResult{value: "We appreciate your patience."}
	h.o.Wait()

	assert.Equal(t, PhaseSuccess, h.o.Phase(KindSuggestion))
	assert.Equal(t, "We appreciate your patience.", h.o.Field())
	assert.Empty(t, h.o.Error())
}

func TestOrchestrator_SuggestionSuccessClearsPriorError(t *testing.T) {
	h := newHarness(t)

	// Seed the error slot through a failed validation.
	_ = h.o.Submit(context.Background())
	require.NotEmpty(t, h.o.Error())

	require.NoError(t, h.o.FetchSuggestion(context.Background()))
	h.suggestDone <- opResult{value: "A draft."}
	h.o.Wait()

	assert.Empty(t, h.o.Error())
}

func TestOrchestrator_StaleSuggestionDiscarded(t *testing.T) {
	h := newHarness(t)
	h.o.SetField("typed answer")

	// Suggestion fetch departs first and hangs.
	require.NoError(t, h.o.FetchSuggestion(context.Background()))

	// Submit completes successfully and clears the field.
	require.NoError(t, h.o.Submit(context.Background()))
	h.submitDone <- opResult{}
	h.awaitPhase(t, KindSubmit, PhaseSuccess)
	require.Empty(t, h.o.Field())

	// The suggestion now completes late; its result must be dropped.
	h.suggestDone <- opResult{value: "late suggestion"}
	h.o.Wait()

	assert.Empty(t, h.o.Field())
	assert.Equal(t, PhaseIdle, h.o.Phase(KindSuggestion))
	assert.Empty(t, h.o.Error())
}

func TestOrchestrator_ErrorSlotIsCompletionOrdered(t *testing.T) {
	t.Run("SuggestionFailsAfterSubmitFails", func(t *testing.T) {
		h := newHarness(t)
		h.o.SetField("content")

		require.NoError(t, h.o.Submit(context.Background()))
		require.NoError(t, h.o.FetchSuggestion(context.Background()))

		h.submitDone <- opResult{err: errors.Transport("submit broke", nil)}
		h.awaitPhase(t, KindSubmit, PhaseError)

		h.suggestDone <- opResult{err: errors.Transport("suggestion broke", nil)}
		h.o.Wait()

		assert.Equal(t, "Failed to get AI suggestion: suggestion broke", h.o.Error())
	})

	t.Run("SubmitFailsAfterSuggestionFails", func(t *testing.T) {
		h := newHarness(t)
		h.o.SetField("content")

		require.NoError(t, h.o.FetchSuggestion(context.Background()))
		require.NoError(t, h.o.Submit(context.Background()))

		h.suggestDone <- opResult{err: errors.Transport("suggestion broke", nil)}
		h.awaitPhase(t, KindSuggestion, PhaseError)

		h.submitDone <- opResult{err: errors.Transport("submit broke", nil)}
		h.o.Wait()

		assert.Equal(t, "submit broke", h.o.Error())
	})
}

func TestOrchestrator_SameKindBusyCrossKindAllowed(t *testing.T) {
	h := newHarness(t)
	h.o.SetField("content")

	require.NoError(t, h.o.Submit(context.Background()))

	// Same kind while pending: rejected, not queued.
	err := h.o.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeBusy))

	// Cross kind while the submit is still pending: allowed.
	require.NoError(t, h.o.FetchSuggestion(context.Background()))
	err = h.o.FetchSuggestion(context.Background())
	assert.True(t, errors.IsCode(err, errors.CodeBusy))

	h.submitDone <- opResult{}
	h.suggestDone <- opResult{value: "draft"}
	h.o.Wait()
	assert.Equal(t, int32(1), h.submitCalls.Load())
	assert.Equal(t, int32(1), h.suggestCalls.Load())
}

func TestOrchestrator_NoSuggesterConfigured(t *testing.T) {
	o := New(Config[string]{
		Submit: func(context.Context, string) (string, error) { return "", nil },
	})
	err := o.FetchSuggestion(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidation))
}
