package form

import (
	"context"
	"log/slog"

	"github.com/hrygo/reviewflow/client"
)

// ResponseService is the remote surface consumed by the response form.
type ResponseService interface {
	FetchSuggestion(ctx context.Context, reviewID string) (*client.Suggestion, error)
	SubmitResponse(ctx context.Context, input client.ResponseInput) (*client.Response, error)
}

// ResponseForm is the agent-facing form for responding to one review, with
// AI-assisted drafting. Submissions carry the NORMAL priority, matching the
// platform default.
type ResponseForm struct {
	*Orchestrator[*client.Response]
}

// NewResponseForm builds the dual-async form for the given review.
func NewResponseForm(svc ResponseService, reviewID string, onCreated func(*client.Response), logger *slog.Logger) *ResponseForm {
	return &ResponseForm{
		Orchestrator: New(Config[*client.Response]{
			Submit: func(ctx context.Context, content string) (*client.Response, error) {
				return svc.SubmitResponse(ctx, client.ResponseInput{
					ReviewID: reviewID,
					Content:  content,
					Priority: client.PriorityNormal,
				})
			},
			Suggest: func(ctx context.Context) (string, error) {
				suggestion, err := svc.FetchSuggestion(ctx, reviewID)
				if err != nil {
					return "", err
				}
				return suggestion.Suggestion, nil
			},
			OnCreated:       onCreated,
			RequiredMessage: "Response content is required",
			Logger:          logger,
		}),
	}
}
