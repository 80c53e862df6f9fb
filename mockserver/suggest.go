package mockserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/hrygo/reviewflow/client"
	"github.com/hrygo/reviewflow/internal/profile"
)

// Suggester generates a response draft for a review.
type Suggester interface {
	Suggest(ctx context.Context, review *client.Review) (string, error)
}

// NewSuggesterFromProfile returns a live OpenAI-backed suggester when an API
// key is configured and the deterministic template suggester otherwise.
func NewSuggesterFromProfile(p *profile.Profile) Suggester {
	if p != nil && p.IsAIEnabled() {
		return NewOpenAISuggester(p.AIOpenAIAPIKey, p.AIOpenAIBaseURL, p.AILLMModel)
	}
	return NewTemplateSuggester()
}

// openAISuggester drafts responses with a chat model.
type openAISuggester struct {
	client *openai.Client
	model  string
}

// NewOpenAISuggester creates the live suggester.
func NewOpenAISuggester(apiKey, baseURL, model string) Suggester {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &openAISuggester{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

const suggestionSystemPrompt = "You are a customer service agent. Draft a short, empathetic response to the product review. Reply with the response text only."

func (s *openAISuggester) Suggest(ctx context.Context, review *client.Review) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: suggestionSystemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Product: %s\nRating: %d/5\nReview: %s",
					review.Product.Name, review.Rating, review.Content),
			},
		},
		MaxTokens: 200,
	})
	if err != nil {
		return "", errors.Wrap(err, "chat completion failed")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// templateSuggester is the offline fallback; deterministic for tests.
type templateSuggester struct{}

// NewTemplateSuggester creates the offline suggester.
func NewTemplateSuggester() Suggester {
	return templateSuggester{}
}

func (templateSuggester) Suggest(_ context.Context, review *client.Review) (string, error) {
	name := review.Product.Name
	if name == "" {
		name = "our product"
	}
	if review.Rating >= 4 {
		return fmt.Sprintf("Thank you for the kind words about %s! We're thrilled it's working well for you.", name), nil
	}
	if review.Rating == 3 {
		return fmt.Sprintf("Thanks for your honest feedback on %s. We'd love to hear how we could make it a five-star experience.", name), nil
	}
	return fmt.Sprintf("We're sorry %s didn't meet your expectations. Please reach out to our support team so we can make this right.", name), nil
}
