package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hrygo/reviewflow/client"
	"github.com/hrygo/reviewflow/form"
)

const reviewListTTL = 2 * time.Minute

// requireSession hydrates the session and gates the protected command.
func requireSession(ctx context.Context, a *app) error {
	a.sessions.Rehydrate(ctx)
	if err := a.guard.Require(ctx); err != nil {
		return fmt.Errorf("%w: run `reviewflow login` first", err)
	}
	return nil
}

func newReviewsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reviews",
		Short: "List reviews (cached)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if err := requireSession(ctx, a); err != nil {
				return err
			}

			payload, err := a.queries.GetOrLoad(ctx, "reviews:list", reviewListTTL, func(ctx context.Context) ([]byte, error) {
				reviews, err := a.api.ListReviews(ctx)
				if err != nil {
					return nil, err
				}
				return json.Marshal(reviews)
			})
			if err != nil {
				return err
			}

			var reviews []client.Review
			if err := json.Unmarshal(payload, &reviews); err != nil {
				return err
			}
			if len(reviews) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no reviews yet")
				return nil
			}
			for _, r := range reviews {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-22s %d/5  sentiment %+.2f  %q  (%d responses)\n",
					r.ID, r.Product.Name, r.Rating, r.Sentiment, truncate(r.Content, 48), len(r.Responses))
			}
			return nil
		},
	}
}

func newReviewCmd() *cobra.Command {
	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Inspect or create reviews",
	}
	reviewCmd.AddCommand(newReviewShowCmd(), newReviewNewCmd())
	return reviewCmd
}

func newReviewShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <review-id>",
		Short: "Show one review with its responses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if err := requireSession(ctx, a); err != nil {
				return err
			}

			review, err := a.api.GetReview(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s — %s (%d/5, sentiment %+.2f)\n", review.ID, review.Product.Name, review.Rating, review.Sentiment)
			fmt.Fprintf(out, "  %s\n", review.Content)
			for _, resp := range review.Responses {
				fmt.Fprintf(out, "  ↳ [%s] %s: %s\n", resp.Priority, resp.Agent.Name, resp.Content)
			}
			return nil
		},
	}
}

func newReviewNewCmd() *cobra.Command {
	var productID string
	var rating int
	var content string

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Submit a product review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if err := requireSession(ctx, a); err != nil {
				return err
			}

			var created *client.Review
			f := form.NewReviewForm(a.api, func(r *client.Review) { created = r }, a.logger)
			f.SetProduct(productID)
			f.SetRating(rating)
			f.SetField(content)

			if err := f.Submit(ctx); err != nil {
				return err
			}
			f.Wait()
			if msg := f.Error(); msg != "" {
				return fmt.Errorf("%s", msg)
			}

			// The cached listing no longer reflects reality.
			a.queries.InvalidateNamespace("reviews")

			fmt.Fprintf(cmd.OutOrStdout(), "review %s created (sentiment %+.2f)\n", created.ID, created.Sentiment)
			return nil
		},
	}

	cmd.Flags().StringVar(&productID, "product", "", "product ID")
	cmd.Flags().IntVar(&rating, "rating", 0, "star rating 1-5")
	cmd.Flags().StringVar(&content, "content", "", "review text")
	cmd.MarkFlagRequired("product")
	cmd.MarkFlagRequired("rating")
	return cmd
}

func newRespondCmd() *cobra.Command {
	var content string
	var suggest bool

	cmd := &cobra.Command{
		Use:   "respond <review-id>",
		Short: "Respond to a review, optionally starting from an AI draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if err := requireSession(ctx, a); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var created *client.Response
			f := form.NewResponseForm(a.api, args[0], func(r *client.Response) { created = r }, a.logger)

			if suggest {
				if err := f.FetchSuggestion(ctx); err != nil {
					return err
				}
				f.Wait()
				if msg := f.Error(); msg != "" {
					return fmt.Errorf("%s", msg)
				}
				fmt.Fprintf(out, "suggested draft: %s\n", f.Field())
			}
			if content != "" {
				f.SetField(content)
			}

			if err := f.Submit(ctx); err != nil {
				return err
			}
			f.Wait()
			if msg := f.Error(); msg != "" {
				return fmt.Errorf("%s", msg)
			}

			fmt.Fprintf(out, "response %s created by %s\n", created.ID, created.Agent.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&content, "content", "", "response text; omit with --suggest to submit the draft")
	cmd.Flags().BoolVar(&suggest, "suggest", false, "fetch an AI-generated draft first")
	return cmd
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
