package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hrygo/reviewflow/internal/observability"
	"github.com/hrygo/reviewflow/internal/profile"
	"github.com/hrygo/reviewflow/mockserver"
)

func newServeMockCmd() *cobra.Command {
	var seedAgent bool

	cmd := &cobra.Command{
		Use:   "serve-mock",
		Short: "Run the in-process review service for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := &profile.Profile{}
			p.FromEnv()

			logger := observability.NewLogger(p.IsDev())
			srv := mockserver.New(mockserver.NewSuggesterFromProfile(p), logger)

			if seedAgent {
				agent := srv.SeedAgent("agent@example.com", "agentpw1", "Agent Smith")
				logger.Info("seeded agent account", "email", agent.Email, "password", "agentpw1")
			}
			if p.IsAIEnabled() {
				logger.Info("suggestions served by live model", "model", p.AILLMModel)
			} else {
				logger.Info("suggestions served by offline template")
			}

			return srv.Start(fmt.Sprintf("%s:%d", p.MockAddr, p.MockPort))
		},
	}

	cmd.Flags().BoolVar(&seedAgent, "seed-agent", true, "seed a ready-to-use agent account")
	return cmd
}
