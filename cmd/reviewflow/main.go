package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/reviewflow/cache"
	"github.com/hrygo/reviewflow/client"
	"github.com/hrygo/reviewflow/credstore"
	"github.com/hrygo/reviewflow/guard"
	"github.com/hrygo/reviewflow/internal/observability"
	"github.com/hrygo/reviewflow/internal/profile"
	"github.com/hrygo/reviewflow/session"
)

const version = "0.3.0"

// app holds the explicitly constructed singletons: one session store, one
// query cache, one credential store per process, injected everywhere.
type app struct {
	profile  *profile.Profile
	logger   *slog.Logger
	creds    credstore.Store
	queries  *cache.Service
	api      *client.Client
	sessions *session.Store
	guard    *guard.Guard
}

// lazyToken lets the API client read the session token even though the
// session store is constructed after the client.
type lazyToken struct {
	sessions *session.Store
}

func (l *lazyToken) Token() string {
	if l.sessions == nil {
		return ""
	}
	return l.sessions.Token()
}

func newApp() (*app, error) {
	p := &profile.Profile{
		Mode:      viper.GetString("mode"),
		ServerURL: viper.GetString("server"),
		Data:      viper.GetString("data"),
		Version:   version,
	}
	p.FromEnv()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	logger := observability.NewLogger(p.IsDev())

	creds, err := credstore.NewSQLiteStore(p.CredentialDSN)
	if err != nil {
		return nil, err
	}

	queries := cache.NewService(cache.DefaultServiceConfig())
	coordinator := cache.NewCoordinator(queries, logger)

	tokens := &lazyToken{}
	api := client.New(&client.Config{BaseURL: p.ServerURL, Timeout: p.RequestTimeout}, tokens)

	nav := session.NavigatorFunc(func(route session.Route) {
		logger.Debug("navigation", "route", string(route))
	})
	sessions := session.NewStore(api, creds, coordinator, nav, logger)
	tokens.sessions = sessions

	return &app{
		profile:  p,
		logger:   logger,
		creds:    creds,
		queries:  queries,
		api:      api,
		sessions: sessions,
		guard:    guard.New(sessions, nav, logger),
	}, nil
}

func (a *app) close() {
	stats := a.queries.Stats()
	a.logger.Debug("query cache", "size", stats.Size, "hits", stats.Hits, "misses", stats.Misses)
	a.queries.Close()
	if err := a.creds.Close(); err != nil {
		a.logger.Error("failed to close credential store", "error", err)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "reviewflow",
		Short:   "Client for the product review platform",
		Version: version,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", "mode of the client: prod, dev, or demo")
	flags.String("server", "", "base URL of the review service")
	flags.String("data", "", "directory for local state")

	viper.BindPFlag("mode", flags.Lookup("mode"))
	viper.BindPFlag("server", flags.Lookup("server"))
	viper.BindPFlag("data", flags.Lookup("data"))
	viper.SetEnvPrefix("reviewflow")
	viper.AutomaticEnv()

	rootCmd.AddCommand(
		newLoginCmd(),
		newRegisterCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newReviewsCmd(),
		newReviewCmd(),
		newRespondCmd(),
		newServeMockCmd(),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
