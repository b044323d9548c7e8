// Package cmd defines the jiractl command tree.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"go-jiractl/internal/auth"
	"go-jiractl/internal/config"
	"go-jiractl/internal/jira"
	"go-jiractl/internal/session"
)

var (
	flagJSON    bool
	flagVerbose bool
)

// app bundles the wired collaborators behind every command: resolved config,
// the cookie store, the REST client and the browser session manager.
type app struct {
	cfg     *config.Config
	store   *session.Store
	client  *jira.Client
	manager auth.Refresher
}

// newApp loads config and resolves credentials. Missing credentials are not
// fatal here: the first 401 triggers a browser login via withAuthRetry.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	store := session.NewStore(config.Dir())

	authn, err := auth.Resolve(cfg, store)
	if err != nil && !errors.Is(err, auth.ErrNoCredentials) {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		store:   store,
		client:  jira.NewClient(cfg.URL, authn),
		manager: session.NewManager(store, cfg.URL),
	}, nil
}

// withAuthRetry runs fn and, on an auth failure (expired cookies, missing
// credentials, SSO redirect), refreshes the session through a browser login
// and retries exactly once.
func (a *app) withAuthRetry(ctx context.Context, fn func(context.Context) error) error {
	err := fn(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, jira.ErrUnauthorized) && !errors.Is(err, auth.ErrNoCredentials) {
		return err
	}

	if refreshErr := a.manager.Refresh(ctx); refreshErr != nil {
		return fmt.Errorf("session refresh failed: %w (original error: %v)", refreshErr, err)
	}

	authn, resolveErr := auth.Resolve(a.cfg, a.store)
	if resolveErr != nil {
		return resolveErr
	}
	a.client.SetAuthenticator(authn)

	return fn(ctx)
}

// printJSON renders any value as indented JSON on stdout, for scripting.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "jiractl",
		Short: "Jira REST client with SSO session management",
		Long: `jiractl translates CLI invocations into authenticated requests against a
Jira Cloud or Data Center instance.

Authentication uses saved SSO session cookies when present, otherwise the
configured API token (Bearer or Basic). On an expired session jiractl opens
a browser window, lets you complete the SSO login, captures the fresh
cookies and retries the request.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVar(&flagJSON, "json", false, "print raw JSON instead of tables")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newIssuesCmd(),
		newGetCmd(),
		newCreateCmd(),
		newUpdateCmd(),
		newTransitionCmd(),
		newAssignCmd(),
		newCommentCmd(),
		newBoardsCmd(),
		newBoardIssuesCmd(),
		newSprintsCmd(),
		newCreateSprintCmd(),
		newStartSprintCmd(),
		newCloseSprintCmd(),
		newMoveToSprintCmd(),
		newSprintIssuesCmd(),
		newAuthCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	return root
}

// Execute runs the root command with the given context.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}
