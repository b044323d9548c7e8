package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"go-jiractl/internal/jira"
	"go-jiractl/internal/ui"
)

func newIssuesCmd() *cobra.Command {
	var (
		projects   string
		status     string
		assignee   string
		sprint     string
		rawJQL     string
		maxResults int
	)

	cmd := &cobra.Command{
		Use:   "issues",
		Short: "List issues matching filters or a raw JQL query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			if projects == "" {
				projects = a.cfg.ProjectsFilter
			}
			jql := jira.BuildJQL(jira.Filter{
				Projects: projects,
				Status:   status,
				Assignee: assignee,
				Sprint:   sprint,
				JQL:      rawJQL,
			})

			var issues []jira.Issue
			err = a.withAuthRetry(cmd.Context(), func(ctx context.Context) error {
				var err error
				issues, err = a.client.SearchIssues(ctx, jql, maxResults)
				return err
			})
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(issues)
			}
			ui.PrintIssuesTable(issues, flagVerbose)
			return nil
		},
	}

	cmd.Flags().StringVarP(&projects, "project", "p", "", "project key(s), comma-separated (default: JIRA_PROJECTS_FILTER)")
	cmd.Flags().StringVarP(&status, "status", "s", "", "filter by status")
	cmd.Flags().StringVarP(&assignee, "assignee", "a", "", "filter by assignee ('me' for yourself)")
	cmd.Flags().StringVar(&sprint, "sprint", "", "filter by sprint ('active' for open sprints)")
	cmd.Flags().StringVar(&rawJQL, "jql", "", "raw JQL query, overrides other filters")
	cmd.Flags().IntVar(&maxResults, "max", 50, "maximum number of results")

	return cmd
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Show one issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			key := args[0]
			if flagJSON {
				var raw []byte
				err := a.withAuthRetry(cmd.Context(), func(ctx context.Context) error {
					var err error
					raw, err = a.client.GetIssueRaw(ctx, key)
					return err
				})
				if err != nil {
					return err
				}
				fmt.Println(string(raw))
				return nil
			}

			var issue *jira.Issue
			err = a.withAuthRetry(cmd.Context(), func(ctx context.Context) error {
				var err error
				issue, err = a.client.GetIssue(ctx, key)
				return err
			})
			if err != nil {
				return err
			}
			ui.PrintIssueDetail(issue)
			return nil
		},
	}
}

func newCreateCmd() *cobra.Command {
	var (
		issueType   string
		description string
		assignee    string
		priority    string
		labels      []string
	)

	cmd := &cobra.Command{
		Use:   "create PROJECT SUMMARY",
		Short: "Create an issue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			fields := map[string]any{
				"project":   map[string]string{"key": args[0]},
				"summary":   args[1],
				"issuetype": map[string]string{"name": issueType},
			}
			if description != "" {
				fields["description"] = jira.PlainTextToADF(description)
			}
			if assignee != "" {
				fields["assignee"] = assigneeField(assignee)
			}
			if priority != "" {
				fields["priority"] = map[string]string{"name": priority}
			}
			if len(labels) > 0 {
				fields["labels"] = labels
			}

			var issue *jira.Issue
			err = a.withAuthRetry(cmd.Context(), func(ctx context.Context) error {
				var err error
				issue, err = a.client.CreateIssue(ctx, fields)
				return err
			})
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(issue)
			}
			pterm.Success.Printfln("Created %s", issue.Key)
			ui.PrintIssueLine(issue)
			return nil
		},
	}

	cmd.Flags().StringVarP(&issueType, "type", "t", "Task", "issue type")
	cmd.Flags().StringVarP(&description, "description", "d", "", "description")
	cmd.Flags().StringVarP(&assignee, "assignee", "a", "", "assignee")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "priority")
	cmd.Flags().StringArrayVarP(&labels, "labels", "l", nil, "labels (repeatable)")

	return cmd
}

func newUpdateCmd() *cobra.Command {
	var (
		summary     string
		description string
		assignee    string
		priority    string
		labels      []string
	)

	cmd := &cobra.Command{
		Use:   "update KEY",
		Short: "Update issue fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			key := args[0]

			fields := map[string]any{}
			if summary != "" {
				fields["summary"] = summary
			}
			if description != "" {
				fields["description"] = jira.PlainTextToADF(description)
			}
			if assignee != "" {
				fields["assignee"] = assigneeField(assignee)
			}
			if priority != "" {
				fields["priority"] = map[string]string{"name": priority}
			}
			if cmd.Flags().Changed("labels") {
				fields["labels"] = labels
			}

			var issue *jira.Issue
			err = a.withAuthRetry(cmd.Context(), func(ctx context.Context) error {
				if len(fields) > 0 {
					if err := a.client.UpdateIssue(ctx, key, fields); err != nil {
						return err
					}
				}
				var err error
				issue, err = a.client.GetIssue(ctx, key)
				return err
			})
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(issue)
			}
			pterm.Success.Printfln("Updated %s", issue.Key)
			ui.PrintIssueLine(issue)
			return nil
		},
	}

	cmd.Flags().StringVarP(&summary, "summary", "s", "", "new summary")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVarP(&assignee, "assignee", "a", "", "new assignee")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "new priority")
	cmd.Flags().StringArrayVarP(&labels, "labels", "l", nil, "replace labels (repeatable)")

	return cmd
}

func newTransitionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transition KEY STATUS",
		Short: "Move an issue to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			key, target := args[0], args[1]

			var issue *jira.Issue
			err = a.withAuthRetry(cmd.Context(), func(ctx context.Context) error {
				transitions, err := a.client.Transitions(ctx, key)
				if err != nil {
					return err
				}
				id, ok := matchTransition(transitions, target)
				if !ok {
					names := make([]string, 0, len(transitions))
					for _, t := range transitions {
						names = append(names, t.Name)
					}
					return fmt.Errorf("status %q not reachable from here, available: %s",
						target, strings.Join(names, ", "))
				}
				if err := a.client.TransitionIssue(ctx, key, id); err != nil {
					return err
				}
				issue, err = a.client.GetIssue(ctx, key)
				return err
			})
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(issue)
			}
			pterm.Success.Printfln("Transitioned %s", issue.Key)
			ui.PrintIssueLine(issue)
			return nil
		},
	}
}

// matchTransition resolves a target status against the available transitions,
// matching the transition name or its destination status, case-insensitively.
func matchTransition(transitions []jira.Transition, target string) (string, bool) {
	for _, t := range transitions {
		if strings.EqualFold(t.Name, target) || strings.EqualFold(t.To.Name, target) {
			return t.ID, true
		}
	}
	return "", false
}

func newAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign KEY ASSIGNEE",
		Short: "Assign an issue ('me' for yourself)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			key, assignee := args[0], args[1]

			var issue *jira.Issue
			err = a.withAuthRetry(cmd.Context(), func(ctx context.Context) error {
				accountID, err := resolveAccountID(ctx, a.client, assignee)
				if err != nil {
					return err
				}
				if err := a.client.AssignIssue(ctx, key, accountID); err != nil {
					return err
				}
				issue, err = a.client.GetIssue(ctx, key)
				return err
			})
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(issue)
			}
			pterm.Success.Printfln("Assigned %s", issue.Key)
			ui.PrintIssueLine(issue)
			return nil
		},
	}
}

// accountIDLengthHint: anything longer than a typical username is assumed to
// already be an accountId and is passed through without a user search.
const accountIDLengthHint = 20

func resolveAccountID(ctx context.Context, client *jira.Client, assignee string) (string, error) {
	if strings.EqualFold(assignee, "me") {
		me, err := client.Myself(ctx)
		if err != nil {
			return "", err
		}
		return me.AccountID, nil
	}
	if len(assignee) > accountIDLengthHint {
		return assignee, nil
	}
	users, err := client.SearchUsers(ctx, assignee)
	if err != nil {
		return "", err
	}
	if len(users) == 0 {
		return "", fmt.Errorf("user %q not found", assignee)
	}
	return users[0].AccountID, nil
}

// assigneeField builds the assignee payload for create/update: long values
// are treated as accountIds, short ones as Data Center usernames.
func assigneeField(assignee string) map[string]string {
	if len(assignee) > accountIDLengthHint {
		return map[string]string{"accountId": assignee}
	}
	return map[string]string{"name": assignee}
}

func newCommentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comment KEY TEXT...",
		Short: "Add a comment to an issue",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			key := args[0]
			text := strings.Join(args[1:], " ")

			err = a.withAuthRetry(cmd.Context(), func(ctx context.Context) error {
				return a.client.AddComment(ctx, key, text)
			})
			if err != nil {
				return err
			}
			pterm.Success.Printfln("Comment added to %s", key)
			return nil
		},
	}
}
