package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"go-jiractl/internal/jira"
	"go-jiractl/internal/ui"
)

func newBoardsCmd() *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "boards",
		Short: "List Agile boards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			var boards []jira.Board
			err = a.withAuthRetry(cmd.Context(), func(ctx context.Context) error {
				var err error
				boards, err = a.client.Boards(ctx, project)
				return err
			})
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(boards)
			}
			ui.PrintBoardsTable(boards)
			return nil
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "filter by project key or id")
	return cmd
}

func newBoardIssuesCmd() *cobra.Command {
	var sprint string

	cmd := &cobra.Command{
		Use:   "board-issues BOARD_ID",
		Short: "List issues on a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			boardID, err := parseID(args[0], "board id")
			if err != nil {
				return err
			}
			a, err := newApp()
			if err != nil {
				return err
			}

			var issues []jira.Issue
			err = a.withAuthRetry(cmd.Context(), func(ctx context.Context) error {
				var err error
				issues, err = boardIssues(ctx, a.client, boardID, sprint)
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

	cmd.Flags().StringVar(&sprint, "sprint", "", "'active' narrows to the running sprint")
	return cmd
}

// boardIssues narrows to the active sprint's issues when requested and the
// board has one; otherwise it returns the whole board backlog.
func boardIssues(ctx context.Context, client *jira.Client, boardID int, sprint string) ([]jira.Issue, error) {
	if sprint == "active" {
		sprints, err := client.BoardSprints(ctx, boardID, "active")
		if err != nil {
			return nil, err
		}
		if len(sprints) > 0 {
			return client.SprintIssues(ctx, sprints[0].ID)
		}
	}
	return client.BoardIssues(ctx, boardID)
}

func parseID(arg, what string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", what, arg)
	}
	return id, nil
}
