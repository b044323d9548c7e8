package cmd

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"go-jiractl/internal/jira"
	"go-jiractl/internal/ui"
)

func newSprintsCmd() *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "sprints BOARD_ID",
		Short: "List sprints of a board",
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

			var sprints []jira.Sprint
			err = a.withAuthRetry(cmd.Context(), func(ctx context.Context) error {
				var err error
				sprints, err = a.client.BoardSprints(ctx, boardID, state)
				return err
			})
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(sprints)
			}
			ui.PrintSprintsTable(sprints)
			return nil
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "filter by state: active, future or closed")
	return cmd
}

func newCreateSprintCmd() *cobra.Command {
	var start, end, goal string

	cmd := &cobra.Command{
		Use:   "create-sprint BOARD_ID NAME",
		Short: "Create a sprint on a board",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			boardID, err := parseID(args[0], "board id")
			if err != nil {
				return err
			}
			a, err := newApp()
			if err != nil {
				return err
			}

			var sprint *jira.Sprint
			err = a.withAuthRetry(cmd.Context(), func(ctx context.Context) error {
				var err error
				sprint, err = a.client.CreateSprint(ctx, boardID, args[1], start, end, goal)
				return err
			})
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(sprint)
			}
			pterm.Success.Println("Created sprint")
			ui.PrintSprintLine(sprint)
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "start date (ISO format)")
	cmd.Flags().StringVar(&end, "end", "", "end date (ISO format)")
	cmd.Flags().StringVar(&goal, "goal", "", "sprint goal")
	return cmd
}

func newStartSprintCmd() *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "start-sprint SPRINT_ID",
		Short: "Start a sprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sprintID, err := parseID(args[0], "sprint id")
			if err != nil {
				return err
			}
			a, err := newApp()
			if err != nil {
				return err
			}

			var sprint *jira.Sprint
			err = a.withAuthRetry(cmd.Context(), func(ctx context.Context) error {
				var err error
				sprint, err = a.client.UpdateSprintState(ctx, sprintID, "active", start, end)
				return err
			})
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(sprint)
			}
			pterm.Success.Println("Started sprint")
			ui.PrintSprintLine(sprint)
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "start date (ISO format)")
	cmd.Flags().StringVar(&end, "end", "", "end date (ISO format)")
	return cmd
}

func newCloseSprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close-sprint SPRINT_ID",
		Short: "Close a sprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sprintID, err := parseID(args[0], "sprint id")
			if err != nil {
				return err
			}
			a, err := newApp()
			if err != nil {
				return err
			}

			var sprint *jira.Sprint
			err = a.withAuthRetry(cmd.Context(), func(ctx context.Context) error {
				var err error
				sprint, err = a.client.UpdateSprintState(ctx, sprintID, "closed", "", "")
				return err
			})
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(sprint)
			}
			pterm.Success.Println("Closed sprint")
			ui.PrintSprintLine(sprint)
			return nil
		},
	}
}

func newMoveToSprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move-to-sprint SPRINT_ID KEY...",
		Short: "Move issues into a sprint",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sprintID, err := parseID(args[0], "sprint id")
			if err != nil {
				return err
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			keys := args[1:]

			err = a.withAuthRetry(cmd.Context(), func(ctx context.Context) error {
				return a.client.MoveIssuesToSprint(ctx, sprintID, keys)
			})
			if err != nil {
				return err
			}
			pterm.Success.Printfln("Moved %d issue(s) to sprint %d", len(keys), sprintID)
			return nil
		},
	}
}

func newSprintIssuesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sprint-issues SPRINT_ID",
		Short: "List issues in a sprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sprintID, err := parseID(args[0], "sprint id")
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
				issues, err = a.client.SprintIssues(ctx, sprintID)
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
}
