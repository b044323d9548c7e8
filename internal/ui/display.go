// Package ui renders Jira resources as pterm tables and status lines.
package ui

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"go-jiractl/internal/jira"
)

// shortDate truncates a Jira timestamp to its date part.
func shortDate(ts string) string {
	if len(ts) >= 10 {
		return ts[:10]
	}
	if ts == "" {
		return "N/A"
	}
	return ts
}

func assigneeName(u *jira.User) string {
	if u == nil || u.DisplayName == "" {
		return "Unassigned"
	}
	return u.DisplayName
}

func fieldName(f *jira.NamedField) string {
	if f == nil {
		return "None"
	}
	return f.Name
}

// PrintIssuesTable renders a list of issues. Verbose adds type, priority and
// labels columns.
func PrintIssuesTable(issues []jira.Issue, verbose bool) {
	if len(issues) == 0 {
		pterm.Warning.Println("No issues found")
		return
	}

	header := []string{"Key", "Status", "Summary", "Assignee"}
	if verbose {
		header = append(header, "Type", "Priority", "Labels")
	}
	tableData := pterm.TableData{header}

	for _, issue := range issues {
		row := []string{
			pterm.FgCyan.Sprint(issue.Key),
			fieldName(issue.Fields.Status),
			issue.Fields.Summary,
			assigneeName(issue.Fields.Assignee),
		}
		if verbose {
			labels := strings.Join(issue.Fields.Labels, ", ")
			if labels == "" {
				labels = "None"
			}
			row = append(row,
				fieldName(issue.Fields.IssueType),
				fieldName(issue.Fields.Priority),
				labels,
			)
		}
		tableData = append(tableData, row)
	}

	pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(tableData).Render()
	pterm.Println()
}

// PrintIssueDetail renders one issue as a detail card, description below.
func PrintIssueDetail(issue *jira.Issue) {
	pterm.DefaultSection.WithStyle(pterm.NewStyle(pterm.FgCyan, pterm.Bold)).
		Printfln("%s: %s", issue.Key, issue.Fields.Summary)

	tableData := pterm.TableData{
		{"Status", fieldName(issue.Fields.Status)},
		{"Type", fieldName(issue.Fields.IssueType)},
		{"Priority", fieldName(issue.Fields.Priority)},
		{"Assignee", assigneeName(issue.Fields.Assignee)},
		{"Reporter", assigneeName(issue.Fields.Reporter)},
		{"Created", shortDate(issue.Fields.Created)},
		{"Updated", shortDate(issue.Fields.Updated)},
	}
	if len(issue.Fields.Labels) > 0 {
		tableData = append(tableData, []string{"Labels", strings.Join(issue.Fields.Labels, ", ")})
	}
	pterm.DefaultTable.WithData(tableData).Render()

	if desc := jira.ADFToPlainText(issue.Fields.Description); desc != "" {
		pterm.Println()
		pterm.Println(pterm.Gray("Description:"))
		pterm.Println(desc)
	}
	pterm.Println()
}

// PrintIssueLine renders the single-line form used after mutations.
func PrintIssueLine(issue *jira.Issue) {
	pterm.Printfln("%s [%s] %s (@%s)",
		pterm.FgCyan.Sprint(issue.Key),
		fieldName(issue.Fields.Status),
		issue.Fields.Summary,
		assigneeName(issue.Fields.Assignee),
	)
}

// PrintBoardsTable renders a list of boards.
func PrintBoardsTable(boards []jira.Board) {
	if len(boards) == 0 {
		pterm.Warning.Println("No boards found")
		return
	}
	tableData := pterm.TableData{{"ID", "Name", "Type"}}
	for _, b := range boards {
		tableData = append(tableData, []string{
			fmt.Sprintf("%d", b.ID),
			b.Name,
			b.Type,
		})
	}
	pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(tableData).Render()
	pterm.Println()
}

// PrintSprintsTable renders a list of sprints.
func PrintSprintsTable(sprints []jira.Sprint) {
	if len(sprints) == 0 {
		pterm.Warning.Println("No sprints found")
		return
	}
	tableData := pterm.TableData{{"ID", "Name", "State", "Start", "End", "Goal"}}
	for _, s := range sprints {
		tableData = append(tableData, []string{
			fmt.Sprintf("%d", s.ID),
			s.Name,
			sprintStateColored(s.State),
			shortDate(s.StartDate),
			shortDate(s.EndDate),
			s.Goal,
		})
	}
	pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(tableData).Render()
	pterm.Println()
}

// PrintSprintLine renders the single-line form used after sprint mutations.
func PrintSprintLine(s *jira.Sprint) {
	line := fmt.Sprintf("%d: %s [%s] (%s - %s)",
		s.ID, s.Name, s.State, shortDate(s.StartDate), shortDate(s.EndDate))
	pterm.Println(line)
	if s.Goal != "" {
		pterm.Println(pterm.Gray("  Goal: " + s.Goal))
	}
}

func sprintStateColored(state string) string {
	switch state {
	case "active":
		return pterm.FgGreen.Sprint(state)
	case "closed":
		return pterm.Gray(state)
	default:
		return state
	}
}
