package jira

import (
	"fmt"
	"strings"
)

// Filter describes a structured issue query. Raw JQL, when set, wins over
// every other field.
type Filter struct {
	Projects string // comma-separated project keys
	Status   string
	Assignee string // "me" means the current user
	Sprint   string // "active" means any open sprint
	JQL      string
}

// BuildJQL renders a Filter into a JQL query. With no conditions at all the
// query degrades to a plain recency ordering.
func BuildJQL(f Filter) string {
	if f.JQL != "" {
		return f.JQL
	}

	var conds []string

	if f.Projects != "" {
		keys := strings.Split(f.Projects, ",")
		for i, k := range keys {
			keys[i] = strings.TrimSpace(k)
		}
		conds = append(conds, fmt.Sprintf("project IN (%s)", strings.Join(keys, ",")))
	}

	if f.Status != "" {
		conds = append(conds, fmt.Sprintf("status = %q", f.Status))
	}

	if f.Assignee != "" {
		if strings.EqualFold(f.Assignee, "me") {
			conds = append(conds, "assignee = currentUser()")
		} else {
			conds = append(conds, fmt.Sprintf("assignee = %q", f.Assignee))
		}
	}

	if f.Sprint != "" {
		if strings.EqualFold(f.Sprint, "active") {
			conds = append(conds, "sprint in openSprints()")
		} else {
			conds = append(conds, fmt.Sprintf("sprint = %q", f.Sprint))
		}
	}

	if len(conds) == 0 {
		return "ORDER BY created DESC"
	}
	return strings.Join(conds, " AND ")
}
