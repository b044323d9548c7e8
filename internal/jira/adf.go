package jira

import (
	"encoding/json"
	"strings"
)

// ADFToPlainText extracts readable text from an Atlassian Document Format
// value. Data Center instances hand back plain strings for the same fields,
// so both shapes are tolerated.
func ADFToPlainText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var doc struct {
		Type    string `json:"type"`
		Content []struct {
			Type    string `json:"type"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"content"`
	}

	if err := json.Unmarshal(raw, &doc); err != nil || doc.Type != "doc" {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		return string(raw)
	}

	var lines []string
	for _, block := range doc.Content {
		var parts []string
		for _, inline := range block.Content {
			if inline.Text != "" {
				parts = append(parts, inline.Text)
			}
		}
		if len(parts) > 0 {
			lines = append(lines, strings.Join(parts, ""))
		}
	}
	return strings.Join(lines, "\n")
}

// PlainTextToADF wraps plain text into an ADF document, one paragraph per
// line.
func PlainTextToADF(text string) map[string]any {
	var content []any
	for _, para := range strings.Split(text, "\n") {
		if para == "" {
			content = append(content, map[string]any{
				"type":    "paragraph",
				"content": []any{},
			})
			continue
		}
		content = append(content, map[string]any{
			"type": "paragraph",
			"content": []any{
				map[string]any{"type": "text", "text": para},
			},
		})
	}

	return map[string]any{
		"type":    "doc",
		"version": 1,
		"content": content,
	}
}
