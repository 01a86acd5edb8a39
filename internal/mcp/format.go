package mcp

import (
	"fmt"
	"strings"
)

// maxSnippet bounds the content shown per result in markdown output.
const maxSnippet = 300

// FormatSearchResults formats search results as markdown.
func FormatSearchResults(query string, out *SearchOutput) string {
	if out == nil || len(out.Results) == 0 {
		return fmt.Sprintf("No results found for \"%s\"", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search Results for \"%s\"\n\n", query)
	fmt.Fprintf(&sb, "Showing %d of %d result", len(out.Results), out.Total)
	if out.Total != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range out.Results {
		formatResult(&sb, i+1, r)
	}

	return sb.String()
}

// FormatSpellCheck formats spellcheck suggestions as markdown.
func FormatSpellCheck(query string, out *SpellCheckOutput) string {
	if out == nil || len(out.Suggestions) == 0 {
		return fmt.Sprintf("No spelling suggestions for \"%s\"", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Spelling Suggestions for \"%s\"\n\n", query)
	for _, s := range out.Suggestions {
		if len(s.Candidates) == 0 {
			fmt.Fprintf(&sb, "- `%s`: no candidates\n", s.Term)
			continue
		}
		values := make([]string, len(s.Candidates))
		for i, c := range s.Candidates {
			values[i] = fmt.Sprintf("`%s` (%.2f)", c.Value, c.Score)
		}
		fmt.Fprintf(&sb, "- `%s`: %s\n", s.Term, strings.Join(values, ", "))
	}
	return sb.String()
}

// formatResult formats a single result.
func formatResult(sb *strings.Builder, num int, r SearchResultOutput) {
	title := r.Title
	if title == "" {
		title = r.Name
	}
	fmt.Fprintf(sb, "### %d. %s\n", num, title)

	meta := []string{fmt.Sprintf("**%s** `%s`", r.Doctype, r.Name)}
	if r.Team != "" {
		meta = append(meta, "team: "+r.Team)
	}
	if r.Project != "" {
		meta = append(meta, "project: "+r.Project)
	}
	if r.Modified != "" {
		meta = append(meta, "modified: "+r.Modified)
	}
	sb.WriteString(strings.Join(meta, " | "))
	sb.WriteString("\n\n")

	if r.Content != "" {
		sb.WriteString(truncate(r.Content, maxSnippet))
		sb.WriteString("\n\n")
	}
}

// truncate shortens s to at most n runes, marking the cut.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// clampLimit ensures limit is within bounds.
func clampLimit(limit, defaultVal, min, max int) int {
	if limit <= 0 {
		limit = defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}
