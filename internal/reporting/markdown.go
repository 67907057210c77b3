package reporting

import (
	"fmt"
	"sort"
	"strings"

	"core-indexer/internal/verification"
)

// RenderMarkdown renders a verification report as Markdown.
func RenderMarkdown(r *verification.Report) string {
	var sb strings.Builder

	sb.WriteString("# Verification Report\n\n")
	status := "PASS"
	if !r.OK() {
		status = "FAIL"
	}
	sb.WriteString(fmt.Sprintf("Status: **%s** | Cursor: %d | Duration: %s\n\n", status, r.Cursor, r.Duration))

	// Entities
	sb.WriteString("## Entities\n\n")
	sb.WriteString("| Kind | Count |\n")
	sb.WriteString("|------|-------|\n")
	for _, kind := range sortedKeys(r.Entities) {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", kind, r.Entities[kind]))
	}
	sb.WriteString("\n")

	// Checks
	byCheck := r.ViolationsByCheck()
	sb.WriteString("## Checks\n\n")
	sb.WriteString("| Check | Examined | Violations | Status |\n")
	sb.WriteString("|-------|----------|------------|--------|\n")
	for _, check := range sortedKeys(r.Checks) {
		status := "PASS"
		if byCheck[check] > 0 {
			status = "FAIL"
		}
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %s |\n", check, r.Checks[check], byCheck[check], status))
	}
	sb.WriteString("\n")

	sb.WriteString("## Violations\n\n")
	if len(r.Violations) == 0 {
		sb.WriteString("No violations.\n")
		return sb.String()
	}
	sb.WriteString("| Check | Kind | ID | Field | Expected | Actual |\n")
	sb.WriteString("|-------|------|----|-------|----------|--------|\n")
	for _, v := range r.Violations {
		sb.WriteString(fmt.Sprintf("| %s | %s | `%s` | %s | %s | %s |\n",
			v.Check, v.Kind, escapeCell(v.ID), v.Field, escapeCell(v.Expected), escapeCell(v.Actual)))
	}
	return sb.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
