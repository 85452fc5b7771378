package loader

import "strings"

// extractMarkdown strips common Markdown syntax so the chunker sees prose.
// Fidelity beyond readable plain text is not a goal.
func extractMarkdown(raw string) string {
	var out []string
	inFence := false
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		trimmed = strings.TrimLeft(trimmed, "#>")
		trimmed = strings.TrimSpace(trimmed)
		trimmed = strings.TrimPrefix(trimmed, "- ")
		trimmed = strings.TrimPrefix(trimmed, "* ")
		trimmed = stripInline(trimmed)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}

// stripInline removes emphasis markers and rewrites [label](url) as label.
func stripInline(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	s = strings.ReplaceAll(s, "`", "")

	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '[' {
			close := strings.IndexByte(s[i:], ']')
			if close > 0 && i+close+1 < len(s) && s[i+close+1] == '(' {
				end := strings.IndexByte(s[i+close+1:], ')')
				if end > 0 {
					sb.WriteString(s[i+1 : i+close])
					i += close + 1 + end
					continue
				}
			}
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
