package transcript

import (
	"fmt"
	"io"
	"strings"
	"time"
)

type MarkdownExporter struct{}

func (e *MarkdownExporter) Export(t *Transcript, w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", t.Title)
	fmt.Fprintf(&b, "**Session:** %s  \n", t.SessionID)
	fmt.Fprintf(&b, "**Created:** %s  \n", t.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "**Messages:** %d\n\n", len(t.Messages))

	for i, m := range t.Messages {
		b.WriteString("---\n\n")
		fmt.Fprintf(&b, "**%s** (%s)\n\n%s\n", roleLabel(m.Role), m.CreatedAt.UTC().Format(time.RFC3339), escapeMarkdown(m.Text))
		if i < len(t.Messages)-1 {
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (e *MarkdownExporter) Extension() string   { return "md" }
func (e *MarkdownExporter) ContentType() string { return "text/markdown; charset=utf-8" }

func roleLabel(role string) string {
	switch role {
	case "user":
		return "You"
	case "assistant":
		return "Assistant"
	default:
		return role
	}
}

// escapeMarkdown neutralises bold/underline markers outside fenced code
// blocks so message text cannot break the transcript layout.
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	inCode := false
	for i, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCode = !inCode
			continue
		}
		if inCode {
			continue
		}
		line = strings.ReplaceAll(line, "**", `\*\*`)
		lines[i] = strings.ReplaceAll(line, "__", `\_\_`)
	}
	return strings.Join(lines, "\n")
}
