// Package transcript renders a chat session with its messages in one of
// several text formats.
package transcript

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/aiaccountant/internal/common"
)

// Transcript is the format-independent view of a session.
type Transcript struct {
	SessionID string    `json:"session_id" yaml:"session_id"`
	Title     string    `json:"title" yaml:"title"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Messages  []Entry   `json:"messages" yaml:"messages"`
}

type Entry struct {
	Role      string    `json:"role" yaml:"role"`
	Text      string    `json:"text" yaml:"text"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Exporter writes a Transcript in a single format.
type Exporter interface {
	Export(t *Transcript, w io.Writer) error
	Extension() string
	ContentType() string
}

// DefaultFormat is used when no format is requested.
const DefaultFormat = "md"

// NewExporter returns the exporter for format. Unknown formats yield
// common.ErrorValidation.
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "", "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported format %q (supported: md, yaml, json)", common.ErrorValidation, format)
	}
}
