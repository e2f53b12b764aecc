// Package export renders session transcripts to portable formats.
package export

import (
	"fmt"
	"io"

	"github.com/user/mindmirror/internal/types"
)

// Exporter defines the interface for all export formats.
type Exporter interface {
	Export(session *types.Session, w io.Writer) error
	Extension() string
}

// NewExporter creates an exporter for the given format name.
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	case "yaml":
		return &YAMLExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: md, json, yaml)", format)
	}
}
