package export

import (
	"encoding/json"
	"io"

	"github.com/user/mindmirror/internal/types"
)

// JSONExporter writes the full session record as indented JSON.
type JSONExporter struct{}

func (e *JSONExporter) Extension() string { return "json" }

func (e *JSONExporter) Export(session *types.Session, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(session)
}
