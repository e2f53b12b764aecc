package export

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/user/mindmirror/internal/types"
)

// YAMLExporter writes the full session record as YAML.
type YAMLExporter struct{}

func (e *YAMLExporter) Extension() string { return "yaml" }

func (e *YAMLExporter) Export(session *types.Session, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(session)
}
