package export

import (
	"fmt"
	"io"

	"github.com/user/mindmirror/internal/types"
)

// MarkdownExporter renders a session as a readable Markdown transcript.
type MarkdownExporter struct{}

func (e *MarkdownExporter) Extension() string { return "md" }

func (e *MarkdownExporter) Export(session *types.Session, w io.Writer) error {
	_, _ = fmt.Fprintf(w, "# %s\n\n", session.Title)
	_, _ = fmt.Fprintf(w, "**Session:** %s  \n", session.ID)
	_, _ = fmt.Fprintf(w, "**Type:** %s  \n", session.Type)
	_, _ = fmt.Fprintf(w, "**Created:** %s  \n", session.CreatedAt.Format("2006-01-02 15:04:05"))
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(session.Messages))

	if c := session.Payload.Cards; c != nil {
		_, _ = fmt.Fprintf(w, "**Cards:** %s + %s\n\n", c.Image.ID, c.Word.Text)
	}
	if sp := session.Payload.Sandplay; sp != nil {
		_, _ = fmt.Fprintf(w, "**Scene:** %s (%d objects)\n\n", sp.SceneID, len(sp.Toys))
	}

	_, _ = fmt.Fprintf(w, "---\n\n")

	for i, msg := range session.Messages {
		label := "引导师"
		if msg.Role == types.RoleUser {
			label = "我"
		}
		_, _ = fmt.Fprintf(w, "**%s** (%s)\n\n%s\n\n", label, msg.Timestamp.Format("15:04"), msg.Text)
		if i < len(session.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}
	return nil
}
