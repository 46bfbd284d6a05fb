package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/clipchain/clipchain/internal/types"
)

var (
	idStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func printMetadata(w io.Writer, md types.ClipMetadata) {
	fmt.Fprintln(w, idStyle.Render(md.LocalID))
	field(w, "remote_id", md.RemoteID)
	field(w, "backend", string(md.Backend))
	field(w, "model", md.Model)
	field(w, "seconds", fmt.Sprintf("%d", md.Seconds))
	field(w, "size", md.Size)
	if md.Parent != "" {
		field(w, "parent", md.Parent)
	}
	if md.CreatedAt != 0 {
		field(w, "created_at", time.Unix(md.CreatedAt, 0).UTC().Format(time.RFC3339))
	}
	field(w, "file", md.FilePath)
	field(w, "prompt", md.Prompt)
	fmt.Fprintln(w)
}

func field(w io.Writer, key, value string) {
	fmt.Fprintf(w, "  %s %s\n", keyStyle.Render(key+":"), value)
}
