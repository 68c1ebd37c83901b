package present

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const defaultAction = "DONE"

// PrintConfirmation writes a short action header followed by content. The
// header is only styled when w is the styled stderr terminal.
func PrintConfirmation(w io.Writer, action, content string) {
	if action == "" {
		action = defaultAction
	}
	action = strings.ToUpper(action)
	if !IsErrorTTY() {
		fmt.Fprintf(w, "%s %s\n", action, content)
		return
	}
	header := StderrStyles().ActionHeader.SetString(action)
	fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Center, header.String(), content))
}
