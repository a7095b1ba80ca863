package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jxmullins/lmsready/internal/lmstudio"
)

// RenderModels renders the server's model listing, marking the configured
// model.
func (s Styles) RenderModels(baseURL string, models []string, configured string) string {
	var b strings.Builder

	b.WriteString(s.Header.Render("LM Studio models"))
	b.WriteString("\n")
	b.WriteString(s.row("Server", baseURL))

	if len(models) == 0 {
		b.WriteString(s.Muted.Render("  (no models)"))
		b.WriteString("\n")
	}

	found := false
	for _, id := range models {
		if id == configured {
			found = true
			b.WriteString(s.ActiveModel.Render("* " + id))
		} else {
			b.WriteString(s.Model.Render("  " + id))
		}
		b.WriteString("\n")
	}

	if !found {
		b.WriteString(s.Warning.Render(fmt.Sprintf("configured model %s is not downloaded; run `lmsready ensure`", configured)))
		b.WriteString("\n")
	}

	return b.String()
}

// RenderResult renders the outcome of a readiness check.
func (s Styles) RenderResult(baseURL string, res *lmstudio.Result) string {
	var status string
	switch {
	case !res.Listing.OK():
		status = s.Warning.Render("unknown (could not list models)")
	case res.Declined:
		status = s.Warning.Render("missing (download declined)")
	case res.Downloaded:
		status = s.Success.Render("downloaded")
	default:
		status = s.Success.Render("ready")
	}

	rows := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("LM Studio"),
		strings.TrimRight(s.row("Server", baseURL), "\n"),
		strings.TrimRight(s.row("Model", res.Model), "\n"),
		lipgloss.JoinHorizontal(lipgloss.Top, s.Label.Render("Status"), status),
	)

	return s.Panel.Render(rows) + "\n"
}

func (s Styles) row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, s.Label.Render(label), s.Value.Render(value)) + "\n"
}

// RenderError renders a fatal command error.
func (s Styles) RenderError(err error) string {
	return s.Error.Render("Error: "+err.Error()) + "\n"
}
