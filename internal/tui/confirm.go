package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// lmsTheme returns the huh theme used for prompts.
func lmsTheme() *huh.Theme {
	t := huh.ThemeDracula()

	t.Focused.Title = t.Focused.Title.Foreground(lipgloss.Color("#7C3AED"))
	t.Focused.Description = t.Focused.Description.Foreground(lipgloss.Color("#9CA3AF"))

	return t
}

// ConfirmDownload asks whether model should be fetched with lms. Aborting
// the prompt counts as declining.
func ConfirmDownload(model string) (bool, error) {
	confirmed := false

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Download model?").
				Description(fmt.Sprintf("%s is not available in LM Studio.\nIt will be fetched with `lms get --yes %s`.", model, model)).
				Affirmative("Download").
				Negative("Skip").
				Value(&confirmed),
		),
	).WithTheme(lmsTheme())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}

	return confirmed, nil
}
