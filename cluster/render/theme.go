package render

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/nrwiersma/saltconsole/cluster/status"
	"golang.org/x/term"
)

// Theme holds the colours of the job panel.
type Theme struct {
	Success string `yaml:"success"`
	Skips   string `yaml:"skips"`
	Failed  string `yaml:"failed"`
	Muted   string `yaml:"muted"`
}

// DefaultTheme returns the default job panel colours.
func DefaultTheme() Theme {
	return Theme{
		Success: "#04B575",
		Skips:   "#FFBD2E",
		Failed:  "#FF5F56",
		Muted:   "#626262",
	}
}

// merge fills the unset colours of t from o.
func (t Theme) merge(o Theme) Theme {
	if t.Success == "" {
		t.Success = o.Success
	}
	if t.Skips == "" {
		t.Skips = o.Skips
	}
	if t.Failed == "" {
		t.Failed = o.Failed
	}
	if t.Muted == "" {
		t.Muted = o.Muted
	}
	return t
}

type paint func(string) string

func plain(s string) string { return s }

type styles struct {
	level map[status.Level]paint
	muted paint
	bold  paint
}

func newStyles(theme Theme, colour bool) styles {
	if !colour {
		return styles{
			level: map[status.Level]paint{},
			muted: plain,
			bold:  plain,
		}
	}

	theme = theme.merge(DefaultTheme())
	fg := func(c string) paint {
		return style(lipgloss.NewStyle().Foreground(lipgloss.Color(c)).Bold(true))
	}
	return styles{
		level: map[status.Level]paint{
			status.Success:          fg(theme.Success),
			status.SuccessWithSkips: fg(theme.Skips),
			status.Failed:           fg(theme.Failed),
		},
		muted: style(lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Muted))),
		bold:  style(lipgloss.NewStyle().Bold(true)),
	}
}

func style(st lipgloss.Style) paint {
	return func(s string) string {
		return st.Render(s)
	}
}

func (s styles) forLevel(lvl status.Level) paint {
	if p, ok := s.level[lvl]; ok {
		return p
	}
	return s.bold
}

// IsTerminal determines if w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
