package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ashita-ai/kanshi/internal/adjudication"
)

type theme struct {
	plain   bool
	header  lipgloss.Style
	tool    lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
}

func newTheme(plain bool) theme {
	if plain {
		return theme{plain: true}
	}
	return theme{
		header:  lipgloss.NewStyle().Foreground(lipgloss.Color("#01cdfe")).Bold(true),
		tool:    lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3d8")).Italic(true),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1")).Bold(true),
		failure: lipgloss.NewStyle().Foreground(lipgloss.Color("#ff71ce")).Bold(true),
	}
}

func (t theme) paint(style lipgloss.Style, s string) string {
	if t.plain {
		return s
	}
	return style.Render(s)
}

// renderer prints one adjudication stream. Tokens are written verbatim;
// every other event starts on its own line.
type renderer struct {
	out      io.Writer
	theme    theme
	midLine  bool // cursor sits after token text
	tools    int
	finished bool
	failed   string
}

func newRenderer(out io.Writer, plain bool) *renderer {
	return &renderer{out: out, theme: newTheme(plain)}
}

func (r *renderer) render(ev adjudication.Event) {
	switch p := ev.Payload.(type) {
	case adjudication.RunStarted:
		r.line(r.theme.paint(r.theme.header, "▶ adjudicating customer " + p.CustomerID))
	case adjudication.Token:
		if p.Delta == "" {
			return
		}
		_, _ = io.WriteString(r.out, p.Delta)
		r.midLine = !strings.HasSuffix(p.Delta, "\n")
	case adjudication.ToolCallStarted:
		r.tools++
		r.line(r.theme.paint(r.theme.tool, fmt.Sprintf("⚙ %s (%s)", p.Tool, p.ID)))
	case adjudication.RunFinished:
		r.finished = true
		r.line(r.theme.paint(r.theme.success, fmt.Sprintf("✓ finished (%d tool calls)", r.tools)))
	case adjudication.Failure:
		r.failed = p.Message
		r.line(r.theme.paint(r.theme.failure, "✗ " + p.Message))
	}
}

func (r *renderer) line(s string) {
	if r.midLine {
		_, _ = io.WriteString(r.out, "\n")
		r.midLine = false
	}
	_, _ = io.WriteString(r.out, s+"\n")
}
