package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/i2y/indexpilot/chat"
)

var (
	clrBrand  = lipgloss.Color("39")
	clrGreen  = lipgloss.Color("114")
	clrRed    = lipgloss.Color("203")
	clrYellow = lipgloss.Color("220")
	clrDim    = lipgloss.Color("245")
	clrWhite  = lipgloss.Color("255")
)

// styles renders terminal output. All styling is disabled when output is
// not a terminal or JSON was requested.
type styles struct {
	enabled bool

	Header  lipgloss.Style
	Key     lipgloss.Style
	Value   lipgloss.Style
	Dim     lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Prompt  lipgloss.Style
}

func newStyles(w io.Writer, jsonMode bool) styles {
	s := styles{enabled: !jsonMode && isTerminal(w)}
	if !s.enabled {
		noop := lipgloss.NewStyle()
		s.Header, s.Key, s.Value, s.Dim = noop, noop, noop, noop
		s.Warning, s.Error, s.Success, s.Prompt = noop, noop, noop, noop
		return s
	}

	s.Header = lipgloss.NewStyle().Bold(true).Foreground(clrBrand)
	s.Key = lipgloss.NewStyle().Foreground(clrDim)
	s.Value = lipgloss.NewStyle().Foreground(clrWhite)
	s.Dim = lipgloss.NewStyle().Foreground(clrDim)
	s.Warning = lipgloss.NewStyle().Foreground(clrYellow).Bold(true)
	s.Error = lipgloss.NewStyle().Foreground(clrRed).Bold(true)
	s.Success = lipgloss.NewStyle().Foreground(clrGreen)
	s.Prompt = lipgloss.NewStyle().Bold(true).Foreground(clrBrand)
	return s
}

func (s styles) render(st lipgloss.Style, text string) string {
	if !s.enabled {
		return text
	}
	return st.Render(text)
}

// kv formats a key-value pair like "  Key:          value".
func (s styles) kv(key, value string) string {
	return fmt.Sprintf("  %s %s", s.render(s.Key, fmt.Sprintf("%-14s", key+":")), s.render(s.Value, value))
}

func (s styles) header(title string) string {
	return s.render(s.Header, title)
}

func (s styles) warn(text string) string {
	return s.render(s.Warning, "WARNING:") + " " + text
}

// invocation renders one tool invocation of a turn.
func (s styles) invocation(inv chat.Invocation) string {
	var b strings.Builder
	mark := s.render(s.Success, "✓")
	if !inv.Success {
		mark = s.render(s.Error, "✗")
	}
	fmt.Fprintf(&b, "%s %s %s\n", mark, s.render(s.Value, inv.Name),
		s.render(s.Dim, fmt.Sprintf("(%s, %s)", inv.Time(), inv.Duration.Round(time.Millisecond))))

	if len(inv.Arguments) > 0 {
		if args, err := json.Marshal(inv.Arguments); err == nil {
			b.WriteString(s.kv("arguments", string(args)))
			b.WriteByte('\n')
		}
	}
	for _, w := range inv.Warnings {
		b.WriteString("  " + s.warn(w))
		b.WriteByte('\n')
	}
	if !inv.Success && inv.Error != "" {
		b.WriteString(s.kv("error", firstLine(inv.Error)))
		b.WriteByte('\n')
	}
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
