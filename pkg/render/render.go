// Package render formats projections and events for the terminal.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"

	"github.com/go-go-golems/pulse/pkg/events"
	"github.com/go-go-golems/pulse/pkg/projection"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	titleStyle   = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#AFAFAF"))
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFDF5"))
	progressBold = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
)

// Printer writes styled output. Styling is off unless the writer is a
// terminal.
type Printer struct {
	w     io.Writer
	color bool
}

func NewPrinter(w io.Writer) *Printer {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Printer{w: w, color: color}
}

// WithColor forces styling on or off.
func (p *Printer) WithColor(on bool) *Printer {
	return &Printer{w: p.w, color: on}
}

func (p *Printer) Color() bool { return p.color }

func (p *Printer) style(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p *Printer) Println(a ...any) {
	_, _ = fmt.Fprintln(p.w, a...)
}

func (p *Printer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(p.w, format, a...)
}

func (p *Printer) LogLine(e projection.LogEntry) string {
	tag := "[" + e.Level + "]"
	switch e.Level {
	case events.LevelError:
		tag = p.style(errorStyle, tag)
	case "warning", "warn":
		tag = p.style(warnStyle, tag)
	case events.LevelSuccess:
		tag = p.style(successStyle, tag)
	default:
		tag = p.style(infoStyle, tag)
	}
	return tag + " " + e.Message
}

// Paper is a short multi-line listing entry. n is the 1-based position.
func (p *Printer) Paper(n int, paper events.Paper) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%3d. %s %s\n", n, p.style(idStyle, paper.ArxivID), p.style(titleStyle, oneLine(paper.Title)))
	if names := paper.AuthorNames(); len(names) > 0 {
		authors := strings.Join(names, ", ")
		if len(names) > 4 {
			authors = strings.Join(names[:4], ", ") + fmt.Sprintf(" +%d", len(names)-4)
		}
		b.WriteString("     " + p.style(dimStyle, authors) + "\n")
	}
	meta := []string{}
	if paper.PrimaryCategory != "" {
		meta = append(meta, paper.PrimaryCategory)
	}
	if paper.Published != "" {
		meta = append(meta, firstN(paper.Published, 10))
	}
	if paper.RelevanceScore > 0 {
		meta = append(meta, fmt.Sprintf("score %.2f", paper.RelevanceScore))
	}
	if len(meta) > 0 {
		b.WriteString("     " + p.style(dimStyle, strings.Join(meta, " · ")) + "\n")
	}
	return b.String()
}

func (p *Printer) Progress(pr *projection.Progress) string {
	if pr == nil {
		return ""
	}
	parts := []string{}
	if pr.Stage != "" {
		parts = append(parts, p.style(progressBold, pr.Stage))
	}
	if pr.Message != "" {
		parts = append(parts, pr.Message)
	}
	switch {
	case pr.TotalPapers > 0:
		parts = append(parts, fmt.Sprintf("(%d/%d)", pr.PaperIndex, pr.TotalPapers))
	case pr.Total > 0:
		parts = append(parts, fmt.Sprintf("(%d/%d)", pr.Current, pr.Total))
	}
	if pr.Percent > 0 {
		parts = append(parts, fmt.Sprintf("%.0f%%", pr.Percent))
	}
	return strings.Join(parts, " ")
}

// Markdown renders assistant content. While streaming, an unbalanced code
// fence is closed so the partial reply still renders.
func (p *Printer) Markdown(content string, streaming bool) (string, error) {
	if content == "" {
		return "", nil
	}
	if streaming {
		content = CloseOpenFence(content)
	}
	if !p.color {
		return content, nil
	}
	out, err := glamour.Render(content, "dark")
	if err != nil {
		return "", errors.Wrap(err, "render markdown")
	}
	return out, nil
}

// CloseOpenFence appends a closing ``` when content has an odd number of
// fences.
func CloseOpenFence(content string) string {
	if strings.Count(content, "```")%2 != 0 {
		return content + "\n```"
	}
	return content
}

// Event is a one-line description of a raw stream event.
func (p *Printer) Event(ev events.Event) string {
	switch e := ev.(type) {
	case *events.EventLog:
		return p.LogLine(projection.LogEntry{Level: e.Level, Message: e.Message})
	case *events.EventPaper:
		return fmt.Sprintf("%s %s %s", p.style(dimStyle, string(e.Type)), e.Paper.ArxivID, oneLine(e.Paper.Title))
	case *events.EventTotal:
		return fmt.Sprintf("%s %d", p.style(dimStyle, "total"), e.Total)
	case *events.EventProgress:
		return p.style(dimStyle, "progress") + " " + e.Stage + " " + e.Message
	case *events.EventChunk:
		return p.style(dimStyle, "chunk") + " " + fmt.Sprintf("%q", e.Content)
	case *events.EventDone:
		return p.style(infoStyle, "done")
	case *events.EventError:
		return p.style(errorStyle, "error") + " " + e.Message
	case *events.EventUnknown:
		return p.style(warnStyle, "unknown") + " " + string(e.Type)
	default:
		return ""
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
