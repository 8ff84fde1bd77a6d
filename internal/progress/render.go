package progress

import (
	"fmt"
	"gdsync/internal/model"
	"gdsync/internal/util"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"golang.org/x/term"
)

const barWidth = 50

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// TerminalRenderer redraws the frame in place on a terminal. On anything
// else only the final frame is written.
type TerminalRenderer struct {
	out         io.Writer
	root        string
	interactive bool
	drawn       int
}

func NewTerminalRenderer(out *os.File, root string) *TerminalRenderer {
	return &TerminalRenderer{
		out:         out,
		root:        root,
		interactive: term.IsTerminal(int(out.Fd())),
	}
}

func (r *TerminalRenderer) Render(f Frame) {
	if !r.interactive {
		return
	}

	r.draw(f)
}

func (r *TerminalRenderer) Final(f Frame) {
	r.draw(f)
	r.drawn = 0

	_, _ = fmt.Fprintln(r.out, FormatCounts(f))
}

func (r *TerminalRenderer) draw(f Frame) {
	var sb strings.Builder

	for range r.drawn {
		sb.WriteString("\x1b[1A\x1b[2K")
	}

	for _, it := range f.Items {
		sb.WriteString(FormatItem(r.root, it))
		sb.WriteByte('\n')
	}

	_, _ = io.WriteString(r.out, sb.String())
	r.drawn = len(f.Items)
}

// FormatItem renders one progress line.
func FormatItem(root string, it Item) string {
	name := util.DisplayPath(root, it.Key)
	sizes := fmt.Sprintf("[%s/%s]", humanize.Bytes(uint64(it.Bytes)), humanize.Bytes(uint64(it.Total)))

	switch it.State {
	case model.TransferComplete:
		sizes = fmt.Sprintf("[%s/%s]", humanize.Bytes(uint64(it.Total)), humanize.Bytes(uint64(it.Total)))
		return successStyle.Render("[+]") + " " + name + " complete: 100% " + sizes
	case model.TransferFailed:
		return errorStyle.Render("[!]") + " " + name + " failed: " + it.Err
	case model.TransferPending:
		return faintStyle.Render("[i] " + name + " pending")
	}

	return infoStyle.Render("[i]") + " " + name + fmt.Sprintf(" in progress: %d%% ", it.Percent) + sizes + " " + bar(it.Percent)
}

// FormatCounts renders the closing tally of a batch.
func FormatCounts(f Frame) string {
	counts := f.Counts()
	line := fmt.Sprintf("%d of %d complete", counts[model.TransferComplete], len(f.Items))
	if n := counts[model.TransferFailed]; n > 0 {
		return errorStyle.Render("[!]") + " " + line + fmt.Sprintf(", %d failed", n)
	}

	return successStyle.Render("[+]") + " " + line
}

func bar(percent int) string {
	filled := percent * barWidth / 100
	return infoStyle.Render(strings.Repeat("━", filled)) + faintStyle.Render(strings.Repeat("━", barWidth-filled))
}

// Console prints prefixed status lines.
type Console struct {
	Out io.Writer
}

func NewConsole() *Console {
	return &Console{Out: os.Stdout}
}

func (c *Console) Info(format string, args ...any) {
	c.line(infoStyle.Render("[i]"), format, args...)
}

func (c *Console) Success(format string, args ...any) {
	c.line(successStyle.Render("[+]"), format, args...)
}

func (c *Console) Warn(format string, args ...any) {
	c.line(warnStyle.Render("[!]"), format, args...)
}

func (c *Console) Error(format string, args ...any) {
	c.line(errorStyle.Render("[!]"), format, args...)
}

// New lists a file about to be fetched for the first time.
func (c *Console) New(path string) {
	_, _ = fmt.Fprintln(c.Out, successStyle.Render("    + "+path))
}

// Changed lists a file that differs from the remote copy.
func (c *Console) Changed(path string) {
	_, _ = fmt.Fprintln(c.Out, warnStyle.Render("    ~ "+path))
}

func (c *Console) line(prefix, format string, args ...any) {
	_, _ = fmt.Fprintln(c.Out, prefix+" "+fmt.Sprintf(format, args...))
}
