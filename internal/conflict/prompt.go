package conflict

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"gdsync/internal/model"
	"gdsync/internal/util"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// NewPrompter picks a select menu on an interactive terminal and line input
// otherwise.
func NewPrompter(root string) Prompter {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return &SelectPrompter{Root: root}
	}

	p := NewLinePrompter(os.Stdin, os.Stdout)
	p.Root = root
	return p
}

type selectItem struct {
	Label  string
	Choice Choice
}

var selectItems = []selectItem{
	{Label: "Yes, overwrite", Choice: ChoiceYes},
	{Label: "No, keep my copy", Choice: ChoiceNo},
	{Label: "Yes to all", Choice: ChoiceYesToAll},
	{Label: "Keep both", Choice: ChoiceKeepBoth},
}

type SelectPrompter struct {
	Root string
}

type selectResult struct {
	idx int
	err error
}

// Ask runs the menu in its own goroutine so a cancelled ctx returns at once.
// The terminal mode saved before the menu is put back on cancel.
func (p *SelectPrompter) Ask(ctx context.Context, entry model.RemoteEntry) (Choice, error) {
	prompt := promptui.Select{
		Label: fmt.Sprintf("Conflict found for %s. Overwrite?", displayName(p.Root, entry)),
		Items: selectItems,
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . | yellow }}",
			Active:   "> {{ .Label | cyan }}",
			Inactive: "  {{ .Label }}",
			Selected: "  {{ .Label | faint }}",
		},
		HideHelp: true,
	}

	fd := int(os.Stdin.Fd())
	state, stateErr := term.GetState(fd)

	resCh := make(chan selectResult, 1)
	go func() {
		idx, _, err := prompt.Run()
		resCh <- selectResult{idx: idx, err: err}
	}()

	var res selectResult
	select {
	case <-ctx.Done():
		if stateErr == nil {
			_ = term.Restore(fd, state)
		}
		return ChoiceUnknown, ctx.Err()
	case res = <-resCh:
	}

	if res.err != nil {
		if errors.Is(res.err, promptui.ErrInterrupt) || errors.Is(res.err, promptui.ErrEOF) {
			return ChoiceUnknown, fmt.Errorf("%w: %w", context.Canceled, res.err)
		}
		return ChoiceUnknown, fmt.Errorf("failed to read choice: %w", res.err)
	}

	return selectItems[res.idx].Choice, nil
}

// LinePrompter asks on out and reads one answer per line from in. A single
// goroutine reads in, so a cancelled Ask never loses the next answer.
type LinePrompter struct {
	Root string
	in   *bufio.Reader
	out  io.Writer

	once  sync.Once
	lines chan lineResult
}

type lineResult struct {
	line string
	err  error
}

func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out, lines: make(chan lineResult)}
}

func (p *LinePrompter) readLines() {
	for {
		line, err := p.in.ReadString('\n')
		p.lines <- lineResult{line: line, err: err}
		if err != nil {
			close(p.lines)
			return
		}
	}
}

func (p *LinePrompter) Ask(ctx context.Context, entry model.RemoteEntry) (Choice, error) {
	_, _ = fmt.Fprintf(p.out, "[!] Conflict found for %s. Overwrite?\n    [Y] yes, [N] no, [A] yes to all, [B] keep both: ",
		displayName(p.Root, entry))

	p.once.Do(func() { go p.readLines() })

	var res lineResult
	select {
	case <-ctx.Done():
		_, _ = fmt.Fprintln(p.out)
		return ChoiceUnknown, ctx.Err()
	case r, ok := <-p.lines:
		if !ok {
			return ChoiceUnknown, fmt.Errorf("failed to read choice: %w", io.EOF)
		}
		res = r
	}

	if res.err != nil && (!errors.Is(res.err, io.EOF) || strings.TrimSpace(res.line) == "") {
		return ChoiceUnknown, fmt.Errorf("failed to read choice: %w", res.err)
	}

	return ParseChoice(res.line), nil
}

func displayName(root string, entry model.RemoteEntry) string {
	if root == "" {
		return entry.LocalPath()
	}

	return util.DisplayPath(root, entry.LocalPath())
}
