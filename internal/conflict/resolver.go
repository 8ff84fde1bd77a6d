package conflict

import (
	"context"
	"fmt"
	"gdsync/internal/logger"
	"gdsync/internal/model"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

type Choice int

const (
	ChoiceUnknown Choice = iota
	ChoiceYes
	ChoiceNo
	ChoiceYesToAll
	ChoiceKeepBoth
)

func (c Choice) String() string {
	switch c {
	case ChoiceYes:
		return "yes"
	case ChoiceNo:
		return "no"
	case ChoiceYesToAll:
		return "yes to all"
	case ChoiceKeepBoth:
		return "keep both"
	}

	return "unknown"
}

// ParseChoice reads the first letter of s, case-insensitive.
func ParseChoice(s string) Choice {
	s = strings.TrimSpace(s)
	if s == "" {
		return ChoiceUnknown
	}

	switch strings.ToLower(s[:1]) {
	case "y":
		return ChoiceYes
	case "n":
		return ChoiceNo
	case "a":
		return ChoiceYesToAll
	case "b":
		return ChoiceKeepBoth
	}

	return ChoiceUnknown
}

type State int

const (
	StateAskingUser State = iota
	StateApplyAll
	StateDone
)

// Prompter decides what to do with one out-of-date file. Ask must return
// ctx.Err() once ctx is done, even while waiting for input.
type Prompter interface {
	Ask(ctx context.Context, entry model.RemoteEntry) (Choice, error)
}

type PrompterFunc func(ctx context.Context, entry model.RemoteEntry) (Choice, error)

func (f PrompterFunc) Ask(ctx context.Context, entry model.RemoteEntry) (Choice, error) {
	return f(ctx, entry)
}

type Resolver struct {
	prompter Prompter
	state    State
	reserved map[string]struct{}
}

// NewResolver starts in StateApplyAll when applyAll is set, so nothing is asked.
func NewResolver(p Prompter, applyAll bool) *Resolver {
	state := StateAskingUser
	if applyAll {
		state = StateApplyAll
	}

	return &Resolver{
		prompter: p,
		state:    state,
		reserved: make(map[string]struct{}),
	}
}

func (r *Resolver) State() State {
	return r.state
}

// Resolve returns the entries to download, possibly renamed for keep-both.
func (r *Resolver) Resolve(ctx context.Context, changed []model.RemoteEntry) ([]model.RemoteEntry, error) {
	var staged []model.RemoteEntry

	for _, entry := range changed {
		if r.state == StateApplyAll {
			staged = append(staged, entry)
			continue
		}

		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			choice, err := r.prompter.Ask(ctx, entry)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve conflict for %s: %w", entry.Name, err)
			}

			logger.Log.Debug("conflict choice",
				zap.String("path", entry.LocalPath()),
				zap.String("choice", choice.String()))

			switch choice {
			case ChoiceYes:
				staged = append(staged, entry)
			case ChoiceNo:
			case ChoiceYesToAll:
				r.state = StateApplyAll
				staged = append(staged, entry)
			case ChoiceKeepBoth:
				name, err := KeepBothName(entry.Path, entry.Name, r.reserved)
				if err != nil {
					return nil, err
				}
				r.reserved[filepath.Join(entry.Path, name)] = struct{}{}
				entry.Name = name
				staged = append(staged, entry)
			default:
				continue
			}

			break
		}
	}

	r.state = StateDone
	return staged, nil
}

// KeepBothName derives a sibling name for name in dir. The name is split at
// its first dot; the index counts entries in dir starting with the stem plus
// names already reserved there, and is bumped past any name still taken.
func KeepBothName(dir, name string, reserved map[string]struct{}) (string, error) {
	stem, ext, hasExt := strings.Cut(name, ".")

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read dir %s: %w", dir, err)
	}

	taken := make(map[string]struct{}, len(dirEntries)+len(reserved))
	for _, e := range dirEntries {
		taken[e.Name()] = struct{}{}
	}
	for path := range reserved {
		if filepath.Dir(path) == filepath.Clean(dir) {
			taken[filepath.Base(path)] = struct{}{}
		}
	}

	index := 0
	for n := range taken {
		if strings.HasPrefix(n, stem) {
			index++
		}
	}

	for {
		candidate := fmt.Sprintf("%s.%03d", stem, index)
		if hasExt {
			candidate += "." + ext
		}
		if _, ok := taken[candidate]; !ok {
			return candidate, nil
		}
		index++
	}
}
