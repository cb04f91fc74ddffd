package shell

import (
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/samber/lo"

	"github.com/domino14/gobblet/move"
	"github.com/domino14/gobblet/movegen"
	"github.com/domino14/gobblet/piece"
)

// ShellCompleter provides context-aware autocomplete for shell commands
type ShellCompleter struct {
	sc *ShellController
}

func NewShellCompleter(sc *ShellController) *ShellCompleter {
	return &ShellCompleter{sc: sc}
}

// CommandMetadata holds autocomplete information for a command
type CommandMetadata struct {
	Options []string // Available options for this command (e.g., "-plies")
	Args    []string // Possible argument values (for non-option arguments)
}

var commandMetadata = map[string]CommandMetadata{
	"random": {
		Options: []string{"-plies"},
	},
	"checkpoint": {
		Options: []string{"-path"},
		Args:    []string{"load", "save", "info"},
	},
	"solve": {
		Options: []string{"-prune", "-path"},
		Args:    []string{"stop", "status"},
	},
	"lookup": {
		Options: []string{"-db"},
		Args:    []string{"db"},
	},
	"stats": {
		Options: []string{"-games"},
		Args:    []string{"table", "branching", "line"},
	},
	"help": {
		Args: []string{"play", "solve", "lookup", "stats", "checkpoint"},
	},
}

var commandNames = []string{
	"help", "new", "load", "show", "moves", "play", "undo", "random",
	"canon", "checkpoint", "solve", "lookup", "best", "stats", "exit",
}

var boolValues = []string{"true", "false"}

// legalMoves offers the legal moves of the current position for play.
func (c *ShellCompleter) legalMoves() []string {
	b := c.sc.board
	if b.Winner() != piece.NoPlayer {
		return nil
	}
	return lo.Map(movegen.GenAll(b), func(m move.Move, _ int) string {
		return m.ShortDescription()
	})
}

// Do implements the readline.AutoComplete interface
func (c *ShellCompleter) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])

	fields, err := shellquote.Split(text)
	if err != nil {
		fields = strings.Fields(text)
	}
	endsWithSpace := len(text) > 0 && text[len(text)-1] == ' '

	var prefix string
	var completions []string

	if len(fields) == 0 || (len(fields) == 1 && !endsWithSpace) {
		if len(fields) == 1 {
			prefix = fields[0]
		}
		completions = commandNames
	} else {
		cmdName := fields[0]
		if !endsWithSpace {
			prefix = fields[len(fields)-1]
		}

		var lastCompleteField string
		if endsWithSpace {
			lastCompleteField = fields[len(fields)-1]
		} else if len(fields) > 1 {
			lastCompleteField = fields[len(fields)-2]
		}

		if strings.HasPrefix(lastCompleteField, "-") {
			switch strings.TrimPrefix(lastCompleteField, "-") {
			case "prune":
				completions = boolValues
			}
		}

		if completions == nil && (cmdName == "play" || cmdName == "p") {
			completions = c.legalMoves()
		}

		if completions == nil {
			if metadata, exists := commandMetadata[cmdName]; exists {
				if strings.HasPrefix(prefix, "-") || len(metadata.Args) == 0 {
					completions = metadata.Options
				} else {
					completions = metadata.Args
				}
			}
		}
	}

	var matches [][]rune
	for _, completion := range completions {
		if strings.HasPrefix(completion, prefix) {
			matches = append(matches, []rune(completion[len(prefix):]))
		}
	}
	return matches, len(prefix)
}
