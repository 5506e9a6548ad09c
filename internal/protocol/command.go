package protocol

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

var (
	ErrEmptyCommand   = errors.New("empty command")
	ErrUnknownCommand = errors.New("unknown command")
	ErrArguments      = errors.New("wrong number of arguments")
)

// Command represents a parsed shell command.
//
// A Command consists of a command name (Cmd), an optional key, and an optional
// value. The meaning of Key and Val depends on the command type (e.g. GET,
// SET, RM).
type Command struct {
	Cmd string // Command name, lower-cased (e.g. "get", "set", "rm")
	Key string // Key argument (may be empty)
	Val string // Value argument (may be empty)
}

// arity is the number of arguments each command takes after its name.
var arity = map[string]int{
	"set":     2,
	"get":     1,
	"rm":      1,
	"exists":  1,
	"count":   0,
	"list":    0,
	"compact": 0,
	"stats":   0,
	"help":    0,
	"exit":    0,
}

var aliases = map[string]string{
	"delete": "rm",
	"del":    "rm",
	"quit":   "exit",
}

// ParseCommand splits a shell line into a Command.
//
// Words are split with POSIX shell rules, so keys and values may contain
// spaces when quoted:
//
//	set city "new york"
//	set 'a key' value\ with\ spaces
//
// The command name is case-insensitive. An empty quoted argument ("") is kept
// so that the store can reject it as an invalid key.
func ParseCommand(line string) (*Command, error) {
	words, err := shellquote.Split(line)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", line, err)
	}

	if len(words) == 0 {
		return nil, ErrEmptyCommand
	}

	name := strings.ToLower(words[0])
	if alias, ok := aliases[name]; ok {
		name = alias
	}

	want, ok := arity[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, words[0])
	}

	args := words[1:]
	if len(args) != want {
		return nil, fmt.Errorf("%w: %s takes %d, got %d", ErrArguments, name, want, len(args))
	}

	cmd := &Command{Cmd: name}
	if want >= 1 {
		cmd.Key = args[0]
	}
	if want == 2 {
		cmd.Val = args[1]
	}

	return cmd, nil
}

// Join renders a Command back into a line that ParseCommand accepts.
func Join(cmd *Command) string {
	words := []string{cmd.Cmd}
	switch arity[cmd.Cmd] {
	case 1:
		words = append(words, cmd.Key)
	case 2:
		words = append(words, cmd.Key, cmd.Val)
	}
	return shellquote.Join(words...)
}

// String returns the command in its canonical shell form.
func (c *Command) String() string {
	return Join(c)
}
