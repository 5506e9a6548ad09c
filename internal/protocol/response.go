package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/0xRadioAc7iv/go-kvs/core"
)

// Store is the part of core.Store the shell drives.
type Store interface {
	Set(key, value string) error
	Get(key string) (string, bool, error)
	Remove(key string) error
	Len() int
	Keys() []string
	Compact() error
	Stats() core.Stats
}

// ErrExit is returned by Execute for the exit command.
var ErrExit = errors.New("exit")

const NilReply = "nil"
const OKReply = "ok"
const KeyNotFoundReply = "Key not found"

// Execute runs cmd against store and returns the text to show the user.
// Removing a missing key is reported as an error wrapping
// core.ErrKeyNotFound, not as a reply.
func Execute(store Store, cmd *Command) (string, error) {
	switch cmd.Cmd {
	case "set":
		if err := store.Set(cmd.Key, cmd.Val); err != nil {
			return "", err
		}
		return OKReply, nil

	case "get":
		value, ok, err := store.Get(cmd.Key)
		if err != nil {
			return "", err
		}
		if !ok {
			return NilReply, nil
		}
		return value, nil

	case "rm":
		if err := store.Remove(cmd.Key); err != nil {
			return "", err
		}
		return OKReply, nil

	case "exists":
		_, ok, err := store.Get(cmd.Key)
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(ok), nil

	case "count":
		return strconv.Itoa(store.Len()), nil

	case "list":
		keys := store.Keys()
		if len(keys) == 0 {
			return NilReply, nil
		}
		return "----- KEYS START -----\n" + strings.Join(keys, "\n") + "\n----- KEYS END -----", nil

	case "compact":
		if err := store.Compact(); err != nil {
			return "", err
		}
		return OKReply, nil

	case "stats":
		st := store.Stats()
		return fmt.Sprintf("segments=%d active_records=%d live_keys=%d threshold=%d compactions=%d",
			st.Segments, st.ActiveRecords, st.LiveKeys, st.Threshold, st.Compactions), nil

	case "help":
		return strings.TrimSpace(HelpText), nil

	case "exit":
		return "", ErrExit

	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Cmd)
	}
}

// FormatError turns an Execute error into the line shown to the user.
func FormatError(err error) string {
	switch {
	case errors.Is(err, core.ErrKeyNotFound):
		return KeyNotFoundReply
	case errors.Is(err, core.ErrInvalidKey):
		return "Invalid key: keys must not be empty"
	case errors.Is(err, core.ErrCompaction):
		return "ok (warning: " + err.Error() + ")"
	default:
		return "error: " + err.Error()
	}
}

const HelpText = `
Available Commands:

SET <key> <value>
  Store a value for the given key.
  Overwrites the value if the key already exists.
  Quote keys or values that contain spaces.
  Response: ok

GET <key>
  Retrieve the value associated with the key.
  Response: value | nil

RM <key>   (aliases: DELETE, DEL)
  Delete the key and its value.
  Response: ok | Key not found

EXISTS <key>
  Check if a key exists.
  Response: true | false

COUNT
  Return the number of live keys.
  Response: integer

LIST
  List all live keys in ascending order.
  Response: list of keys | nil

COMPACT
  Rewrite live data into fresh segments now.
  Response: ok

STATS
  Show segment and compaction counters.

HELP
  Show this help message.

EXIT   (alias: QUIT)
  Close the store and leave the shell.
`
