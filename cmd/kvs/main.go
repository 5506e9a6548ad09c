package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/0xRadioAc7iv/go-kvs/core"
	"github.com/0xRadioAc7iv/go-kvs/internal"
	"github.com/0xRadioAc7iv/go-kvs/internal/protocol"
	"github.com/0xRadioAc7iv/go-kvs/internal/utils"
)

const version = "0.1.0"

const usage = `usage: kvs [-dir DIR] [-config FILE] <command>

commands:
  set <key> <value>   store value under key
  get <key>           print the value of key
  rm <key>            remove key
`

func main() {
	os.Exit(run())
}

func run() int {
	in := utils.HandleCLIInputs()

	if in.Version {
		fmt.Println(version)
		return 0
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	cfg, err := internal.LoadConfig(in.ConfigPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		return 1
	}
	if in.DirectoryPath != "" {
		cfg.Dir = in.DirectoryPath
	}

	logger, err := utils.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error creating logger:", err)
		return 1
	}
	defer logger.Sync()

	store, err := core.Open(cfg.Dir, core.WithConfig(cfg), core.WithLogger(logger))
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error opening store:", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing store", zap.Error(err))
		}
	}()

	switch args[0] {
	case "set":
		if len(args) != 3 {
			fmt.Fprint(os.Stderr, usage)
			return 2
		}
		if err := store.Set(args[1], args[2]); err != nil {
			if errors.Is(err, core.ErrCompaction) {
				logger.Warn("value stored, compaction failed", zap.Error(err))
				return 0
			}
			fmt.Fprintln(os.Stderr, protocol.FormatError(err))
			return 1
		}

	case "get":
		if len(args) != 2 {
			fmt.Fprint(os.Stderr, usage)
			return 2
		}
		value, ok, err := store.Get(args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, protocol.FormatError(err))
			return 1
		}
		if !ok {
			fmt.Println(protocol.KeyNotFoundReply)
			return 0
		}
		fmt.Println(value)

	case "rm":
		if len(args) != 2 {
			fmt.Fprint(os.Stderr, usage)
			return 2
		}
		if err := store.Remove(args[1]); err != nil {
			if errors.Is(err, core.ErrKeyNotFound) {
				fmt.Println(protocol.KeyNotFoundReply)
				return 1
			}
			if errors.Is(err, core.ErrCompaction) {
				logger.Warn("key removed, compaction failed", zap.Error(err))
				return 0
			}
			fmt.Fprintln(os.Stderr, protocol.FormatError(err))
			return 1
		}

	default:
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	return 0
}
