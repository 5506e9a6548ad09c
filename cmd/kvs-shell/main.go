package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/0xRadioAc7iv/go-kvs/core"
	"github.com/0xRadioAc7iv/go-kvs/internal"
	"github.com/0xRadioAc7iv/go-kvs/internal/protocol"
	"github.com/0xRadioAc7iv/go-kvs/internal/utils"
)

func main() {
	in := utils.HandleCLIInputs()

	cfg, err := internal.LoadConfig(in.ConfigPath)
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}
	if in.DirectoryPath != "" {
		cfg.Dir = in.DirectoryPath
	}

	logger, err := utils.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Println("Error creating logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	store, err := core.Open(cfg.Dir, core.WithConfig(cfg), core.WithLogger(logger))
	if err != nil {
		fmt.Println("Error opening store:", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing store", zap.Error(err))
		}
	}()

	fmt.Printf("Opened %v\n", cfg.Dir)
	fmt.Println("Type commands. 'help' for information or 'exit' to quit.")

	signals, stop := utils.NotifyOnInterruptOrKill()
	defer stop()

	lines := readLines(os.Stdin)

	for {
		fmt.Print("> ")

		var line string
		select {
		case <-signals:
			fmt.Println()
			return
		case l, ok := <-lines:
			if !ok {
				fmt.Println()
				return
			}
			line = strings.TrimSpace(l)
		}

		if line == "" {
			continue
		}

		cmd, err := protocol.ParseCommand(line)
		if err != nil {
			fmt.Println("parse error:", err)
			continue
		}

		logger.Debug("executing", zap.Stringer("command", cmd))

		resp, err := protocol.Execute(store, cmd)
		if errors.Is(err, protocol.ErrExit) {
			return
		}
		if err != nil {
			fmt.Println(protocol.FormatError(err))
			continue
		}

		fmt.Println(resp)
	}
}

// readLines feeds stdin to the main loop so that it can also wait for
// signals. The store itself is only touched by the main goroutine.
func readLines(r io.Reader) <-chan string {
	out := make(chan string)

	go func() {
		defer close(out)

		reader := bufio.NewReader(r)
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				out <- line
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					fmt.Println("input error:", err)
				}
				return
			}
		}
	}()

	return out
}
