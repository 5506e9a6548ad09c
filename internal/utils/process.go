package utils

import (
	"os"
	"os/signal"
	"syscall"
)

// NotifyOnInterruptOrKill returns a channel that receives a value when the
// process gets an interrupt (Ctrl+C) or termination signal (SIGTERM). Call
// stop to unregister the handler.
func NotifyOnInterruptOrKill() (signals <-chan os.Signal, stop func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	return sigChan, func() { signal.Stop(sigChan) }
}
