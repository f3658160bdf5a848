//go:build !unix

package signal

import (
	"context"
	"os"
	ossignal "os/signal"
)

// NotifyOS maps an interrupt onto a Shutdown of s until ctx is done.
// Pause and resume have no process signal on this platform.
func NotifyOS(ctx context.Context, s *Signal) {
	ch := make(chan os.Signal, 1)
	ossignal.Notify(ch, os.Interrupt)

	go func() {
		defer ossignal.Stop(ch)
		select {
		case <-ctx.Done():
		case <-s.done:
		case <-ch:
			s.Shutdown()
		}
	}()
}
