//go:build unix

package signal

import (
	"context"
	"os"
	ossignal "os/signal"
	"syscall"
)

// NotifyOS maps process signals onto s until ctx is done: SIGINT and SIGTERM
// request shutdown, SIGUSR1 pauses and SIGUSR2 resumes.
func NotifyOS(ctx context.Context, s *Signal) {
	ch := make(chan os.Signal, 1)
	ossignal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)

	go func() {
		defer ossignal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case sig := <-ch:
				switch sig {
				case syscall.SIGUSR1:
					s.Pause()
				case syscall.SIGUSR2:
					s.Resume()
				default:
					s.Shutdown()
				}
			}
		}
	}()
}
