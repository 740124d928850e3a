// Package browser opens URLs in the user's default browser.
package browser

import (
	"log"
	"os/exec"
	"runtime"
	"sync"
	"time"
)

// Opener launches url in a browser.
type Opener func(url string) error

// Open opens url in the default browser of the user. It returns once the
// launcher process has started.
func Open(url string) error {
	var (
		cmd  string
		args []string
	)

	switch runtime.GOOS {
	case "windows":
		cmd, args = "cmd", []string{"/c", "start"}
	case "darwin":
		cmd = "open"
	default:
		// "linux", "freebsd", "openbsd", "netbsd"
		cmd = "xdg-open"
	}
	args = append(args, url)
	c := exec.Command(cmd, args...)
	if err := c.Start(); err != nil {
		return err
	}
	// Reap the launcher in the background.
	go c.Wait()
	return nil
}

// Task is a pending one-shot browser launch.
type Task struct {
	timer *time.Timer
	done  chan struct{}
	once  sync.Once
}

// Schedule opens url with open after delay without blocking the caller.
// A failed launch is logged and otherwise ignored.
func Schedule(delay time.Duration, url string, open Opener, logger *log.Logger) *Task {
	if open == nil {
		open = Open
	}
	if logger == nil {
		logger = log.Default()
	}

	t := &Task{done: make(chan struct{})}
	t.timer = time.AfterFunc(delay, func() {
		defer t.finish()
		if err := open(url); err != nil {
			logger.Printf("Could not open browser at %s: %v", url, err)
		}
	})
	return t
}

// Stop cancels the launch if it has not started. It reports whether the
// launch was cancelled.
func (t *Task) Stop() bool {
	if t.timer.Stop() {
		t.finish()
		return true
	}
	return false
}

// Done is closed once the launch has run or been cancelled.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

func (t *Task) finish() {
	t.once.Do(func() { close(t.done) })
}
