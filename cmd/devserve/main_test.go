package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/f4ah6o/devserve-go/internal/console"
)

func init() {
	color.NoColor = true
}

// syncBuffer is written by run's goroutine and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "0.0.0.0:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func TestRunArgumentErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "Non-numeric port", args: []string{"abc"}, want: "Port must be a number"},
		{name: "Out of range", args: []string{"99999"}, want: "Port must be a number"},
		{name: "Too many arguments", args: []string{"8000", "8001"}, want: "at most one argument"},
		{name: "Unknown flag", args: []string{"-verbose"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tt.args, &stdout, &stderr)
			if code != 1 {
				t.Fatalf("run(%v) = %d, want 1", tt.args, code)
			}
			if !strings.Contains(stdout.String(), tt.want) {
				t.Errorf("output = %q, want it to contain %q", stdout.String(), tt.want)
			}
			if strings.Contains(stdout.String(), "started successfully") {
				t.Error("server should not start")
			}
		})
	}
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-h"}, &stdout, &stderr); code != 0 {
		t.Errorf("run(-h) = %d, want 0", code)
	}
	if !strings.Contains(stderr.String(), "Usage: devserve") {
		t.Errorf("usage = %q", stderr.String())
	}
}

func TestRunPortInUse(t *testing.T) {
	held, err := net.Listen("tcp", "0.0.0.0:0")
	if err != nil {
		t.Fatal(err)
	}
	defer held.Close()
	port := held.Addr().(*net.TCPAddr).Port

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-no-browser", fmt.Sprint(port)}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("run() = %d, want 1", code)
	}
	if !strings.Contains(stdout.String(), fmt.Sprintf("Port %d is already in use", port)) {
		t.Errorf("output = %q", stdout.String())
	}
}

func TestRunInterrupt(t *testing.T) {
	port := freePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stdout, stderr syncBuffer
	done := make(chan int, 1)
	go func() {
		done <- run(ctx, []string{"-no-browser", fmt.Sprint(port)}, &stdout, &stderr)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			conn.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start: %v\n%s", err, stdout.String())
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case code := <-done:
		if code != 0 {
			t.Fatalf("run() = %d, want 0\n%s", code, stdout.String())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run() did not return within 2s of interrupt")
	}

	out := stdout.String()
	for _, want := range []string{"HTTP Server started successfully", "Server stopped by user"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

// fakeServer returns err from Serve once ctx allows it.
type fakeServer struct {
	err error
}

func (f fakeServer) Serve(ctx context.Context) error {
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return nil
}

func TestServeExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		srv      fakeServer
		wantCode int
		wantOut  string
	}{
		{
			name:     "Runtime failure",
			srv:      fakeServer{err: errors.New("serve: accept tcp: use of closed network connection")},
			wantCode: 1,
			wantOut:  "Unexpected error: serve: accept tcp: use of closed network connection",
		},
		{name: "Stopped", srv: fakeServer{}, wantCode: 0, wantOut: "Server stopped by user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			var buf bytes.Buffer
			if code := serve(ctx, tt.srv, console.New(&buf)); code != tt.wantCode {
				t.Errorf("serve() = %d, want %d", code, tt.wantCode)
			}
			if !strings.Contains(buf.String(), tt.wantOut) {
				t.Errorf("output = %q, want it to contain %q", buf.String(), tt.wantOut)
			}
		})
	}
}

// mainArgsEnv carries the arguments for the child process started by
// TestMainInterruptSignal.
const mainArgsEnv = "DEVSERVE_MAIN_ARGS"

func TestMainInterruptSignal(t *testing.T) {
	if args, ok := os.LookupEnv(mainArgsEnv); ok {
		os.Args = append([]string{"devserve"}, strings.Fields(args)...)
		main()
		return
	}
	if runtime.GOOS == "windows" {
		t.Skip("os.Interrupt cannot be sent to a process on windows")
	}

	port := freePort(t)
	var stdout, stderr syncBuffer
	cmd := exec.Command(os.Args[0], "-test.run=^TestMainInterruptSignal$")
	cmd.Env = append(os.Environ(), fmt.Sprintf("%s=-no-browser %d", mainArgsEnv, port))
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			conn.Close()
			break
		}
		if time.Now().After(deadline) {
			cmd.Process.Kill()
			t.Fatalf("child did not start listening: %v\n%s%s", err, stdout.String(), stderr.String())
		}
		time.Sleep(20 * time.Millisecond)
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("child exited with %v, want status 0\n%s%s", err, stdout.String(), stderr.String())
		}
	case <-time.After(2 * time.Second):
		cmd.Process.Kill()
		t.Fatal("child did not exit within 2s of the interrupt")
	}

	if !strings.Contains(stdout.String(), "Server stopped by user") {
		t.Errorf("child output missing shutdown message:\n%s", stdout.String())
	}
}
