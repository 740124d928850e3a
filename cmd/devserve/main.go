// Command devserve serves the directory it is installed in over HTTP with
// permissive CORS headers and opens the test page in a browser.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/f4ah6o/devserve-go/internal/browser"
	"github.com/f4ah6o/devserve-go/internal/config"
	"github.com/f4ah6o/devserve-go/internal/console"
	"github.com/f4ah6o/devserve-go/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run starts the server and blocks until ctx is cancelled or serving fails.
// It returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("devserve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	noBrowser := fs.Bool("no-browser", false, "Do not open the test page in a browser")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [-no-browser] [port]\n", fs.Name())
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	p := console.New(stdout)
	logger := log.New(stderr, "", log.LstdFlags)

	if fs.NArg() > 1 {
		p.Error("Expected at most one argument, got %d", fs.NArg())
		fs.Usage()
		return 1
	}

	root, err := config.ResolveRoot()
	if err != nil {
		p.Error("Error starting server: %v", err)
		return 1
	}
	cfg, err := config.Load(root, fs.Args())
	if err != nil {
		if errors.Is(err, config.ErrInvalidArgument) {
			p.Error("Port must be a number between 1 and 65535 (%v)", err)
		} else {
			p.Error("Error starting server: %v", err)
		}
		return 1
	}
	if *noBrowser {
		cfg.OpenBrowser = false
	}

	// Relative lookups such as the page titles resolve against the root.
	if err := os.Chdir(cfg.Root); err != nil {
		p.Error("Error starting server: %v", err)
		return 1
	}

	srv := server.New(cfg, logger)
	if err := srv.Listen(); err != nil {
		if errors.Is(err, server.ErrPortInUse) {
			p.PortInUse(cfg.Port)
		} else {
			p.Error("Error starting server: %v", err)
		}
		return 1
	}

	p.Banner(cfg)

	if cfg.OpenBrowser {
		task := browser.Schedule(cfg.BrowserDelay, cfg.LocalURL(cfg.TestPage), browser.Open, logger)
		defer task.Stop()
	}

	return serve(ctx, srv, p)
}

// servable is the part of *server.Server that runs after a successful bind.
type servable interface {
	Serve(ctx context.Context) error
}

// serve blocks in srv until ctx is cancelled or serving fails and maps the
// outcome to an exit code.
func serve(ctx context.Context, srv servable, p *console.Printer) int {
	if err := srv.Serve(ctx); err != nil {
		p.Error("Unexpected error: %v", err)
		return 1
	}
	p.Stopped()
	return 0
}
