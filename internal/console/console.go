// Package console prints the human-facing startup and shutdown messages.
package console

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fatih/color"

	"github.com/f4ah6o/devserve-go/internal/config"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	infoColor    = color.New(color.FgCyan)
	linkColor    = color.New(color.FgBlue, color.Underline)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
)

// Printer writes coloured messages to out.
type Printer struct {
	out io.Writer
}

// New returns a Printer writing to out.
func New(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Banner prints the startup summary for cfg.
func (p *Printer) Banner(cfg config.Config) {
	successColor.Fprintln(p.out, "🚀 HTTP Server started successfully!")
	fmt.Fprintf(p.out, "📁 Serving files from: %s\n", cfg.Root)
	fmt.Fprintln(p.out, "🌐 Server running on:")
	fmt.Fprintf(p.out, "   • Local: %s\n", linkColor.Sprint(cfg.LocalURL("")))
	fmt.Fprintf(p.out, "   • Network: %s\n", linkColor.Sprint(cfg.NetworkURL()))
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "🧪 Test your JavaScript fixes:")
	p.page("Test page", cfg, cfg.TestPage)
	p.page("Main page", cfg, cfg.MainPage)
	fmt.Fprintln(p.out)
	warnColor.Fprintln(p.out, "⚠️  Press Ctrl+C to stop the server")
	fmt.Fprintln(p.out, strings.Repeat("─", 50))
}

func (p *Printer) page(label string, cfg config.Config, page string) {
	if page == "" {
		return
	}
	fmt.Fprintf(p.out, "   • %s: %s", label, linkColor.Sprint(cfg.LocalURL(page)))
	title, err := PageTitle(filepath.Join(cfg.Root, filepath.FromSlash(page)))
	switch {
	case os.IsNotExist(err):
		warnColor.Fprint(p.out, " (not found)")
	case err == nil && title != "":
		infoColor.Fprintf(p.out, " (%s)", title)
	}
	fmt.Fprintln(p.out)
}

// PortInUse prints the remediation hint for a busy port.
func (p *Printer) PortInUse(port int) {
	errorColor.Fprintf(p.out, "❌ Port %d is already in use. Try a different port.\n", port)
	fmt.Fprintf(p.out, "   Run: %s <port_number>\n", filepath.Base(os.Args[0]))
}

// Error prints a failure message.
func (p *Printer) Error(format string, args ...any) {
	errorColor.Fprintf(p.out, "❌ "+format+"\n", args...)
}

// Stopped prints the message shown after an interrupt.
func (p *Printer) Stopped() {
	fmt.Fprintln(p.out)
	infoColor.Fprintln(p.out, "🛑 Server stopped by user")
}

// PageTitle returns the trimmed <title> text of the HTML file at path.
func PageTitle(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", path, err)
	}
	return strings.TrimSpace(doc.Find("title").First().Text()), nil
}
