// Package config builds the immutable server configuration from the root
// directory, an optional config file and the command line.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultPort is used when neither the config file nor the command line sets one.
const DefaultPort = 8000

// ErrInvalidArgument is returned when the port argument cannot be used.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrRootUnreadable is returned when the root directory is missing or cannot be listed.
var ErrRootUnreadable = errors.New("root directory unreadable")

// FileNames lists the config files looked up in the root, in priority order.
var FileNames = []string{"devserve.toml", "devserve.yaml", "devserve.yml"}

// Config is the startup configuration. It is built once and never mutated.
type Config struct {
	// Root is the absolute directory all request paths resolve under.
	Root string
	// Port is the TCP port bound on all interfaces.
	Port int
	// TestPage is the page opened in the browser after startup.
	TestPage string
	// MainPage is advertised in the startup banner next to the test page.
	MainPage string
	// OpenBrowser controls the deferred browser launch.
	OpenBrowser bool
	// BrowserDelay is how long after startup the browser is opened.
	BrowserDelay time.Duration
	// IndexFiles are tried in order when a directory is requested.
	IndexFiles []string
}

// fileConfig mirrors the keys accepted in devserve.toml / devserve.yaml.
type fileConfig struct {
	Port                *int     `toml:"port" yaml:"port"`
	TestPage            *string  `toml:"test_page" yaml:"test_page"`
	MainPage            *string  `toml:"main_page" yaml:"main_page"`
	OpenBrowser         *bool    `toml:"open_browser" yaml:"open_browser"`
	BrowserDelaySeconds *float64 `toml:"browser_delay_seconds" yaml:"browser_delay_seconds"`
	IndexFiles          []string `toml:"index_files" yaml:"index_files"`
}

// Default returns the configuration used when no file or argument overrides it.
func Default(root string) Config {
	return Config{
		Root:         root,
		Port:         DefaultPort,
		TestPage:     "test.html",
		MainPage:     "index.htm",
		OpenBrowser:  true,
		BrowserDelay: 1500 * time.Millisecond,
		IndexFiles:   []string{"index.html", "index.htm"},
	}
}

// Addr is the listen address: all IPv4 interfaces on the configured port.
func (c Config) Addr() string {
	return net.JoinHostPort("0.0.0.0", strconv.Itoa(c.Port))
}

// LocalURL returns the localhost URL for a page relative to the root.
// An empty page yields the server base URL.
func (c Config) LocalURL(page string) string {
	base := fmt.Sprintf("http://localhost:%d", c.Port)
	if page == "" {
		return base
	}
	return base + "/" + strings.TrimPrefix(filepath.ToSlash(page), "/")
}

// NetworkURL returns the URL of the bound address.
func (c Config) NetworkURL() string {
	return fmt.Sprintf("http://0.0.0.0:%d", c.Port)
}

// ParsePort parses a command line port argument.
func ParsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: port must be a number, got %q", ErrInvalidArgument, s)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("%w: port %d out of range 1-65535", ErrInvalidArgument, port)
	}
	return port, nil
}

// Load builds the configuration for root. A config file found in root
// overrides the defaults. The first element of args, when present, overrides
// the port.
func Load(root string, args []string) (Config, error) {
	// Parse the argument first so a bad port fails before touching the filesystem.
	argPort := 0
	if len(args) > 0 {
		p, err := ParsePort(args[0])
		if err != nil {
			return Config{}, err
		}
		argPort = p
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return Config{}, fmt.Errorf("resolve root %s: %w", root, err)
	}
	if err := checkReadable(absRoot); err != nil {
		return Config{}, err
	}

	cfg := Default(absRoot)
	if err := cfg.applyFile(); err != nil {
		return Config{}, err
	}
	if argPort != 0 {
		cfg.Port = argPort
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first problem that would prevent the server from starting.
func (c Config) Validate() error {
	if !filepath.IsAbs(c.Root) {
		return fmt.Errorf("root %q is not absolute", c.Root)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range 1-65535", ErrInvalidArgument, c.Port)
	}
	if c.BrowserDelay < 0 {
		return fmt.Errorf("browser delay must not be negative, got %s", c.BrowserDelay)
	}
	for _, name := range c.IndexFiles {
		if name == "" || strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("invalid index file name %q", name)
		}
	}
	return nil
}

// applyFile overlays the first config file found in the root.
func (c *Config) applyFile() error {
	for _, name := range FileNames {
		path := filepath.Join(c.Root, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}

		var fc fileConfig
		if strings.HasSuffix(name, ".toml") {
			err = decodeTOML(data, &fc)
		} else {
			err = decodeYAML(data, &fc)
		}
		if err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
		if err := c.merge(fc); err != nil {
			return fmt.Errorf("config %s: %w", path, err)
		}
		return nil
	}
	return nil
}

func decodeTOML(data []byte, fc *fileConfig) error {
	md, err := toml.Decode(string(data), fc)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func decodeYAML(data []byte, fc *fileConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(fc); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// maxDelaySeconds is the largest delay representable as a time.Duration.
var maxDelaySeconds = float64(math.MaxInt64) / float64(time.Second)

func (c *Config) merge(fc fileConfig) error {
	if fc.Port != nil {
		c.Port = *fc.Port
	}
	if fc.TestPage != nil {
		c.TestPage = *fc.TestPage
	}
	if fc.MainPage != nil {
		c.MainPage = *fc.MainPage
	}
	if fc.OpenBrowser != nil {
		c.OpenBrowser = *fc.OpenBrowser
	}
	if fc.BrowserDelaySeconds != nil {
		secs := *fc.BrowserDelaySeconds
		if math.IsNaN(secs) || secs < 0 || secs >= maxDelaySeconds {
			return fmt.Errorf("browser_delay_seconds must be between 0 and %.0f, got %v", maxDelaySeconds, secs)
		}
		c.BrowserDelay = time.Duration(secs * float64(time.Second))
	}
	if fc.IndexFiles != nil {
		c.IndexFiles = fc.IndexFiles
	}
	return nil
}

func checkReadable(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRootUnreadable, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRootUnreadable, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrRootUnreadable, dir)
	}
	// Reading one entry proves list permission; io.EOF means empty.
	if _, err := f.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrRootUnreadable, err)
	}
	return nil
}
