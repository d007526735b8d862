package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Default configuration values.
const (
	// DefaultPort is used when PORT is not set.
	DefaultPort = 4000

	// DefaultNavigationTimeout bounds every single page navigation,
	// including the wait for the network to go quiet.
	DefaultNavigationTimeout = 200 * time.Second

	// DefaultUserAgent is sent by the browser for every navigation.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	DefaultWindowWidth  = 1920
	DefaultWindowHeight = 1080

	DefaultMetricsPath     = "/metrics"
	DefaultShutdownTimeout = 15 * time.Second
)

// DefaultAllowedHosts are accepted by the link filter in addition to the
// entry URL's own host.
var DefaultAllowedHosts = []string{"github.com"}

var (
	ErrInvalidPort     = errors.New("invalid port")
	ErrInvalidTimeout  = errors.New("invalid navigation timeout")
	ErrInvalidViewport = errors.New("invalid viewport")
)

// Config holds everything the service needs. It is built once at startup
// and handed to each component.
type Config struct {
	Port              int
	NavigationTimeout time.Duration
	UserAgent         string
	WindowWidth       int
	WindowHeight      int

	// ExecPath points at the Chrome binary. Empty lets chromedp look it up.
	ExecPath string
	Headless bool

	AllowedHosts    []string
	MetricsPath     string
	ShutdownTimeout time.Duration
}

// Default returns a Config populated with the default values.
func Default() Config {
	return Config{
		Port:              DefaultPort,
		NavigationTimeout: DefaultNavigationTimeout,
		UserAgent:         DefaultUserAgent,
		WindowWidth:       DefaultWindowWidth,
		WindowHeight:      DefaultWindowHeight,
		Headless:          true,
		AllowedHosts:      append([]string(nil), DefaultAllowedHosts...),
		MetricsPath:       DefaultMetricsPath,
		ShutdownTimeout:   DefaultShutdownTimeout,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}
	if c.NavigationTimeout <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, c.NavigationTimeout)
	}
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidViewport, c.WindowWidth, c.WindowHeight)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return net.JoinHostPort("", strconv.Itoa(c.Port))
}
