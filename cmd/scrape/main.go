package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/go-scripts/scrape/internal/browser"
	"github.com/go-scripts/scrape/internal/config"
	"github.com/go-scripts/scrape/internal/crawl"
)

// Globals are flags shared by every command.
type Globals struct {
	Debug     bool   `help:"Enable debug logging." env:"DEBUG"`
	LogFormat string `help:"Log output format." enum:"text,json,logfmt" default:"text" env:"LOG_FORMAT"`

	NavigationTimeout time.Duration `help:"Upper bound for each page load." default:"200s" env:"NAVIGATION_TIMEOUT"`
	UserAgent         string        `help:"User agent sent by the browser." default:"${user_agent}" env:"USER_AGENT"`
	WindowWidth       int           `help:"Browser viewport width." default:"1920" env:"WINDOW_WIDTH"`
	WindowHeight      int           `help:"Browser viewport height." default:"1080" env:"WINDOW_HEIGHT"`
	ChromePath        string        `help:"Chrome executable, looked up on the system when empty." env:"CHROME_PATH"`
	Headless          bool          `help:"Run Chrome without a window." default:"true" negatable:"" env:"HEADLESS"`
	AllowedHosts      []string      `help:"Hosts whose links are always followed." default:"github.com" env:"ALLOWED_HOSTS"`
}

type CLI struct {
	Globals

	Serve ServeCmd `cmd:"" default:"1" help:"Run the HTTP scrape service."`
	Fetch FetchCmd `cmd:"" help:"Scrape a single URL and print the JSON result."`
}

// config builds the base configuration from the shared flags.
func (g *Globals) config() config.Config {
	cfg := config.Default()
	cfg.NavigationTimeout = g.NavigationTimeout
	cfg.UserAgent = g.UserAgent
	cfg.WindowWidth = g.WindowWidth
	cfg.WindowHeight = g.WindowHeight
	cfg.ExecPath = g.ChromePath
	cfg.Headless = g.Headless
	cfg.AllowedHosts = g.AllowedHosts
	return cfg
}

func setupLogging(debug bool, format string) {
	log.SetReportTimestamp(true)
	if debug {
		log.SetLevel(log.DebugLevel)
	}
	switch format {
	case "json":
		log.SetFormatter(log.JSONFormatter)
	case "logfmt":
		log.SetFormatter(log.LogfmtFormatter)
	default:
		log.SetFormatter(log.TextFormatter)
	}
}

func newCrawler(cfg config.Config) *crawl.Crawler {
	launcher := browser.NewLauncher(cfg)
	launch := crawl.LaunchFunc(func(ctx context.Context) (crawl.Browser, error) {
		s, err := launcher.Launch(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
	return crawl.New(launch, crawl.WithAllowedHosts(cfg.AllowedHosts...))
}

func main() {
	// A missing .env file is fine; real environment variables still apply.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("scrape"),
		kong.Description("Scrape a page and the same-site pages it links to with headless Chrome."),
		kong.UsageOnError(),
		kong.Vars{"user_agent": config.DefaultUserAgent},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	setupLogging(cli.Debug, cli.LogFormat)

	err := kctx.Run(&cli.Globals)
	stop()
	kctx.FatalIfErrorf(err)
}
