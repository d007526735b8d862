// Package browser runs headless Chrome through chromedp: one process per
// session, a single tab, navigation that waits for the network to settle.
package browser

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/go-scripts/scrape/internal/config"
)

// networkIdleEvent is Chrome's lifecycle event for "at most two requests in
// flight for 500ms".
const networkIdleEvent = "networkAlmostIdle"

const linksJS = `
(() => Array.from(document.querySelectorAll('a'), (a) => {
	if (typeof a.href === 'string') {
		return a.href;
	}
	try {
		return new URL(a.href.baseVal, document.baseURI).href;
	} catch (e) {
		return a.href.baseVal;
	}
}))()`

const textJS = `document.body.innerText`

// NavigationError reports a page that could not be loaded.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigate to %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// Launcher starts Chrome processes configured for constrained hosts.
type Launcher struct {
	cfg config.Config
}

// NewLauncher returns a Launcher using the browser settings from cfg.
func NewLauncher(cfg config.Config) *Launcher {
	return &Launcher{cfg: cfg}
}

// allocatorOptions builds the Chrome command line.
func (l *Launcher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("disable-web-security", true),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.UserAgent(l.cfg.UserAgent),
		chromedp.WindowSize(l.cfg.WindowWidth, l.cfg.WindowHeight),
	)
	if !l.cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if l.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.cfg.ExecPath))
	}
	return opts
}

// Launch starts a browser process and opens its first tab. The caller must
// Close the returned Session.
func (l *Launcher) Launch(ctx context.Context) (*Session, error) {
	// The browser outlives ctx's deadline; Close ends it.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), l.allocatorOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(log.Debugf),
		chromedp.WithErrorf(log.Debugf),
	)

	s := &Session{
		ctx:         tabCtx,
		cancel:      tabCancel,
		allocCancel: allocCancel,
		timeout:     l.cfg.NavigationTimeout,
	}

	start := time.Now()
	if err := chromedp.Run(tabCtx, page.SetLifecycleEventsEnabled(true)); err != nil {
		s.Close()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	log.Debug("Browser started", "elapsed", time.Since(start).Round(time.Millisecond))
	return s, nil
}

// Session is one running browser with one tab.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	timeout     time.Duration

	closeOnce sync.Once
	closeErr  error
}

// Navigate loads url in the tab and waits for the network to go idle,
// bounded by the navigation timeout. Navigations that stay within the same
// document finish as soon as Chrome reports them.
func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var frameID cdp.FrameID
	if err := chromedp.Run(navCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		frameID = tree.Frame.ID
		return nil
	})); err != nil {
		return &NavigationError{URL: url, Err: fmt.Errorf("resolve top frame: %w", err)}
	}

	w := newIdleWatcher(frameID)
	chromedp.ListenTarget(navCtx, w.handle)

	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		return &NavigationError{URL: url, Err: err}
	}

	select {
	case <-w.done:
		return nil
	case <-navCtx.Done():
		if err := ctx.Err(); err != nil {
			return &NavigationError{URL: url, Err: err}
		}
		return &NavigationError{URL: url, Err: fmt.Errorf("network did not go idle: %w", navCtx.Err())}
	}
}

// idleWatcher signals done once the top-level frame of a freshly started
// document reports network idle, or navigates within its document.
type idleWatcher struct {
	frameID cdp.FrameID
	started atomic.Bool
	done    chan struct{}
}

func newIdleWatcher(frameID cdp.FrameID) *idleWatcher {
	return &idleWatcher{frameID: frameID, done: make(chan struct{}, 1)}
}

func (w *idleWatcher) handle(ev interface{}) {
	switch e := ev.(type) {
	case *page.EventLifecycleEvent:
		if e.FrameID != w.frameID {
			return
		}
		switch e.Name {
		case "init":
			w.started.Store(true)
		case networkIdleEvent:
			if w.started.Load() {
				w.notify()
			}
		}
	case *page.EventNavigatedWithinDocument:
		if e.FrameID == w.frameID {
			w.notify()
		}
	}
}

func (w *idleWatcher) notify() {
	select {
	case w.done <- struct{}{}:
	default:
	}
}

// Links returns the resolved href of every anchor on the current page in
// document order.
func (s *Session) Links(ctx context.Context) ([]string, error) {
	var links []string
	if err := s.evaluate(ctx, linksJS, &links); err != nil {
		return nil, fmt.Errorf("extract links: %w", err)
	}
	if links == nil {
		links = []string{}
	}
	return links, nil
}

// Text returns the rendered text of the page body.
func (s *Session) Text(ctx context.Context) (string, error) {
	var text string
	if err := s.evaluate(ctx, textJS, &text); err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	return text, nil
}

func (s *Session) evaluate(ctx context.Context, expr string, res interface{}) error {
	evalCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(evalCtx, chromedp.Evaluate(expr, res))
}

// Close shuts the browser down and waits for the process to exit. It is
// safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = chromedp.Cancel(s.ctx)
		s.cancel()
		s.allocCancel()
	})
	return s.closeErr
}
