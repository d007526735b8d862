package browser

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/scrape/internal/config"
)

// chromeOrSkip returns a Chrome binary path or skips the test.
func chromeOrSkip(t *testing.T) string {
	t.Helper()
	if p := os.Getenv("CHROME_PATH"); p != "" {
		return p
	}
	for _, name := range []string{"headless-shell", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	t.Skip("no Chrome binary found; set CHROME_PATH to run browser tests")
	return ""
}

func testLauncher(t *testing.T) *Launcher {
	cfg := config.Default()
	cfg.ExecPath = chromeOrSkip(t)
	cfg.NavigationTimeout = 30 * time.Second
	return NewLauncher(cfg)
}

func TestNavigationError(t *testing.T) {
	cause := errors.New("net::ERR_NAME_NOT_RESOLVED")
	err := error(&NavigationError{URL: "https://nope.invalid", Err: cause})

	assert.Equal(t, "navigate to https://nope.invalid: net::ERR_NAME_NOT_RESOLVED", err.Error())
	assert.ErrorIs(t, err, cause)

	var navErr *NavigationError
	require.ErrorAs(t, err, &navErr)
	assert.Equal(t, "https://nope.invalid", navErr.URL)
}

func TestAllocatorOptions(t *testing.T) {
	cfg := config.Default()
	base := len(NewLauncher(cfg).allocatorOptions())

	cfg.ExecPath = "/usr/bin/chromium"
	cfg.Headless = false
	assert.Equal(t, base+2, len(NewLauncher(cfg).allocatorOptions()))
}

func idleFired(w *idleWatcher) bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

func TestIdleWatcher(t *testing.T) {
	const top, sub = cdp.FrameID("TOP"), cdp.FrameID("SUB")

	tests := []struct {
		name   string
		events []interface{}
		want   bool
	}{
		{
			name: "top frame idle after init",
			events: []interface{}{
				&page.EventLifecycleEvent{FrameID: top, Name: "init"},
				&page.EventLifecycleEvent{FrameID: top, Name: networkIdleEvent},
			},
			want: true,
		},
		{
			name: "idle before init belongs to the previous document",
			events: []interface{}{
				&page.EventLifecycleEvent{FrameID: top, Name: networkIdleEvent},
			},
		},
		{
			name: "subframe events are ignored",
			events: []interface{}{
				&page.EventLifecycleEvent{FrameID: top, Name: "init"},
				&page.EventLifecycleEvent{FrameID: sub, Name: "init"},
				&page.EventLifecycleEvent{FrameID: sub, Name: networkIdleEvent},
			},
		},
		{
			name: "subframe init does not start the top document",
			events: []interface{}{
				&page.EventLifecycleEvent{FrameID: sub, Name: "init"},
				&page.EventLifecycleEvent{FrameID: top, Name: networkIdleEvent},
			},
		},
		{
			name: "same document navigation in top frame",
			events: []interface{}{
				&page.EventNavigatedWithinDocument{FrameID: top, URL: "https://example.com/#a"},
			},
			want: true,
		},
		{
			name: "same document navigation in subframe",
			events: []interface{}{
				&page.EventNavigatedWithinDocument{FrameID: sub, URL: "https://ads.example/#a"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newIdleWatcher(top)
			for _, ev := range tt.events {
				w.handle(ev)
			}
			assert.Equal(t, tt.want, idleFired(w))
		})
	}
}

func TestIdleWatcher_RepeatedIdleDoesNotBlock(t *testing.T) {
	w := newIdleWatcher("TOP")
	w.handle(&page.EventLifecycleEvent{FrameID: "TOP", Name: "init"})
	for i := 0; i < 3; i++ {
		w.handle(&page.EventLifecycleEvent{FrameID: "TOP", Name: networkIdleEvent})
	}
	assert.True(t, idleFired(w))
	assert.False(t, idleFired(w))
}

func TestSession_LinksAndText(t *testing.T) {
	l := testLauncher(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<h1>Home</h1>
			<p style="display:none">hidden</p>
			<a href="/about">About</a>
			<a href="https://github.com/org/repo">Repo</a>
			<a href="/about">About again</a>
		</body></html>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>About us</p></body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	s, err := l.Launch(ctx)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Navigate(ctx, srv.URL+"/"))

	links, err := s.Links(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/about", "https://github.com/org/repo", srv.URL + "/about"}, links)

	text, err := s.Text(ctx)
	require.NoError(t, err)
	assert.Contains(t, text, "Home")
	assert.NotContains(t, text, "hidden")

	require.NoError(t, s.Navigate(ctx, srv.URL+"/about"))
	text, err = s.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "About us", strings.TrimSpace(text))
}

func TestSession_NavigateFailure(t *testing.T) {
	l := testLauncher(t)

	// Grab a free port and close it so nothing is listening there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx := context.Background()
	s, err := l.Launch(ctx)
	require.NoError(t, err)
	defer s.Close()

	err = s.Navigate(ctx, "http://"+addr+"/")
	var navErr *NavigationError
	require.ErrorAs(t, err, &navErr)
	assert.Equal(t, "http://"+addr+"/", navErr.URL)
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	l := testLauncher(t)

	s, err := l.Launch(context.Background())
	require.NoError(t, err)

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
