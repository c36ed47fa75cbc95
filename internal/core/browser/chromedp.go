package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/seckatie/xmarkd/internal/core/session"
)

// Options controls how the Chrome session is launched.
type Options struct {
	// ChromePath optionally overrides the Chrome/Chromium executable path.
	// If empty, chromedp will try to find a browser on PATH / default locations.
	ChromePath string
	// Headless controls whether Chrome runs without a visible window.
	// Set to false to debug a crawl in a real window ("headful").
	Headless bool
	// UserAgent overrides the browser user agent when non-empty.
	UserAgent string
	// WindowWidth and WindowHeight size the viewport; both must be set to
	// take effect.
	WindowWidth  int
	WindowHeight int
}

// Chrome implements Session on a real Chrome/Chromium browser over the
// DevTools protocol.
type Chrome struct {
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	log         zerolog.Logger

	mu      sync.Mutex
	pending map[network.RequestID]Response
}

// New launches a browser and enables the network domain so responses can
// be intercepted.
func New(ctx context.Context, opts Options, log zerolog.Logger) (*Chrome, error) {
	allocatorOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocatorOpts = append(allocatorOpts,
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
	)
	if opts.ChromePath != "" {
		allocatorOpts = append(allocatorOpts, chromedp.ExecPath(opts.ChromePath))
	}
	if opts.Headless {
		allocatorOpts = append(allocatorOpts, chromedp.Headless)
	} else {
		allocatorOpts = append(allocatorOpts, chromedp.Flag("headless", false))
	}
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		allocatorOpts = append(allocatorOpts, chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocatorOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	c := &Chrome{
		allocCancel: cancelAlloc,
		ctx:         browserCtx,
		cancel:      cancelBrowser,
		log:         log,
		pending:     make(map[network.RequestID]Response),
	}

	setup := []chromedp.Action{network.Enable()}
	if opts.UserAgent != "" {
		setup = append(setup, emulation.SetUserAgentOverride(opts.UserAgent))
	}
	if err := c.run(ctx, setup...); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	return c, nil
}

// SetCookies installs session cookies before navigation.
func (c *Chrome) SetCookies(ctx context.Context, cookies []session.Cookie) error {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, ck := range cookies {
		p := &network.CookieParam{
			Name:     ck.Name,
			Value:    ck.Value,
			Domain:   ck.Domain,
			Path:     ck.Path,
			Secure:   ck.Secure,
			HTTPOnly: ck.HTTPOnly,
			SameSite: toSameSite(ck.SameSite),
		}
		if ck.Expires > 0 {
			expires := cdp.TimeSinceEpoch(time.Unix(int64(ck.Expires), 0))
			p.Expires = &expires
		}
		params = append(params, p)
	}
	if err := c.run(ctx, network.SetCookies(params)); err != nil {
		return fmt.Errorf("failed to set cookies: %w", err)
	}
	return nil
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	if err := c.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (c *Chrome) Location(ctx context.Context) (string, error) {
	var loc string
	if err := c.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return loc, nil
}

func (c *Chrome) Evaluate(ctx context.Context, expr string, out any) error {
	if err := c.run(ctx, chromedp.Evaluate(expr, out)); err != nil {
		return fmt.Errorf("failed to evaluate script: %w", err)
	}
	return nil
}

// deliveryQueueSize bounds how many finished responses may wait for body
// retrieval before new ones are dropped with a warning.
const deliveryQueueSize = 64

type delivery struct {
	id   network.RequestID
	resp Response
}

// OnResponse watches for matching responses and delivers their bodies once
// loading finishes. Completed responses are handed to a single worker
// goroutine, so the handler sees them one at a time, in the order the
// browser finished them. The handler must never run concurrently with
// itself: out-of-order delivery would let records slip past a stop
// boundary the handler has already drawn.
func (c *Chrome) OnResponse(match func(url string, status int) bool, handler func(Response)) {
	queue := make(chan delivery, deliveryQueueSize)
	go deliverLoop(c.ctx, queue, c.responseBody, handler, c.log)

	chromedp.ListenTarget(c.ctx, func(ev any) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			if e.Response == nil || !match(e.Response.URL, int(e.Response.Status)) {
				return
			}
			c.mu.Lock()
			c.pending[e.RequestID] = Response{
				URL:    e.Response.URL,
				Status: int(e.Response.Status),
			}
			c.mu.Unlock()
		case *network.EventLoadingFinished:
			c.mu.Lock()
			resp, ok := c.pending[e.RequestID]
			if ok {
				delete(c.pending, e.RequestID)
			}
			c.mu.Unlock()
			if !ok {
				return
			}
			select {
			case queue <- delivery{id: e.RequestID, resp: resp}:
			default:
				c.log.Warn().Str("url", resp.URL).Msg("response queue full, dropping response")
			}
		}
	})
}

// deliverLoop fetches response bodies and invokes handler sequentially in
// queue order, until ctx is cancelled. A failed body fetch skips that
// response only.
func deliverLoop(ctx context.Context, queue <-chan delivery, fetch func(network.RequestID) ([]byte, error), handler func(Response), log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-queue:
			body, err := fetch(d.id)
			if err != nil {
				log.Warn().Err(err).Str("url", d.resp.URL).Msg("failed to fetch response body")
				continue
			}
			d.resp.Body = body
			handler(d.resp)
		}
	}
}

func (c *Chrome) responseBody(id network.RequestID) ([]byte, error) {
	cctx := chromedp.FromContext(c.ctx)
	return network.GetResponseBody(id).Do(cdp.WithExecutor(c.ctx, cctx.Target))
}

func (c *Chrome) Close() error {
	c.cancel()
	c.allocCancel()
	return nil
}

// run executes actions against the browser session, bounded by the
// caller's context.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-stop:
		}
	}()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func toSameSite(v string) network.CookieSameSite {
	switch v {
	case "Strict", "strict":
		return network.CookieSameSiteStrict
	case "Lax", "lax":
		return network.CookieSameSiteLax
	case "None", "none":
		return network.CookieSameSiteNone
	default:
		return ""
	}
}
