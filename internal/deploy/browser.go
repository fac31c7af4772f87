package deploy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// VerifyBrowserRender loads url in a headless Chrome instance and confirms
// the page reaches a settled DOM state without throwing an uncaught JS
// exception - a check the original Python deploy verifier never had, since
// its other checks only confirm a deployment's presence, not that the
// deployed page actually renders. Grounded on the teacher's
// internal/browser.SessionManager's launch-then-connect pattern, scoped
// down to a single one-shot page load instead of a tracked session.
func VerifyBrowserRender(ctx context.Context, url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	controlURL, err := launcher.New().Headless(true).Launch()
	if err != nil {
		return fmt.Errorf("launch headless chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	var mu sync.Mutex
	var jsErrors []string
	waitExceptions := page.Context(ctx).EachEvent(func(ev *proto.RuntimeExceptionThrown) {
		mu.Lock()
		defer mu.Unlock()
		jsErrors = append(jsErrors, ev.ExceptionDetails.Text)
	})
	go waitExceptions()

	if err := page.Context(ctx).Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := page.Context(ctx).WaitLoad(); err != nil {
		return fmt.Errorf("wait for page load: %w", err)
	}
	if err := page.Context(ctx).WaitDOMStable(time.Second, 0); err != nil {
		return fmt.Errorf("wait for DOM to settle: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(jsErrors) > 0 {
		return fmt.Errorf("page threw %d uncaught exception(s), first: %s", len(jsErrors), jsErrors[0])
	}
	return nil
}
