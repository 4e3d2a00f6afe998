package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/tabpilot/tabpilot/pkg/logging"
)

const (
	// navigationTimeout bounds page loads triggered by OpenURL and
	// click-induced navigation.
	navigationTimeout = 8 * time.Second

	// settleAfterLoad gives late scripts a moment to render before the
	// page is read.
	settleAfterLoad = 1 * time.Second

	// settleAfterClick is how long a click gets to take effect before the
	// URL is compared for navigation.
	settleAfterClick = 2 * time.Second

	// settleAfterType lets input handlers and synthesized submits run.
	settleAfterType = 800 * time.Millisecond

	// settleBeforeScreenshot lets the overlay badges paint.
	settleBeforeScreenshot = 150 * time.Millisecond
)

// PlaywrightSurface drives a Chromium page through Playwright.
type PlaywrightSurface struct {
	pw              *playwright.Playwright
	browser         playwright.Browser
	page            playwright.Page
	logger          *logging.Logger
	maxContentChars int
}

// SurfaceOptions configures the Playwright surface.
type SurfaceOptions struct {
	// Headless controls whether the browser window is shown.
	Headless bool

	// MaxContentChars caps page text returned by content reads.
	MaxContentChars int
}

// NewPlaywrightSurface installs (if needed) and launches Chromium with a
// single page that all surface operations target.
func NewPlaywrightSurface(opts SurfaceOptions) (*PlaywrightSurface, error) {
	logger, _ := logging.NewLogger("browser")

	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	page, err := browser.NewPage()
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &PlaywrightSurface{
		pw:              pw,
		browser:         browser,
		page:            page,
		logger:          logger,
		maxContentChars: opts.MaxContentChars,
	}, nil
}

// Snapshot scans the page and returns the numbered element listing.
func (s *PlaywrightSurface) Snapshot(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	result, err := s.page.Evaluate(snapshotScript)
	if err != nil {
		return "", fmt.Errorf("snapshot script failed: %w", err)
	}
	data, ok := result.(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("snapshot script returned unexpected value")
	}
	if errMsg, ok := data["error"].(string); ok && errMsg != "" {
		return "", fmt.Errorf("snapshot failed in page: %s", errMsg)
	}

	title, _ := data["title"].(string)
	url, _ := data["url"].(string)
	elements, _ := data["elements"].(string)
	if strings.TrimSpace(elements) == "" {
		return fmt.Sprintf("Current page: %s\nURL: %s\n\nNo interactable elements found.", title, url), nil
	}

	s.logger.Debugf("snapshot captured %d element lines", strings.Count(elements, "\n")+1)
	return fmt.Sprintf("Current page: %s\nURL: %s\n\nInteractable elements:\n%s", title, url, elements), nil
}

// ReadContent extracts the page's main text, capped at the content budget.
func (s *PlaywrightSurface) ReadContent(ctx context.Context) (*PageContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := s.page.Evaluate(readContentScript)
	if err != nil {
		return nil, fmt.Errorf("content script failed: %w", err)
	}
	data, ok := result.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("content script returned unexpected value")
	}

	title, _ := data["title"].(string)
	url, _ := data["url"].(string)
	content, _ := data["content"].(string)
	content = strings.TrimSpace(content)
	if s.maxContentChars > 0 && len(content) > s.maxContentChars {
		content = content[:s.maxContentChars] + "..."
	}

	return &PageContext{Title: title, URL: url, Content: content}, nil
}

// Click clicks the element with the given snapshot ID. If the click causes a
// navigation, the result includes a summary of the destination page.
func (s *PlaywrightSurface) Click(ctx context.Context, elementID int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	locator := s.page.Locator(fmt.Sprintf(`[data-agent-id="%d"]`, elementID))
	count, err := locator.Count()
	if err != nil {
		return "", fmt.Errorf("element lookup failed: %w", err)
	}
	if count == 0 {
		return "", fmt.Errorf("element with ID %d not found; call get_page_interactables to refresh IDs", elementID)
	}

	preURL := s.page.URL()

	if err := locator.ScrollIntoViewIfNeeded(); err != nil {
		s.logger.Warnf("scroll into view failed for element %d: %v", elementID, err)
	}
	if err := locator.Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(float64(navigationTimeout.Milliseconds())),
	}); err != nil {
		return "", fmt.Errorf("click on element %d failed: %w", elementID, err)
	}

	s.sleep(ctx, settleAfterClick)

	clickResult := fmt.Sprintf("Successfully clicked element %d.", elementID)
	postURL := s.page.URL()
	if postURL == preURL {
		return clickResult, nil
	}

	// The click navigated; wait for the new page and describe it so the
	// model knows its element IDs are stale.
	if err := s.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateLoad,
		Timeout: playwright.Float(float64(navigationTimeout.Milliseconds())),
	}); err != nil {
		s.logger.Warnf("load wait after click navigation: %v", err)
	}
	s.sleep(ctx, settleAfterLoad)

	page, err := s.ReadContent(ctx)
	if err != nil {
		return fmt.Sprintf("%s page navigated to: %s.", clickResult, postURL), nil
	}
	return fmt.Sprintf("%s page navigated to: %s.\n\n[Page Title: %s]\n%s", clickResult, postURL, page.Title, page.Content), nil
}

// Type injects text into the element with the given snapshot ID.
func (s *PlaywrightSurface) Type(ctx context.Context, elementID int, text string, pressEnter bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	result, err := s.page.Evaluate(typeScript, map[string]interface{}{
		"id":         elementID,
		"text":       text,
		"pressEnter": pressEnter,
	})
	if err != nil {
		return "", fmt.Errorf("type script failed: %w", err)
	}
	if data, ok := result.(map[string]interface{}); ok {
		if errMsg, ok := data["error"].(string); ok && errMsg != "" {
			return "", fmt.Errorf("type into element %d failed: %s; call get_page_interactables to refresh IDs", elementID, errMsg)
		}
	}

	s.sleep(ctx, settleAfterType)

	if pressEnter {
		return fmt.Sprintf("Successfully typed %q into element %d and pressed Enter.", text, elementID), nil
	}
	return fmt.Sprintf("Successfully typed %q into element %d.", text, elementID), nil
}

// OpenURL navigates to the URL and returns a summary of the loaded page.
func (s *PlaywrightSurface) OpenURL(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if _, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(float64(navigationTimeout.Milliseconds())),
	}); err != nil {
		return "", fmt.Errorf("failed to open %s: %w", url, err)
	}
	s.sleep(ctx, settleAfterLoad)

	page, err := s.ReadContent(ctx)
	if err != nil {
		return fmt.Sprintf("Successfully opened URL: %s.", url), nil
	}
	return fmt.Sprintf("Successfully opened URL: %s.\n\n[Page Title: %s]\n%s", url, page.Title, page.Content), nil
}

// Screenshot captures the viewport as a JPEG data URL.
func (s *PlaywrightSurface) Screenshot(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.sleep(ctx, settleBeforeScreenshot)

	bytes, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Type:    playwright.ScreenshotTypeJpeg,
		Quality: playwright.Int(60),
	})
	if err != nil {
		return "", fmt.Errorf("screenshot failed: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(bytes), nil
}

// ClearOverlay removes the snapshot badges and ID attributes.
func (s *PlaywrightSurface) ClearOverlay(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.page.Evaluate(clearOverlayScript); err != nil {
		return fmt.Errorf("overlay clear failed: %w", err)
	}
	return nil
}

// CurrentURL returns the page's current address.
func (s *PlaywrightSurface) CurrentURL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.page.URL(), nil
}

// Close shuts down the browser and the Playwright driver.
func (s *PlaywrightSurface) Close() error {
	var firstErr error
	if err := s.browser.Close(); err != nil {
		firstErr = fmt.Errorf("failed to close browser: %w", err)
	}
	if err := s.pw.Stop(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to stop playwright: %w", err)
	}
	s.logger.Close()
	return firstErr
}

// sleep waits for the duration or until the context is canceled.
func (s *PlaywrightSurface) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
