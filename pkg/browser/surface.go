// Package browser provides the page automation surface the agent engine
// drives: interactable snapshots with stable numeric element IDs, clicks,
// text injection, navigation, content extraction, and screenshots.
//
// The Surface interface is the contract; the Playwright implementation is
// the production surface, and tests substitute an in-memory fake.
package browser

import "context"

// PageContext is a captured view of one page, used both for tool results and
// for context attachments folded into user messages.
type PageContext struct {
	Title   string
	URL     string
	Content string
}

// Surface is the set of page operations the engine may request.
//
// All results are textual: they are fed back to the model as tool results,
// so implementations describe outcomes rather than returning structured
// data. Failures that the model can react to (element not found, navigation
// timeout) should be returned as errors; the engine converts them to result
// text and keeps the turn alive.
type Surface interface {
	// Snapshot scans the page for interactable elements, draws the numbered
	// overlay badges, tags each element with a stable numeric ID, and
	// returns one "[ID: n] <tag> \"label\"" line per element. IDs stay
	// valid until the next Snapshot, navigation, or ClearOverlay.
	Snapshot(ctx context.Context) (string, error)

	// ReadContent extracts the main text of the current page, preferring
	// article and main regions over the full body.
	ReadContent(ctx context.Context) (*PageContext, error)

	// Click clicks the element carrying the given snapshot ID. When the
	// click causes a navigation, the result includes a summary of the page
	// that loaded; previously issued IDs are then stale.
	Click(ctx context.Context, elementID int) (string, error)

	// Type injects text into the input element carrying the given snapshot
	// ID, firing the input events frameworks listen for. With pressEnter
	// set it synthesizes an Enter key afterwards, falling back to clicking
	// the enclosing form's submit control.
	Type(ctx context.Context, elementID int, text string, pressEnter bool) (string, error)

	// OpenURL navigates to the URL, waits for the page to load, and
	// returns a summary of the loaded content.
	OpenURL(ctx context.Context, url string) (string, error)

	// Screenshot captures the viewport as a JPEG data URL. Callers wanting
	// the ID badges in frame must Snapshot first.
	Screenshot(ctx context.Context) (string, error)

	// ClearOverlay removes the badges and ID attributes left by Snapshot.
	ClearOverlay(ctx context.Context) error

	// CurrentURL returns the page's current address.
	CurrentURL(ctx context.Context) (string, error)

	// Close releases the underlying browser resources.
	Close() error
}
