// Package agent implements the execution engine: the chat turn loop that
// streams model output, resolves tool calls in either encoding, gates
// dangerous calls behind user approval, drives the browser surface, and
// enforces the cancellation rules that keep the agent and the user from
// fighting over the page.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tabpilot/tabpilot/pkg/agent/approval"
	"github.com/tabpilot/tabpilot/pkg/agent/session"
	"github.com/tabpilot/tabpilot/pkg/browser"
	"github.com/tabpilot/tabpilot/pkg/config"
	"github.com/tabpilot/tabpilot/pkg/llm"
	"github.com/tabpilot/tabpilot/pkg/llm/tokenizer"
	"github.com/tabpilot/tabpilot/pkg/logging"
	"github.com/tabpilot/tabpilot/pkg/types"
)

// MaxLoops caps how many model calls one turn may make. The turn ends
// cleanly when the cap is exhausted.
const MaxLoops = 15

// ErrTurnActive is returned when a turn is requested while one is running.
var ErrTurnActive = errors.New("a turn is already in progress")

// ErrEmptyMessage is returned when there is nothing to send.
var ErrEmptyMessage = errors.New("message is empty")

// EventEmitter receives engine progress events for live display.
type EventEmitter func(event *types.AgentEvent)

// Engine owns one agent conversation loop. All collaborators are explicit;
// the engine holds no global state.
type Engine struct {
	settings  *config.FileStore
	provider  llm.Provider
	vision    llm.VisionProvider
	surface   browser.Surface
	fetcher   *browser.Fetcher
	store     *session.Store
	approvals *approval.Manager
	counter   *tokenizer.Tokenizer
	watchdog  *Coordinator
	logger    *logging.Logger
	emit      EventEmitter

	mu           sync.Mutex
	generating   bool
	cancelTurn   context.CancelFunc
	tempContexts []browser.PageContext
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithVisionProvider wires the multimodal fallback behind analyze_screenshot.
func WithVisionProvider(v llm.VisionProvider) Option {
	return func(e *Engine) { e.vision = v }
}

// WithEventEmitter sets the observer for engine progress events.
func WithEventEmitter(emit EventEmitter) Option {
	return func(e *Engine) { e.emit = emit }
}

// WithFetcher overrides the background page fetcher, mainly for tests.
func WithFetcher(f *browser.Fetcher) Option {
	return func(e *Engine) { e.fetcher = f }
}

// WithLogger overrides the engine logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine over the given settings store, model provider, page
// surface, and session store.
func New(settings *config.FileStore, provider llm.Provider, surface browser.Surface, store *session.Store, opts ...Option) (*Engine, error) {
	if settings == nil || provider == nil || surface == nil || store == nil {
		return nil, fmt.Errorf("settings, provider, surface, and store are required")
	}

	e := &Engine{
		settings: settings,
		provider: provider,
		surface:  surface,
		store:    store,
		emit:     func(*types.AgentEvent) {},
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger, _ = logging.NewLogger("engine")
	}

	cfg := settings.Get()
	if e.fetcher == nil {
		e.fetcher = browser.NewFetcher(cfg.MaxContextChars)
	}

	whitelist, err := approval.NewURLWhitelist(cfg.AutoApproveURLs)
	if err != nil {
		return nil, fmt.Errorf("invalid auto-approval whitelist: %w", err)
	}
	current := store.Current()
	e.approvals = approval.NewManager(cfg.ApprovalTimeout, func(ev *types.AgentEvent) { e.emit(ev) }, current.Approvals(), whitelist)

	e.watchdog = NewCoordinator(e.onWatchdogCancel)

	// Token counting is best effort; without encodings the engine simply
	// skips usage events.
	if counter, err := tokenizer.New(); err == nil {
		e.counter = counter
	} else {
		e.logger.Warnf("tokenizer unavailable, usage events disabled: %v", err)
	}

	return e, nil
}

// Store exposes the session store for frontends.
func (e *Engine) Store() *session.Store { return e.store }

// Approver exposes the approval entry point frontends answer through.
func (e *Engine) Approver() approval.Approver { return e.approvals }

// HandleApproval routes an approval answer to the waiting tool call.
func (e *Engine) HandleApproval(resp *approval.Response) {
	e.approvals.HandleResponse(resp)
}

// Busy reports whether a turn is currently running.
func (e *Engine) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generating
}

// AttachContext queues a temporary page-context chip. Queued chips are
// folded into the next user message and then discarded.
func (e *Engine) AttachContext(pc browser.PageContext) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tempContexts = append(e.tempContexts, pc)
}

// AddPermanentCard appends a permanent memory card to the current session.
// Cards are replayed as background context on every request until removed.
func (e *Engine) AddPermanentCard(pc browser.PageContext) {
	card := types.NewContextCard(pc.Title, pc.URL, pc.Content, "captured")
	e.store.Current().Append(card)
	e.persist()
}

// ReportUserInteraction forwards a trusted in-page interaction to the
// watchdog. Untrusted (synthetic) events are ignored.
func (e *Engine) ReportUserInteraction(trusted bool) {
	e.watchdog.ReportUserInteraction(trusted)
}

// ReportTabSwitch forwards a tab activation to the watchdog. Switches the
// agent itself caused through navigation tools do not cancel the turn.
func (e *Engine) ReportTabSwitch() {
	e.watchdog.ReportTabSwitch()
}

// Stop cancels the running turn on the user's request.
func (e *Engine) Stop() {
	e.cancelWithReason("Generation stopped by user.")
}

// SwitchSession changes the active session and repoints approval state.
func (e *Engine) SwitchSession(id string) error {
	if e.Busy() {
		return ErrTurnActive
	}
	if err := e.store.Switch(id); err != nil {
		return err
	}
	e.surface.ClearOverlay(context.Background())
	e.approvals.SetState(e.store.Current().Approvals())
	return nil
}

// NewSession creates a fresh session and makes it active.
func (e *Engine) NewSession() (*session.Session, error) {
	if e.Busy() {
		return nil, ErrTurnActive
	}
	s := e.store.Create()
	e.approvals.SetState(s.Approvals())
	e.persist()
	return s, nil
}

// ClearSession drops the current session's messages and every approval
// grant it accumulated.
func (e *Engine) ClearSession() error {
	if e.Busy() {
		return ErrTurnActive
	}
	e.store.Current().Clear()
	e.persist()
	return nil
}

// Send runs one full turn for the user's message. Queued context chips are
// folded into the message's full content; the visible content stays the
// typed text. Blocks until the turn finishes or is canceled.
func (e *Engine) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)

	e.mu.Lock()
	if e.generating {
		e.mu.Unlock()
		return ErrTurnActive
	}
	temp := e.tempContexts
	e.tempContexts = nil
	if text == "" && len(temp) == 0 {
		e.mu.Unlock()
		return ErrEmptyMessage
	}
	turnCtx, cancel := context.WithCancel(ctx)
	e.generating = true
	e.cancelTurn = cancel
	e.mu.Unlock()

	sess := e.store.Current()

	// A fresh user message starts a new turn; turn-scoped grants from the
	// previous one expire. Retries keep theirs.
	sess.Approvals().ClearTurn()

	fullContent := text
	if len(temp) > 0 {
		fullContent = wrapTempContexts(temp) + "\n\n" + text
	}
	sess.Append(types.NewUserMessage(text, fullContent))
	sess.MaybeSetTitle(text)

	return e.runTurn(turnCtx, cancel, sess)
}

// Retry regenerates the turn containing the given message. History is cut
// per the retry rules and the loop re-runs without appending a new user
// message; turn-scoped approval grants survive.
func (e *Engine) Retry(ctx context.Context, messageID string) error {
	e.mu.Lock()
	if e.generating {
		e.mu.Unlock()
		return ErrTurnActive
	}
	turnCtx, cancel := context.WithCancel(ctx)
	e.generating = true
	e.cancelTurn = cancel
	e.mu.Unlock()

	sess := e.store.Current()
	if err := sess.TruncateForRetry(messageID); err != nil {
		e.finishTurn(cancel)
		return err
	}

	return e.runTurn(turnCtx, cancel, sess)
}

// runTurn anchors the streaming placeholder, arms the watchdog for agent
// turns, and drives the loop. Callers must hold the generating flag.
func (e *Engine) runTurn(ctx context.Context, cancel context.CancelFunc, sess *session.Session) error {
	defer e.finishTurn(cancel)

	cfg := e.settings.Get()
	active := activeTools(cfg)
	agentTurn := len(active) > 0

	e.maybeCompact(ctx, sess, cfg)

	e.emit(types.NewUpdateBusyEvent(true))
	sess.Append(types.NewAssistantPlaceholder())

	if agentTurn {
		e.watchdog.Arm()
		defer e.watchdog.Disarm()
	}

	err := e.runLoop(ctx, sess, cfg, active)
	e.persist()
	return err
}

// finishTurn releases turn state, clears page markings, and notifies
// observers.
func (e *Engine) finishTurn(cancel context.CancelFunc) {
	cancel()

	e.mu.Lock()
	e.generating = false
	e.cancelTurn = nil
	e.mu.Unlock()

	if err := e.surface.ClearOverlay(context.Background()); err != nil {
		e.logger.Warnf("overlay cleanup failed: %v", err)
	}
	e.emit(types.NewUpdateBusyEvent(false))
	e.emit(types.NewTurnEndEvent())
}

// cancelWithReason aborts the running turn and records the reason in the
// transcript. No-op when idle.
func (e *Engine) cancelWithReason(reason string) {
	e.mu.Lock()
	cancel := e.cancelTurn
	generating := e.generating
	e.mu.Unlock()

	if !generating || cancel == nil {
		return
	}

	e.logger.Infof("turn canceled: %s", reason)
	cancel()
	e.store.Current().Append(types.NewSystemMessage(reason))
	e.emit(types.NewCanceledEvent(reason))
}

// onWatchdogCancel is invoked by the coordinator when the user takes the
// page back.
func (e *Engine) onWatchdogCancel(reason string) {
	e.cancelWithReason(reason)
}

// persist saves all sessions, logging instead of failing the turn.
func (e *Engine) persist() {
	if err := e.store.Save(); err != nil {
		e.logger.Errorf("failed to persist sessions: %v", err)
	}
}

// wrapTempContexts renders queued page contexts as structured blocks for
// the model.
func wrapTempContexts(contexts []browser.PageContext) string {
	blocks := make([]string, 0, len(contexts))
	for _, c := range contexts {
		blocks = append(blocks, fmt.Sprintf(
			"<current_page_context>\n<title>%s</title>\n<url>%s</url>\n<content>%s</content>\n</current_page_context>",
			c.Title, c.URL, c.Content))
	}
	return strings.Join(blocks, "\n")
}
