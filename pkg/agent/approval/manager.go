// Package approval coordinates human-in-the-loop authorization for
// dangerous browser tools. Execution blocks until the user answers, the
// request times out, or the turn is canceled; grants can be scoped to a
// single call, the current turn, or the whole session.
package approval

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tabpilot/tabpilot/pkg/agent/tools"
	"github.com/tabpilot/tabpilot/pkg/types"
)

// EventEmitter is a function type for emitting events.
type EventEmitter func(event *types.AgentEvent)

// Approver is the entry point frontends use to answer approval requests.
// The engine exposes its manager through this interface.
type Approver interface {
	HandleResponse(response *Response)
}

// Manager handles tool approval requests and responses.
type Manager struct {
	timeout          time.Duration
	pendingApprovals map[string]*pendingApproval
	mu               sync.Mutex
	emitEvent        EventEmitter
	state            *State
	whitelist        *URLWhitelist
}

// pendingApproval tracks an approval request that is waiting for user response.
type pendingApproval struct {
	approvalID string
	toolName   string
	response   chan *Response
	closeOnce  sync.Once // Ensures channel is closed exactly once
}

// NewManager creates an approval manager. whitelist may be nil when no URL
// auto-approval is configured.
func NewManager(timeout time.Duration, emitEvent EventEmitter, state *State, whitelist *URLWhitelist) *Manager {
	return &Manager{
		timeout:          timeout,
		pendingApprovals: make(map[string]*pendingApproval),
		emitEvent:        emitEvent,
		state:            state,
		whitelist:        whitelist,
	}
}

// State returns the scope memory backing this manager.
func (m *Manager) State() *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SetState swaps the grant memory, used when the active session changes.
// Pending requests keep waiting; only new grant checks see the new state.
func (m *Manager) SetState(state *State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
}

// RequestApproval asks the user to authorize one tool call and waits for the
// response. Returns (approved, timedOut) where:
//   - approved: true if the call may execute
//   - timedOut: true if the request expired without an answer
//
// Standing grants (turn or session scope) and whitelisted open_url targets
// auto-approve without emitting a request.
func (m *Manager) RequestApproval(ctx context.Context, call types.ToolCallRequest, args map[string]interface{}) (bool, bool) {
	if m.checkAutoApproval(call, args) {
		return true, false
	}

	approvalID := uuid.New().String()
	responseChannel := make(chan *Response, 1)

	m.setupPendingApproval(approvalID, call.Name, responseChannel)
	defer m.cleanupPendingApproval(approvalID, responseChannel)

	m.emitEvent(types.NewToolApprovalRequestEvent(approvalID, call.Name, args))

	return m.waitForResponse(ctx, call.Name, responseChannel)
}

// SetWhitelist replaces the URL auto-approval patterns, used when the
// configuration changes.
func (m *Manager) SetWhitelist(whitelist *URLWhitelist) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.whitelist = whitelist
}

// checkAutoApproval applies standing grants and the URL whitelist.
func (m *Manager) checkAutoApproval(call types.ToolCallRequest, args map[string]interface{}) bool {
	m.mu.Lock()
	state, whitelist := m.state, m.whitelist
	m.mu.Unlock()

	if state.IsApproved(call.Name) {
		return true
	}
	if whitelist != nil && call.Name == tools.ToolOpenURL {
		if url, ok := args["url"].(string); ok && whitelist.IsAllowed(url) {
			return true
		}
	}
	return false
}

// HandleResponse processes an approval response from the user.
func (m *Manager) HandleResponse(response *Response) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pa, ok := m.pendingApprovals[response.ApprovalID]
	if !ok {
		// No matching pending approval, for example an answer arriving
		// after timeout or cancellation. Ignore it.
		return
	}

	// Non-blocking send: cleanup may already have started and nobody is
	// guaranteed to receive.
	select {
	case pa.response <- response:
	default:
	}
}

// setupPendingApproval stores the pending approval request.
func (m *Manager) setupPendingApproval(approvalID, toolName string, responseChannel chan *Response) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pendingApprovals[approvalID] = &pendingApproval{
		approvalID: approvalID,
		toolName:   toolName,
		response:   responseChannel,
	}
}

// cleanupPendingApproval removes the pending approval and closes its channel
// exactly once, so a racing HandleResponse cannot panic on a closed channel.
func (m *Manager) cleanupPendingApproval(approvalID string, responseChannel chan *Response) {
	m.mu.Lock()
	pa, ok := m.pendingApprovals[approvalID]
	if ok {
		delete(m.pendingApprovals, approvalID)
	}
	m.mu.Unlock()

	if ok && pa != nil {
		pa.closeOnce.Do(func() {
			close(responseChannel)
		})
	}
}
