package approval

import (
	"context"
	"time"
)

// waitForResponse blocks until the user answers, the timeout expires, or the
// context is canceled. A granted response records its scope before returning
// so subsequent calls in the same turn or session auto-approve.
func (m *Manager) waitForResponse(ctx context.Context, toolName string, responseChannel chan *Response) (bool, bool) {
	timeout := time.NewTimer(m.timeout)
	defer timeout.Stop()

	select {
	case <-ctx.Done():
		return false, false

	case <-timeout.C:
		return false, true

	case response, ok := <-responseChannel:
		if !ok {
			// Channel closed during cleanup, treat as rejection.
			return false, false
		}
		if response.IsGranted() {
			if response.AllTools {
				m.State().GrantAll(response.Scope)
			} else {
				m.State().Grant(toolName, response.Scope)
			}
			return true, false
		}
		return false, false
	}
}
