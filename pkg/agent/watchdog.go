package agent

import "sync"

// Cancellation reasons surfaced in the transcript when the watchdog fires.
const (
	reasonUserInteraction = "In-page user action detected; the agent has stopped."
	reasonTabSwitch       = "Tab switch detected; the agent has stopped."
)

// Coordinator decides when outside activity must abort an agent turn. It is
// armed only while an agent turn (side-effecting tools enabled) is running,
// fires at most once per arming, and suppresses tab-switch reports while
// the agent itself is navigating.
type Coordinator struct {
	mu       sync.Mutex
	armed    bool
	agentNav int
	onCancel func(reason string)
}

// NewCoordinator creates a coordinator that invokes onCancel with a
// user-facing reason when a turn must be aborted.
func NewCoordinator(onCancel func(reason string)) *Coordinator {
	return &Coordinator{onCancel: onCancel}
}

// Arm enables cancellation for the duration of an agent turn.
func (c *Coordinator) Arm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armed = true
}

// Disarm disables cancellation at turn end.
func (c *Coordinator) Disarm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armed = false
}

// Armed reports whether the coordinator would act on a report.
func (c *Coordinator) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

// BeginAgentNavigation marks that the agent is about to cause navigation or
// tab activity itself. Tab-switch reports are suppressed until the matching
// EndAgentNavigation.
func (c *Coordinator) BeginAgentNavigation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.agentNav++
}

// EndAgentNavigation releases the suppression taken by BeginAgentNavigation.
func (c *Coordinator) EndAgentNavigation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.agentNav > 0 {
		c.agentNav--
	}
}

// ReportUserInteraction handles a mousedown or keydown observed on the
// page. Only trusted (user-initiated) events count; script-synthesized ones
// are ignored.
func (c *Coordinator) ReportUserInteraction(trusted bool) {
	if !trusted {
		return
	}
	c.fire(reasonUserInteraction)
}

// ReportTabSwitch handles the active tab changing. Switches caused by the
// agent's own navigation tools are suppressed.
func (c *Coordinator) ReportTabSwitch() {
	c.mu.Lock()
	suppressed := c.agentNav > 0
	c.mu.Unlock()
	if suppressed {
		return
	}
	c.fire(reasonTabSwitch)
}

// fire triggers cancellation once per arming.
func (c *Coordinator) fire(reason string) {
	c.mu.Lock()
	if !c.armed {
		c.mu.Unlock()
		return
	}
	c.armed = false
	onCancel := c.onCancel
	c.mu.Unlock()

	if onCancel != nil {
		onCancel(reason)
	}
}
