package approval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateScopes(t *testing.T) {
	s := NewState()
	assert.False(t, s.IsApproved("click_element"))

	s.Grant("click_element", ScopeOnce)
	assert.False(t, s.IsApproved("click_element"), "once scope must not persist")

	s.Grant("click_element", ScopeTurn)
	assert.True(t, s.IsApproved("click_element"))

	s.Grant("open_url", ScopeSession)
	assert.True(t, s.IsApproved("open_url"))

	s.ClearTurn()
	assert.False(t, s.IsApproved("click_element"), "turn grants clear on new turn")
	assert.True(t, s.IsApproved("open_url"), "session grants survive turn boundaries")
}

func TestStateBlanketGrants(t *testing.T) {
	s := NewState()

	s.GrantAll(ScopeTurn)
	assert.True(t, s.IsApproved("click_element"))
	assert.True(t, s.IsApproved("type_text"))

	s.ClearTurn()
	assert.False(t, s.IsApproved("click_element"))

	s.GrantAll(ScopeSession)
	s.ClearTurn()
	assert.True(t, s.IsApproved("click_element"), "blanket session grant survives turn boundaries")

	s.Clear()
	assert.False(t, s.IsApproved("click_element"))
}

func TestStateSessionGrantsRoundTrip(t *testing.T) {
	s := NewState()
	s.Grant("open_url", ScopeSession)
	s.Grant("click_element", ScopeSession)
	s.Grant("type_text", ScopeTurn)

	grants := s.SessionGrants()
	assert.Equal(t, []string{"click_element", "open_url"}, grants, "sorted, session scope only")

	restored := NewState()
	restored.RestoreSessionGrants(grants)
	assert.True(t, restored.IsApproved("open_url"))
	assert.True(t, restored.IsApproved("click_element"))
	assert.False(t, restored.IsApproved("type_text"))
}
