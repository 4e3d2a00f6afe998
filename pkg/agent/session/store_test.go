package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabpilot/tabpilot/pkg/agent/approval"
	"github.com/tabpilot/tabpilot/pkg/types"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	st, err := NewStore(filepath.Join(t.TempDir(), "sessions.json"))
	require.NoError(t, err)
	return st
}

func TestNewStoreStartsWithFreshSession(t *testing.T) {
	st := tempStore(t)
	require.NotNil(t, st.Current())
	assert.Equal(t, DefaultTitle, st.Current().Title())
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	st, err := NewStore(path)
	require.NoError(t, err)

	s := st.Current()
	s.Append(types.NewUserMessage("open the docs", "open the docs"))
	s.MaybeSetTitle("open the docs")
	s.Append(types.NewToolMessage("call_1", "open_url", "Successfully opened"))
	s.Approvals().Grant("open_url", approval.ScopeSession)
	s.Approvals().Grant("click_element", approval.ScopeTurn)
	require.NoError(t, st.Save())

	reloaded, err := NewStore(path)
	require.NoError(t, err)

	got := reloaded.Current()
	require.NotNil(t, got)
	assert.Equal(t, s.ID(), got.ID())
	assert.Equal(t, "open the docs", got.Title())
	assert.Equal(t, 2, got.Len())

	assert.True(t, got.Approvals().IsApproved("open_url"), "session grants persist")
	assert.False(t, got.Approvals().IsApproved("click_element"), "turn grants do not persist")
}

func TestStoreLoadRepairsDanglingToolCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	st, err := NewStore(path)
	require.NoError(t, err)

	s := st.Current()
	s.Append(types.NewUserMessage("go", ""))
	s.Append(assistantWithCalls("opening"))
	require.NoError(t, st.Save())

	reloaded, err := NewStore(path)
	require.NoError(t, err)
	require.Equal(t, 1, reloaded.Current().Len(), "unanswered tool calls dropped on load")
	assert.Equal(t, types.RoleUser, reloaded.Current().LastMessage().Role)
}

func TestStoreSwitchAndDelete(t *testing.T) {
	st := tempStore(t)
	first := st.Current()
	second := st.Create()
	assert.Equal(t, second.ID(), st.Current().ID())

	require.NoError(t, st.Switch(first.ID()))
	assert.Equal(t, first.ID(), st.Current().ID())
	assert.Error(t, st.Switch("missing"))

	require.NoError(t, st.Delete(first.ID()))
	assert.Equal(t, second.ID(), st.Current().ID(), "falls back to most recent survivor")

	require.NoError(t, st.Delete(second.ID()))
	require.NotNil(t, st.Current(), "deleting the last session creates a fresh one")
	assert.NotEqual(t, second.ID(), st.Current().ID())

	assert.Error(t, st.Delete("missing"))
}

func TestStoreSessionsOrdering(t *testing.T) {
	st := tempStore(t)
	first := st.Current()
	second := st.Create()

	// Touch the first session so it becomes the most recent.
	first.Append(types.NewUserMessage("newer activity", ""))

	list := st.Sessions()
	require.Len(t, list, 2)
	assert.Equal(t, first.ID(), list[0].ID())
	assert.Equal(t, second.ID(), list[1].ID())
}
