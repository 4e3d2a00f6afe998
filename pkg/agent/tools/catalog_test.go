package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogCompleteness(t *testing.T) {
	defs := Catalog()
	require.Len(t, defs, 8)

	names := make(map[string]Definition, len(defs))
	for _, def := range defs {
		assert.NotEmpty(t, def.Description, "tool %s needs a description", def.Name)
		assert.Equal(t, "object", def.Parameters["type"])
		names[def.Name] = def
	}

	for _, expected := range []string{
		ToolGetPageInteractables, ToolReadPageContent, ToolClickElement,
		ToolTypeText, ToolOpenURL, ToolAnalyzeScreenshot,
		ToolWebSearch, ToolFetchURLContent,
	} {
		assert.Contains(t, names, expected)
	}
}

func TestDangerousTools(t *testing.T) {
	assert.True(t, IsDangerous(ToolClickElement))
	assert.True(t, IsDangerous(ToolTypeText))
	assert.True(t, IsDangerous(ToolOpenURL))

	assert.False(t, IsDangerous(ToolGetPageInteractables))
	assert.False(t, IsDangerous(ToolReadPageContent))
	assert.False(t, IsDangerous(ToolAnalyzeScreenshot))
	assert.False(t, IsDangerous("no_such_tool"))
}

func TestSilentTools(t *testing.T) {
	assert.True(t, IsSilent(ToolReadPageContent))
	assert.True(t, IsSilent(ToolWebSearch))
	assert.True(t, IsSilent(ToolFetchURLContent))

	assert.False(t, IsSilent(ToolClickElement))
	assert.False(t, IsSilent("no_such_tool"))
}

func TestFilter(t *testing.T) {
	defs := Catalog()

	all := Filter(defs, nil)
	assert.Len(t, all, len(defs))

	subset := Filter(defs, []string{ToolOpenURL, ToolWebSearch})
	require.Len(t, subset, 2)
	// Catalog order is preserved regardless of the enabled list order.
	assert.Equal(t, ToolOpenURL, subset[0].Name)
	assert.Equal(t, ToolWebSearch, subset[1].Name)

	assert.Empty(t, Filter(defs, []string{}))
}
