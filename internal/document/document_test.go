package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromData(t *testing.T) {
	doc, err := FromData(map[string]interface{}{
		"_id":    "A1",
		"name":   "Sword",
		"folder": "F1",
		"sort":   float64(100),
		"damage": "1d8",
	})
	require.NoError(t, err)
	assert.Equal(t, "A1", doc.ID)
	assert.Equal(t, "Sword", doc.Name)
	assert.Equal(t, "F1", doc.Folder)
	assert.Equal(t, 100, doc.Sort)
	assert.Equal(t, "1d8", doc.System["damage"])

	_, err = FromData(map[string]interface{}{"name": "no id"})
	assert.Error(t, err)
}

func TestApplyDiffMergesNestedMaps(t *testing.T) {
	doc := New("A1", "Sword", map[string]interface{}{
		"attributes": map[string]interface{}{
			"hp":     map[string]interface{}{"value": 10.0, "max": 10.0},
			"weight": 3.0,
		},
	})
	changed := doc.ApplyDiff(map[string]interface{}{
		"name": "Longsword",
		"attributes": map[string]interface{}{
			"hp": map[string]interface{}{"value": 7.0},
		},
	})
	assert.True(t, changed)
	assert.Equal(t, "Longsword", doc.Name)

	value, ok := doc.Get("attributes.hp.value")
	require.True(t, ok)
	assert.Equal(t, 7.0, value)
	// untouched siblings survive the merge
	max, _ := doc.Get("attributes.hp.max")
	assert.Equal(t, 10.0, max)
	weight, _ := doc.Get("attributes.weight")
	assert.Equal(t, 3.0, weight)
}

func TestApplyDiffReportsNoChange(t *testing.T) {
	doc := New("A1", "Sword", map[string]interface{}{"rarity": "common"})
	assert.False(t, doc.ApplyDiff(map[string]interface{}{"rarity": "common"}))
	assert.False(t, doc.ApplyDiff(map[string]interface{}{"_id": "ignored"}))
}

func TestCloneIsolation(t *testing.T) {
	doc := New("A1", "Sword", map[string]interface{}{
		"attributes": map[string]interface{}{"hp": map[string]interface{}{"value": 10.0}},
	})
	clone := doc.Clone()
	clone.ApplyDiff(map[string]interface{}{
		"attributes": map[string]interface{}{"hp": map[string]interface{}{"value": 1.0}},
	})
	original, _ := doc.Get("attributes.hp.value")
	assert.Equal(t, 10.0, original)
}

func TestToDataRoundTrip(t *testing.T) {
	doc, err := FromData(map[string]interface{}{
		"_id": "A1", "name": "Sword", "folder": "F1", "sort": float64(5), "damage": "1d8",
	})
	require.NoError(t, err)
	data := doc.ToData()
	assert.Equal(t, "A1", data["_id"])
	assert.Equal(t, "F1", data["folder"])
	assert.Equal(t, "1d8", data["damage"])
}
