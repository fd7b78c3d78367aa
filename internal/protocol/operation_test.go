package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOperation(t *testing.T) {
	targets := []Target{{ID: "A1"}, {ID: "A2"}}
	op, err := NewOperation("Item", ActionDelete, targets, Options{Render: true})
	require.NoError(t, err)
	assert.NotEmpty(t, op.RequestID)
	assert.Equal(t, "Item", op.Type)

	// mutating the caller's slice must not reach the envelope
	targets[0].ID = "changed"
	assert.Equal(t, "A1", op.Targets[0].ID)
}

func TestNewOperationRejectsBadInput(t *testing.T) {
	_, err := NewOperation("", ActionCreate, nil, Options{})
	assert.Error(t, err)

	_, err = NewOperation("Item", Action("explode"), nil, Options{})
	assert.Error(t, err)
}

func TestTargetSerialization(t *testing.T) {
	// ids serialize as plain strings, payloads as objects
	op, err := NewOperation("Item", ActionUpdate, []Target{
		{ID: "A1"},
		{Data: map[string]interface{}{"_id": "A2", "name": "Shield"}},
	}, Options{})
	require.NoError(t, err)

	raw, err := json.Marshal(op)
	require.NoError(t, err)

	var decoded struct {
		Targets []Target `json:"targets"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded.Targets, 2)
	assert.Equal(t, "A1", decoded.Targets[0].ID)
	assert.Nil(t, decoded.Targets[0].Data)
	assert.Equal(t, "A2", decoded.Targets[1].ID)
	assert.Equal(t, "Shield", decoded.Targets[1].Data["name"])
}
