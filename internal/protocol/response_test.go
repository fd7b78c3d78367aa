package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponseSelectiveCopy(t *testing.T) {
	resp, err := ParseResponse(map[string]interface{}{
		"type":      "Item",
		"action":    "create",
		"broadcast": true,
		"userId":    "u1",
		"operation": map[string]interface{}{"render": true, "renderContext": "sidebar", "junk": 1},
		"result":    []interface{}{map[string]interface{}{"_id": "A1", "name": "Sword"}},
		// caller-supplied fields outside the declared set must vanish
		"sessionToken": "secret",
		"internalFlag": true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Item", resp.Type)
	assert.Equal(t, ActionCreate, resp.Action)
	assert.True(t, resp.Broadcast)
	assert.Equal(t, "u1", resp.UserID)
	assert.True(t, resp.Operation.Render)
	assert.Equal(t, "sidebar", resp.Operation.RenderContext)
	require.Len(t, resp.Result, 1)
	assert.Equal(t, "Sword", resp.Result[0]["name"])
	// the unknown fields have nowhere to live on the struct; check the
	// result data was not polluted either
	_, leaked := resp.Result[0]["sessionToken"]
	assert.False(t, leaked)
}

func TestParseResponseMissingType(t *testing.T) {
	_, err := ParseResponse(map[string]interface{}{
		"action": "create",
		"result": []interface{}{},
	})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestParseResponseResultErrorExclusivity(t *testing.T) {
	// neither present
	_, err := ParseResponse(map[string]interface{}{"type": "Item", "action": "create"})
	assert.ErrorIs(t, err, ErrMalformedResponse)

	// both present
	_, err = ParseResponse(map[string]interface{}{
		"type":   "Item",
		"action": "create",
		"result": []interface{}{},
		"error":  "boom",
	})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestParseResponseErrorForms(t *testing.T) {
	resp, err := ParseResponse(map[string]interface{}{
		"type":   "Item",
		"action": "update",
		"error":  "permission denied",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "permission denied", resp.Error.Message)
	assert.Nil(t, resp.Result)

	resp, err = ParseResponse(map[string]interface{}{
		"type":   "Item",
		"action": "update",
		"error":  map[string]interface{}{"message": "denied", "code": float64(403)},
	})
	require.NoError(t, err)
	assert.Equal(t, 403, resp.Error.Code)
}

func TestParseResponseDeleteIdsAsResult(t *testing.T) {
	resp, err := ParseResponse(map[string]interface{}{
		"type":   "Item",
		"action": "delete",
		"result": []interface{}{"A1", "A2"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Result, 2)
	assert.Equal(t, "A1", resp.Result[0]["_id"])
	assert.Equal(t, "A2", resp.Result[1]["_id"])
}
