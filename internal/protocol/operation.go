package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Action is a database action requested on a document type.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionGet    Action = "get"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionGet:
		return true
	}
	return false
}

// Options carries the recognized configuration keys of an operation.
// Unknown keys on the wire are dropped by construction.
type Options struct {
	Render        bool   `json:"render"`
	Broadcast     bool   `json:"broadcast"`
	RenderContext string `json:"renderContext,omitempty"`
	Parent        string `json:"parent,omitempty"`
}

// Target is one entry of an operation's target list: either a bare
// document id (update/delete) or a data payload (create/update).
type Target struct {
	ID   string
	Data map[string]interface{}
}

func (t Target) MarshalJSON() ([]byte, error) {
	if t.Data != nil {
		return json.Marshal(t.Data)
	}
	return json.Marshal(t.ID)
}

func (t *Target) UnmarshalJSON(raw []byte) error {
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		t.ID = id
		t.Data = nil
		return nil
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("operation target must be an id or an object: %w", err)
	}
	t.Data = data
	t.ID, _ = data["_id"].(string)
	return nil
}

// Operation is the outbound envelope describing one requested database
// action. Type and Action are fixed at construction; target order is
// preserved through the round trip.
type Operation struct {
	RequestID string   `json:"requestId"`
	Type      string   `json:"type"`
	Action    Action   `json:"action"`
	Targets   []Target `json:"targets"`
	Options   Options  `json:"operation"`
}

func NewOperation(documentType string, action Action, targets []Target, opts Options) (Operation, error) {
	if documentType == "" {
		return Operation{}, fmt.Errorf("operation requires a document type")
	}
	if !action.Valid() {
		return Operation{}, fmt.Errorf("unknown action %q", action)
	}
	copied := make([]Target, len(targets))
	copy(copied, targets)
	return Operation{
		RequestID: uuid.NewString(),
		Type:      documentType,
		Action:    action,
		Targets:   copied,
		Options:   opts,
	}, nil
}
