package realtime

import (
	"fmt"

	"github.com/erancha/RENTracker-sub000/internal/storage"
	"github.com/erancha/RENTracker-sub000/pkg/json"
)

// Action is one of the four command verbs. Together with the resource kind
// it forms the closed set of supported commands; anything outside the set
// fails before reaching storage.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ClientMessage is the inbound frame from a connected client.
type ClientMessage struct {
	Command Command `json:"command"`
}

// Command carries the verb and its resource-specific parameters. The
// authenticated sender identity is never read from the payload; it comes
// from the connection.
type Command struct {
	Type   Action        `json:"type"`
	Params CommandParams `json:"params"`
}

// CommandParams scopes a command to a resource kind and entity.
type CommandParams struct {
	Resource    string          `json:"resource"`
	ID          string          `json:"id,omitempty"`
	ApartmentID string          `json:"apartmentId,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// Envelope is the notification message carried over the pub/sub bridge to
// the instance owning the target's socket. ResponsePayload is an already
// serialized outbound frame, forwarded verbatim.
type Envelope struct {
	TargetUserID    string          `json:"targetUserId"`
	ResponsePayload json.RawMessage `json:"responsePayload"`
}

// frameKeys maps each action to its outbound frame discriminator.
var frameKeys = map[Action]string{
	ActionCreate: "dataCreated",
	ActionRead:   "dataRead",
	ActionUpdate: "dataUpdated",
	ActionDelete: "dataDeleted",
}

// successFrame serializes a command result for direct client consumption:
// {"dataCreated": {"apartment": {...}}} and so on.
func successFrame(action Action, resource storage.Resource, payload interface{}) ([]byte, error) {
	key, ok := frameKeys[action]
	if !ok {
		return nil, fmt.Errorf("no frame key for action %q", action)
	}
	return json.Marshal(map[string]interface{}{
		key: map[string]interface{}{string(resource): payload},
	})
}

// errorFrame serializes an error for the sending client only.
func errorFrame(msg string) []byte {
	b, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		return []byte(`{"error":"internal error"}`)
	}
	return b
}
