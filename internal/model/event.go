package model

import "encoding/json"

// Event is the canonical envelope for one inbound webhook delivery. It is
// immutable once stored; only the Banned flag is decided at write time.
//
// (CustomerID, FeedID, Name, hour bucket of EventTimestamp, InstanceID)
// uniquely identifies a delivery. Redelivery with the same instance id
// overwrites the stored copy instead of duplicating it.
type Event struct {
	PluginName      Source `json:"pluginName"`
	ContentLength   int64  `json:"contentLength"`
	InstanceID      string `json:"instanceId"`
	CustomerID      int64  `json:"customerId"`
	FeedID          int    `json:"feedId"`
	CreateTimestamp int64  `json:"createTimestamp"`
	EventTimestamp  int64  `json:"eventTimestamp"`
	Name            string `json:"name"`
	HookID          string `json:"hookId,omitempty"`
	TargetID        int64  `json:"targetId,omitempty"`
	TargetType      string `json:"targetType,omitempty"`
	SenderAccount   string `json:"senderAccount,omitempty"`

	// Properties carries the raw source payload. Generic code treats it as
	// opaque; adapters re-validate it strictly before deriving an activity.
	Properties json.RawMessage `json:"properties,omitempty"`

	// Headers holds selected pass-through headers, e.g. the Atlassian
	// webhook flow marker.
	Headers map[string]string `json:"headers,omitempty"`

	Banned bool `json:"banned,omitempty"`
}

// Action returns the sub-action field of the raw payload, if present.
// Used for the name[action=X] composite ban key.
func (e *Event) Action() string {
	if len(e.Properties) == 0 {
		return ""
	}
	var probe struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(e.Properties, &probe); err != nil {
		return ""
	}
	return probe.Action
}
