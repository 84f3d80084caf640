package model

// Ticket is the durable summary of an issue-tracker issue, persisted only
// for issue-tracker sources and upserted with last-write-wins semantics.
type Ticket struct {
	ID                   string   `json:"id"`
	Key                  string   `json:"key"`
	Summary              string   `json:"summary"`
	URI                  string   `json:"uri,omitempty"`
	Priority             *int     `json:"priority,omitempty"`
	Project              *Project `json:"project,omitempty"`
	LastUpdatedTimestamp int64    `json:"lastUpdatedTimestamp,omitempty"`
}
