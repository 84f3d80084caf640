package adapter

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"pulseboard.app/ingest/internal/clientid"
	"pulseboard.app/ingest/internal/model"
)

var (
	// ErrMissingHeader indicates a required source header was absent.
	ErrMissingHeader = errors.New("missing header")

	// ErrSchemaValidation indicates the stored payload does not match the
	// source's known shape. Fatal for activity derivation; the raw event
	// is already persisted by then.
	ErrSchemaValidation = errors.New("payload schema validation failed")

	// ErrUnknownSource indicates a request for a source with no adapter.
	ErrUnknownSource = errors.New("unknown source")
)

// Result is the output of deriving an activity from one event. Account and
// Ticket are populated only when the payload carries them.
type Result struct {
	Activity *model.Activity
	Account  *model.Account
	Ticket   *model.Ticket
}

// Source normalizes one platform's webhook deliveries. Normalize maps a raw
// delivery onto the canonical envelope without touching any store.
// ToActivity strictly validates the stored payload and derives the
// normalized activity. IsNoise flags low-value deliveries suppressed by
// default for the platform.
type Source interface {
	Normalize(headers http.Header, body []byte, client clientid.ClientID, now time.Time) (model.Event, error)
	ToActivity(event *model.Event, objectID string) (Result, error)
	IsNoise(event *model.Event) bool
}

// Registry holds one adapter per supported source.
type Registry struct {
	adapters map[model.Source]Source
}

func NewRegistry() *Registry {
	return &Registry{adapters: map[model.Source]Source{
		model.SourceGitHub:     NewGitHub(),
		model.SourceJira:       NewJira(),
		model.SourceConfluence: NewConfluence(),
		model.SourceGitLab:     NewGitLab(),
	}}
}

func (r *Registry) For(source model.Source) (Source, error) {
	adapter, ok := r.adapters[source]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}
	return adapter, nil
}

func requireHeader(headers http.Header, name string) (string, error) {
	value := headers.Get(name)
	if value == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingHeader, name)
	}
	return value, nil
}

// passThroughHeaders keeps the Atlassian webhook flow marker on the event
// when present.
func passThroughHeaders(headers http.Header) map[string]string {
	flow := headers.Get("X-Atlassian-Webhook-Flow")
	if flow == "" {
		return nil
	}
	return map[string]string{"X-Atlassian-Webhook-Flow": flow}
}

// parseTimestamp converts a source-supplied time string to epoch millis,
// returning 0 when absent or unparseable.
func parseTimestamp(value string) int64 {
	if value == "" {
		return 0
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.999-0700"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}

func contentLength(headers http.Header, body []byte) int64 {
	if cl := headers.Get("Content-Length"); cl != "" {
		var n int64
		if _, err := fmt.Sscanf(cl, "%d", &n); err == nil {
			return n
		}
	}
	return int64(len(body))
}
