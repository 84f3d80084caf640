package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment, so every log statement in a request carries
// the customer/feed/event identifiers without repeating them at each call site.
type LogFields struct {
	CustomerID *int64  // Customer the webhook endpoint belongs to
	FeedID     *int    // Feed within the customer
	Source     *string // Source platform (github, jira, ...)
	EventName  *string // Normalized event name (e.g. "pull_request")
	InstanceID *string // Source-supplied delivery id
	Component  string  // Component name (e.g. "ingest.service.pipeline")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, updates LogFields) LogFields {
	result := existing

	if updates.CustomerID != nil {
		result.CustomerID = updates.CustomerID
	}
	if updates.FeedID != nil {
		result.FeedID = updates.FeedID
	}
	if updates.Source != nil {
		result.Source = updates.Source
	}
	if updates.EventName != nil {
		result.EventName = updates.EventName
	}
	if updates.InstanceID != nil {
		result.InstanceID = updates.InstanceID
	}
	if updates.Component != "" {
		result.Component = updates.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value, for setting LogFields inline.
func Ptr[T any](v T) *T {
	return &v
}
