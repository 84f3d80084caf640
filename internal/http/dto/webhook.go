package dto

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

func NewError(message string) ErrorResponse {
	return ErrorResponse{Error: true, Message: message}
}

// WebhookResponse acknowledges one processed delivery. ActivityID is empty
// for deliveries that produced no activity (banned or activity-less events).
type WebhookResponse struct {
	Status     string `json:"status"`
	StorageID  string `json:"storageId,omitempty"`
	ActivityID string `json:"activityId,omitempty"`
}

// ReplayRequest selects the stored events to re-derive. Date bounds are
// hour buckets, e.g. "2024-05-01T09Z", inclusive on both ends.
type ReplayRequest struct {
	Events    []string `json:"events"`
	DateStart string   `json:"dateStart"`
	DateEnd   string   `json:"dateEnd"`
}

type ReplayResponse struct {
	WrittenActivityIDs []string `json:"writtenActivityIds"`
}
