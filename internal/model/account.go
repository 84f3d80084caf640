package model

// Account is a source-specific actor. The id is stable per source+account
// (GitHub login, Atlassian account id, GitLab username).
type Account struct {
	ID                   string `json:"id"`
	AccountName          string `json:"accountName,omitempty"`
	AccountURI           string `json:"accountUri,omitempty"`
	TimeZone             string `json:"timeZone,omitempty"`
	CreatedTimestamp     int64  `json:"createdTimestamp,omitempty"`
	LastUpdatedTimestamp int64  `json:"lastUpdatedTimestamp,omitempty"`
}
