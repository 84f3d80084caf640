package model

// IdentityAccount links one platform account to a cross-source identity.
type IdentityAccount struct {
	FeedID int    `json:"feedId"`
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	URL    string `json:"url,omitempty"`
}

// Identity is a cross-source person record unifying accounts from
// multiple platforms. Curated manually; matching is exact, never fuzzy.
type Identity struct {
	Email       string            `json:"email,omitempty"`
	DisplayName string            `json:"displayName,omitempty"`
	TimeZone    string            `json:"timeZone,omitempty"`
	Accounts    []IdentityAccount `json:"accounts,omitempty"`
}

// IdentityMap is keyed by identity id.
type IdentityMap map[string]Identity

// FindIdentity returns the id of the identity owning the account with the
// given feed and account id (or, if accountName is non-empty, the given
// account name on that feed). A match on another feed does not count, and
// an empty id or name never matches: identity entries may carry only one
// of the two, and an anonymous account must not claim them.
func FindIdentity(identities IdentityMap, feedID int, accountID, accountName string) (string, bool) {
	for id, identity := range identities {
		for _, acct := range identity.Accounts {
			if acct.FeedID != feedID {
				continue
			}
			if (accountID != "" && acct.ID == accountID) || (accountName != "" && acct.Name == accountName) {
				return id, true
			}
		}
	}
	return "", false
}
