package model

// Source identifies the platform a webhook originates from.
type Source string

const (
	SourceGitHub     Source = "github"
	SourceGitLab     Source = "gitlab"
	SourceJira       Source = "jira"
	SourceConfluence Source = "confluence"
)

// Sources lists every supported source. The adapter registry is checked
// against this list at startup so a source without an adapter fails fast.
var Sources = []Source{SourceGitHub, SourceGitLab, SourceJira, SourceConfluence}

func ParseSource(s string) (Source, bool) {
	switch Source(s) {
	case SourceGitHub, SourceGitLab, SourceJira, SourceConfluence:
		return Source(s), true
	}
	return "", false
}

// Feed binds a feed id to the source it carries. Feed ids are stable:
// they appear in client tokens, storage paths and persisted documents.
type Feed struct {
	ID     int
	Source Source
}

var Feeds = []Feed{
	{ID: 1, Source: SourceGitHub},
	{ID: 2, Source: SourceJira},
	{ID: 3, Source: SourceConfluence},
	{ID: 4, Source: SourceGitLab},
}

func FeedByID(id int) (Feed, bool) {
	for _, f := range Feeds {
		if f.ID == id {
			return f, true
		}
	}
	return Feed{}, false
}
