package adapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"pulseboard.app/ingest/internal/clientid"
	"pulseboard.app/ingest/internal/model"
)

// see https://docs.github.com/en/webhooks/webhook-events-and-payload

var githubOrgEvents = []string{
	"repository",
	"repository_ruleset",
	"branch_protection_rule",
	"membership",
	"member",
	"organization",
}

var (
	githubCreatedEvents = []string{"push", "create"}
	githubUpdatedEvents = []string{
		"issue_comment",
		"pull_request_review",
		"pull_request_review_comment",
		"pull_request_review_thread",
		"label",
		"membership",
		"member",
		"release",
	}
	githubDeletedEvents = []string{"deleted", "delete"}

	githubCreatedActions = []string{"opened", "added", "created", "member_added", "member_invited"}
	githubUpdatedActions = []string{"edited", "renamed", "synchronize", "reopened"}
	githubClosedActions  = []string{"closed"}
	githubDeletedActions = []string{"member_removed"}
)

type githubAdapter struct {
	schema *jsonschema.Schema
}

func NewGitHub() Source {
	return &githubAdapter{schema: mustCompileSchema("github.json")}
}

type githubPayload struct {
	Action  string `json:"action"`
	RefType string `json:"ref_type"`
	Sender  *struct {
		Login   string `json:"login"`
		HTMLURL string `json:"html_url"`
	} `json:"sender"`
	Repository *struct {
		Name string `json:"name"`
	} `json:"repository"`
	PullRequest *struct {
		Title        string `json:"title"`
		CreatedAt    string `json:"created_at"`
		Additions    int    `json:"additions"`
		Deletions    int    `json:"deletions"`
		ChangedFiles int    `json:"changed_files"`
		Comments     int    `json:"comments"`
		Commits      int    `json:"commits"`
		HTMLURL      string `json:"html_url"`
		Head         struct {
			Ref string `json:"ref"`
		} `json:"head"`
	} `json:"pull_request"`
	Comment *struct {
		Body    string `json:"body"`
		HTMLURL string `json:"html_url"`
		User    struct {
			Login string `json:"login"`
		} `json:"user"`
	} `json:"comment"`
	Commits []struct {
		Message string `json:"message"`
		URL     string `json:"url"`
	} `json:"commits"`
	Release *struct {
		Body string `json:"body"`
	} `json:"release"`
	Label *struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"label"`
	Hook *struct {
		CreatedAt string `json:"created_at"`
	} `json:"hook"`
}

func (a *githubAdapter) Normalize(headers http.Header, body []byte, client clientid.ClientID, now time.Time) (model.Event, error) {
	name, err := requireHeader(headers, "X-GitHub-Event")
	if err != nil {
		return model.Event{}, err
	}
	hookID, err := requireHeader(headers, "X-GitHub-Hook-ID")
	if err != nil {
		return model.Event{}, err
	}

	eventTimestamp := now.UnixMilli()
	var probe struct {
		Hook *struct {
			CreatedAt string `json:"created_at"`
		} `json:"hook"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return model.Event{}, fmt.Errorf("%w: %v", ErrSchemaValidation, err)
	}
	if probe.Hook != nil {
		if ts := parseTimestamp(probe.Hook.CreatedAt); ts != 0 {
			eventTimestamp = ts
		}
	}

	instanceID := headers.Get("X-GitHub-Delivery")
	if instanceID == "" {
		instanceID = strconv.FormatInt(eventTimestamp, 10)
	}

	event := model.Event{
		PluginName:      model.SourceGitHub,
		ContentLength:   contentLength(headers, body),
		InstanceID:      instanceID,
		CustomerID:      client.CustomerID,
		FeedID:          client.FeedID,
		CreateTimestamp: now.UnixMilli(),
		EventTimestamp:  eventTimestamp,
		Name:            name,
		HookID:          hookID,
		TargetType:      headers.Get("X-GitHub-Hook-Installation-Target-Type"),
		Properties:      json.RawMessage(body),
	}
	if targetID, err := strconv.ParseInt(headers.Get("X-GitHub-Hook-Installation-Target-ID"), 10, 64); err == nil {
		event.TargetID = targetID
	}
	return event, nil
}

func (a *githubAdapter) ToActivity(event *model.Event, objectID string) (Result, error) {
	if err := validatePayload(a.schema, event.Properties); err != nil {
		return Result{}, err
	}

	var props githubPayload
	if err := json.Unmarshal(event.Properties, &props); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrSchemaValidation, err)
	}

	var account *model.Account
	if props.Sender != nil {
		account = &model.Account{
			ID:          props.Sender.Login,
			AccountName: props.Sender.Login,
			AccountURI:  props.Sender.HTMLURL,
		}
	}

	activity := &model.Activity{
		ObjectID:         objectID,
		EventType:        model.SourceGitHub,
		Event:            event.Name,
		CreatedTimestamp: event.CreateTimestamp,
		CustomerID:       event.CustomerID,
		Artifact:         githubArtifact(event.Name),
		Action:           githubAction(event.Name, props.Action),
		Initiative:       model.InitiativeUnset,
		Metadata:         githubMetadata(&props),
	}
	if account != nil {
		activity.ActorAccountID = account.ID
	}

	return Result{Activity: activity, Account: account}, nil
}

// IsNoise suppresses commit-less pushes (tag mirrors and the like) and bare
// tag or branch creations.
func (a *githubAdapter) IsNoise(event *model.Event) bool {
	var probe struct {
		RefType string          `json:"ref_type"`
		Commits json.RawMessage `json:"commits"`
	}
	if err := json.Unmarshal(event.Properties, &probe); err != nil {
		return false
	}

	if event.Name == "push" {
		var commits []json.RawMessage
		if err := json.Unmarshal(probe.Commits, &commits); err != nil || len(commits) == 0 {
			return true
		}
	}
	if event.Name == "create" && (probe.RefType == "tag" || probe.RefType == "branch") {
		return true
	}
	return false
}

func githubArtifact(eventName string) model.Artifact {
	if slices.Contains(githubOrgEvents, eventName) {
		return model.ArtifactCodeOrg
	}
	return model.ArtifactCode
}

// githubAction classifies the event. Event-name rules win over payload
// action rules; anything unmatched stays unknown.
func githubAction(eventName, codeAction string) model.Action {
	switch {
	case slices.Contains(githubUpdatedEvents, eventName):
		return model.ActionUpdated
	case slices.Contains(githubCreatedEvents, eventName):
		return model.ActionCreated
	case slices.Contains(githubDeletedEvents, eventName):
		return model.ActionDeleted
	}

	switch {
	case slices.Contains(githubCreatedActions, codeAction):
		return model.ActionCreated
	case slices.Contains(githubUpdatedActions, codeAction):
		return model.ActionUpdated
	case slices.Contains(githubClosedActions, codeAction):
		return model.ActionClosed
	case slices.Contains(githubDeletedActions, codeAction):
		return model.ActionDeleted
	}
	return model.ActionUnknown
}

func githubMetadata(props *githubPayload) model.ActivityMetadata {
	metadata := model.ActivityMetadata{CodeAction: props.Action}

	if props.Repository != nil {
		metadata.Repository = props.Repository.Name
	}
	if props.PullRequest != nil {
		metadata.PullRequest = &model.PullRequest{
			Title:        props.PullRequest.Title,
			Created:      parseTimestamp(props.PullRequest.CreatedAt),
			Additions:    props.PullRequest.Additions,
			Deletions:    props.PullRequest.Deletions,
			ChangedFiles: props.PullRequest.ChangedFiles,
			Comments:     props.PullRequest.Comments,
			Commits:      props.PullRequest.Commits,
			Ref:          props.PullRequest.Head.Ref,
			URI:          props.PullRequest.HTMLURL,
		}
	}
	if props.Comment != nil {
		metadata.PullRequestComment = &model.PullRequestComment{
			Body:   props.Comment.Body,
			Author: props.Comment.User.Login,
			URI:    props.Comment.HTMLURL,
		}
	}
	for _, commit := range props.Commits {
		metadata.Commits = append(metadata.Commits, model.Commit{
			Message: commit.Message,
			URI:     commit.URL,
		})
	}
	if props.Release != nil {
		metadata.Release = &model.Release{Body: props.Release.Body}
	}
	if props.Label != nil {
		metadata.Label = &model.Label{
			ID:   strconv.FormatInt(props.Label.ID, 10),
			Name: props.Label.Name,
			URI:  props.Label.URL,
		}
	}
	return metadata
}
