package adapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	gitlab "gitlab.com/gitlab-org/api/client-go"

	"pulseboard.app/ingest/internal/clientid"
	"pulseboard.app/ingest/internal/model"
)

type gitlabAdapter struct {
	schema *jsonschema.Schema
}

func NewGitLab() Source {
	return &gitlabAdapter{schema: mustCompileSchema("gitlab.json")}
}

// Normalize names the event after object_kind (push, tag_push,
// merge_request, note). GitLab's X-Gitlab-Event header carries a display
// string ("Push Hook") and is ignored.
func (a *gitlabAdapter) Normalize(headers http.Header, body []byte, client clientid.ClientID, now time.Time) (model.Event, error) {
	var probe struct {
		ObjectKind       string            `json:"object_kind"`
		UserUsername     string            `json:"user_username"`
		User             *gitlab.EventUser `json:"user"`
		ObjectAttributes *struct {
			CreatedAt string `json:"created_at"`
		} `json:"object_attributes"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return model.Event{}, fmt.Errorf("%w: %v", ErrSchemaValidation, err)
	}
	if probe.ObjectKind == "" {
		return model.Event{}, fmt.Errorf("%w: object_kind", ErrSchemaValidation)
	}

	eventTimestamp := now.UnixMilli()
	if probe.ObjectAttributes != nil {
		if ts := parseTimestamp(probe.ObjectAttributes.CreatedAt); ts != 0 {
			eventTimestamp = ts
		}
	}

	instanceID := headers.Get("X-Gitlab-Event-UUID")
	if instanceID == "" {
		instanceID = strconv.FormatInt(eventTimestamp, 10)
	}

	senderAccount := probe.UserUsername
	if senderAccount == "" && probe.User != nil {
		senderAccount = probe.User.Username
	}

	return model.Event{
		PluginName:      model.SourceGitLab,
		ContentLength:   contentLength(headers, body),
		InstanceID:      instanceID,
		CustomerID:      client.CustomerID,
		FeedID:          client.FeedID,
		SenderAccount:   senderAccount,
		CreateTimestamp: now.UnixMilli(),
		EventTimestamp:  eventTimestamp,
		Name:            probe.ObjectKind,
		Properties:      json.RawMessage(body),
	}, nil
}

func (a *gitlabAdapter) ToActivity(event *model.Event, objectID string) (Result, error) {
	if err := validatePayload(a.schema, event.Properties); err != nil {
		return Result{}, err
	}

	activity := &model.Activity{
		ObjectID:         objectID,
		EventType:        model.SourceGitLab,
		Event:            event.Name,
		CreatedTimestamp: event.CreateTimestamp,
		CustomerID:       event.CustomerID,
		Artifact:         model.ArtifactCode,
		Initiative:       model.InitiativeUnset,
	}

	var account *model.Account

	switch event.Name {
	case "push", "tag_push":
		var push gitlab.PushEvent
		if err := json.Unmarshal(event.Properties, &push); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrSchemaValidation, err)
		}
		activity.Action = model.ActionCreated
		activity.Metadata.Repository = push.Project.Name
		for _, commit := range push.Commits {
			activity.Metadata.Commits = append(activity.Metadata.Commits, model.Commit{
				Message: commit.Message,
				URI:     commit.URL,
			})
		}
		if push.UserUsername != "" {
			account = &model.Account{
				ID:          push.UserUsername,
				AccountName: push.UserName,
			}
		}

	case "merge_request":
		var merge gitlab.MergeEvent
		if err := json.Unmarshal(event.Properties, &merge); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrSchemaValidation, err)
		}
		activity.Action = gitlabMergeAction(merge.ObjectAttributes.Action)
		activity.Metadata.CodeAction = merge.ObjectAttributes.Action
		activity.Metadata.Repository = merge.Project.Name
		activity.Metadata.PullRequest = &model.PullRequest{
			Title:   merge.ObjectAttributes.Title,
			Created: parseTimestamp(merge.ObjectAttributes.CreatedAt),
			Ref:     merge.ObjectAttributes.SourceBranch,
			URI:     merge.ObjectAttributes.URL,
		}
		if merge.User != nil {
			account = &model.Account{
				ID:          merge.User.Username,
				AccountName: merge.User.Name,
			}
		}

	case "note":
		var note struct {
			User    *gitlab.EventUser `json:"user"`
			Project struct {
				Name string `json:"name"`
			} `json:"project"`
			ObjectAttributes struct {
				Note string `json:"note"`
				URL  string `json:"url"`
			} `json:"object_attributes"`
			MergeRequest *struct {
				Title        string `json:"title"`
				SourceBranch string `json:"source_branch"`
			} `json:"merge_request"`
		}
		if err := json.Unmarshal(event.Properties, &note); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrSchemaValidation, err)
		}
		activity.Action = model.ActionUpdated
		activity.Metadata.Repository = note.Project.Name
		activity.Metadata.PullRequestComment = &model.PullRequestComment{
			Body: note.ObjectAttributes.Note,
			URI:  note.ObjectAttributes.URL,
		}
		if note.User != nil {
			account = &model.Account{
				ID:          note.User.Username,
				AccountName: note.User.Name,
			}
			activity.Metadata.PullRequestComment.Author = note.User.Username
		}
		if note.MergeRequest != nil {
			activity.Metadata.PullRequest = &model.PullRequest{
				Title: note.MergeRequest.Title,
				Ref:   note.MergeRequest.SourceBranch,
			}
		}

	default:
		activity.Action = model.ActionUnknown
		var generic struct {
			Project *struct {
				Name string `json:"name"`
			} `json:"project"`
		}
		if err := json.Unmarshal(event.Properties, &generic); err == nil && generic.Project != nil {
			activity.Metadata.Repository = generic.Project.Name
		}
		if event.SenderAccount != "" {
			account = &model.Account{ID: event.SenderAccount}
		}
	}

	if account != nil {
		activity.ActorAccountID = account.ID
	}

	return Result{Activity: activity, Account: account}, nil
}

// IsNoise mirrors the push heuristics: commit-less pushes and bare tag
// pushes carry nothing worth deriving.
func (a *gitlabAdapter) IsNoise(event *model.Event) bool {
	if event.Name == "tag_push" {
		return true
	}
	if event.Name != "push" {
		return false
	}
	var probe struct {
		Commits []json.RawMessage `json:"commits"`
	}
	if err := json.Unmarshal(event.Properties, &probe); err != nil {
		return true
	}
	return len(probe.Commits) == 0
}

func gitlabMergeAction(action string) model.Action {
	switch action {
	case "open", "reopen":
		return model.ActionCreated
	case "update", "approved", "unapproved":
		return model.ActionUpdated
	case "close", "merge":
		return model.ActionClosed
	default:
		return model.ActionUnknown
	}
}
