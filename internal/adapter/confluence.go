package adapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"pulseboard.app/ingest/internal/clientid"
	"pulseboard.app/ingest/internal/model"
)

// contentPropertyType marks Confluence's internal property-storage writes,
// which carry no human activity.
const contentPropertyType = "com.atlassian.confluence.plugins.confluence-content-property-storage:content-property"

type confluenceAdapter struct {
	schema *jsonschema.Schema
}

func NewConfluence() Source {
	return &confluenceAdapter{schema: mustCompileSchema("confluence.json")}
}

type confluenceContent struct {
	ID                    json.Number `json:"id"`
	CreatorAccountID      string      `json:"creatorAccountId"`
	LastModifierAccountID string      `json:"lastModifierAccountId"`
	SpaceKey              string      `json:"spaceKey"`
	Self                  string      `json:"self"`
	ContentType           string      `json:"contentType"`
	Title                 string      `json:"title"`
	Version               int         `json:"version"`
	CreationDate          int64       `json:"creationDate"`
	ModificationDate      int64       `json:"modificationDate"`
}

type confluencePayload struct {
	UpdateTrigger string `json:"updateTrigger"`
	Type          string `json:"type"`
	Space         *struct {
		ID                    json.Number `json:"id"`
		CreatorAccountID      string      `json:"creatorAccountId"`
		LastModifierAccountID string      `json:"lastModifierAccountId"`
		Self                  string      `json:"self"`
		Key                   string      `json:"key"`
		IsPersonalSpace       bool        `json:"isPersonalSpace"`
		Title                 string      `json:"title"`
		CreationDate          int64       `json:"creationDate"`
		ModificationDate      int64       `json:"modificationDate"`
	} `json:"space"`
	Page    *confluenceContent `json:"page"`
	Content *confluenceContent `json:"content"`
	Comment *struct {
		confluenceContent
		Parent    *confluenceContent `json:"parent"`
		InReplyTo *struct {
			ID json.Number `json:"id"`
		} `json:"inReplyTo"`
	} `json:"comment"`
	Labeled *confluenceContent `json:"labeled"`
	Label   *struct {
		Name           string `json:"name"`
		Self           string `json:"self"`
		OwnerAccountID string `json:"ownerAccountId"`
	} `json:"label"`
}

// Normalize lifts userAccountId and timestamp out of the body and derives
// the event name structurally: Confluence sends no event-type header, so the
// populated top-level key decides. Older payloads say "content" where newer
// ones say "page"; both land in the page slot.
func (a *confluenceAdapter) Normalize(headers http.Header, body []byte, client clientid.ClientID, now time.Time) (model.Event, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return model.Event{}, fmt.Errorf("%w: %v", ErrSchemaValidation, err)
	}

	var senderAccount string
	if raw, ok := fields["userAccountId"]; ok {
		_ = json.Unmarshal(raw, &senderAccount)
		delete(fields, "userAccountId")
	}

	eventTimestamp := now.UnixMilli()
	if raw, ok := fields["timestamp"]; ok {
		var ts int64
		if err := json.Unmarshal(raw, &ts); err == nil && ts != 0 {
			eventTimestamp = ts
		}
		delete(fields, "timestamp")
	}

	var name string
	switch {
	case hasNonEmpty(fields, "updateTrigger"):
		_ = json.Unmarshal(fields["updateTrigger"], &name)
	case hasNonEmpty(fields, "space"):
		name = "space"
	case hasNonEmpty(fields, "page"), hasNonEmpty(fields, "content"):
		name = "page"
	case hasNonEmpty(fields, "comment"):
		name = "comment"
	default:
		name = "unknown"
	}

	properties, err := json.Marshal(fields)
	if err != nil {
		return model.Event{}, fmt.Errorf("marshal properties: %w", err)
	}

	hookID := headers.Get("X-Atlassian-Webhook-Identifier")
	instanceID := hookID
	if instanceID == "" {
		instanceID = strconv.FormatInt(eventTimestamp, 10)
	}

	return model.Event{
		PluginName:      model.SourceConfluence,
		ContentLength:   contentLength(headers, body),
		InstanceID:      instanceID,
		CustomerID:      client.CustomerID,
		FeedID:          client.FeedID,
		SenderAccount:   senderAccount,
		CreateTimestamp: now.UnixMilli(),
		EventTimestamp:  eventTimestamp,
		Name:            name,
		HookID:          hookID,
		Headers:         passThroughHeaders(headers),
		Properties:      properties,
	}, nil
}

func (a *confluenceAdapter) ToActivity(event *model.Event, objectID string) (Result, error) {
	if err := validatePayload(a.schema, event.Properties); err != nil {
		return Result{}, err
	}

	var props confluencePayload
	if err := json.Unmarshal(event.Properties, &props); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrSchemaValidation, err)
	}

	action := model.ActionCreated
	if props.UpdateTrigger != "" {
		action = model.ActionUpdated
	}

	artifact := model.ArtifactDoc
	if props.Space != nil {
		artifact = model.ArtifactDocOrg
	}

	activity := &model.Activity{
		ObjectID:         objectID,
		EventType:        model.SourceConfluence,
		Event:            event.Name,
		CreatedTimestamp: event.CreateTimestamp,
		CustomerID:       event.CustomerID,
		Artifact:         artifact,
		Action:           action,
		ActorAccountID:   event.SenderAccount,
		Initiative:       model.InitiativeUnset,
		Metadata:         confluenceMetadata(&props),
	}

	return Result{
		Activity: activity,
		Account:  &model.Account{ID: event.SenderAccount},
	}, nil
}

func (a *confluenceAdapter) IsNoise(event *model.Event) bool {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(event.Properties, &probe); err != nil {
		return false
	}
	return probe.Type == contentPropertyType
}

func hasNonEmpty(fields map[string]json.RawMessage, key string) bool {
	raw, ok := fields[key]
	return ok && len(raw) > 0 && string(raw) != "null"
}

func confluenceMetadata(props *confluencePayload) model.ActivityMetadata {
	var metadata model.ActivityMetadata

	if props.Space != nil {
		metadata.Space = &model.Space{
			ID:              props.Space.ID.String(),
			Author:          props.Space.CreatorAccountID,
			Key:             props.Space.Key,
			Title:           props.Space.Title,
			IsPersonalSpace: props.Space.IsPersonalSpace,
			URI:             props.Space.Self,
			Created:         props.Space.CreationDate,
			Updated:         props.Space.ModificationDate,
			UpdateAuthor:    props.Space.LastModifierAccountID,
		}
	}

	page := props.Page
	if page == nil {
		page = props.Content
	}
	if page != nil {
		metadata.Page = &model.Page{
			ID:           page.ID.String(),
			Author:       page.CreatorAccountID,
			Title:        page.Title,
			SpaceKey:     page.SpaceKey,
			Version:      page.Version,
			URI:          page.Self,
			Created:      page.CreationDate,
			Updated:      page.ModificationDate,
			UpdateAuthor: page.LastModifierAccountID,
		}
	}

	if props.Comment != nil {
		comment := &model.Comment{
			ID:           props.Comment.ID.String(),
			Author:       props.Comment.CreatorAccountID,
			URI:          props.Comment.Self,
			Created:      props.Comment.CreationDate,
			Updated:      props.Comment.ModificationDate,
			UpdateAuthor: props.Comment.LastModifierAccountID,
		}
		if props.Comment.Parent != nil {
			comment.Parent = &model.CommentParent{
				Type:  props.Comment.Parent.ContentType,
				ID:    props.Comment.Parent.ID.String(),
				Title: props.Comment.Parent.Title,
				URI:   props.Comment.Parent.Self,
			}
		}
		metadata.Comment = comment
	}

	if props.Labeled != nil {
		label := &model.Label{
			ID:           props.Labeled.ID.String(),
			ContentURI:   props.Labeled.Self,
			SpaceKey:     props.Labeled.SpaceKey,
			ContentType:  props.Labeled.ContentType,
			Created:      props.Labeled.CreationDate,
			Updated:      props.Labeled.ModificationDate,
			UpdateAuthor: props.Labeled.LastModifierAccountID,
		}
		if props.Label != nil {
			label.Name = props.Label.Name
			label.Author = props.Label.OwnerAccountID
			label.URI = props.Label.Self
		}
		metadata.Label = label
	}

	return metadata
}
