package adapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"pulseboard.app/ingest/internal/clientid"
	"pulseboard.app/ingest/internal/model"
)

// jiraActionSuffixes are checked in order against the end of the event name,
// e.g. jira:issue_updated, sprint_started, version_released.
var jiraActionSuffixes = []model.Action{
	model.ActionCreated,
	model.ActionUpdated,
	model.ActionDeleted,
	model.ActionStarted,
	model.ActionClosed,
	model.ActionReleased,
	model.ActionArchived,
}

type jiraAdapter struct {
	schema *jsonschema.Schema
}

func NewJira() Source {
	return &jiraAdapter{schema: mustCompileSchema("jira.json")}
}

type jiraAccount struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
	Self         string `json:"self"`
	TimeZone     string `json:"timeZone"`
}

type jiraProject struct {
	ID   json.Number `json:"id"`
	Key  string      `json:"key"`
	Name string      `json:"name"`
	Self string      `json:"self"`
}

type jiraIssue struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Self   string `json:"self"`
	Fields struct {
		Summary     string `json:"summary"`
		Description string `json:"description"`
		Created     string `json:"created"`
		IssueType   struct {
			Name string `json:"name"`
		} `json:"issuetype"`
		Priority *struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"priority"`
		Project *jiraProject `json:"project"`
		Status  *struct {
			ID             string `json:"id"`
			Name           string `json:"name"`
			Self           string `json:"self"`
			StatusCategory *struct {
				ID   json.Number `json:"id"`
				Key  string      `json:"key"`
				Name string      `json:"name"`
				Self string      `json:"self"`
			} `json:"statusCategory"`
		} `json:"status"`
		Creator  *jiraAccount `json:"creator"`
		Reporter *jiraAccount `json:"reporter"`
		Assignee *jiraAccount `json:"assignee"`
	} `json:"fields"`
}

type jiraPayload struct {
	User      *jiraAccount `json:"user"`
	Issue     *jiraIssue   `json:"issue"`
	Changelog *struct {
		Items []struct {
			FieldID    string `json:"fieldId"`
			Field      string `json:"field"`
			From       string `json:"from"`
			FromString string `json:"fromString"`
			To         string `json:"to"`
			ToString   string `json:"toString"`
		} `json:"items"`
	} `json:"changelog"`
	Comment *struct {
		ID           string       `json:"id"`
		Author       jiraAccount  `json:"author"`
		Body         string       `json:"body"`
		Self         string       `json:"self"`
		Created      string       `json:"created"`
		Updated      string       `json:"updated"`
		UpdateAuthor *jiraAccount `json:"updateAuthor"`
	} `json:"comment"`
	Attachment *struct {
		ID       string      `json:"id"`
		Author   jiraAccount `json:"author"`
		Filename string      `json:"filename"`
		MimeType string      `json:"mimeType"`
		Self     string      `json:"self"`
		Created  string      `json:"created"`
	} `json:"attachment"`
	Sprint *struct {
		ID           json.Number `json:"id"`
		Name         string      `json:"name"`
		State        string      `json:"state"`
		Self         string      `json:"self"`
		CreatedDate  string      `json:"createdDate"`
		StartDate    string      `json:"startDate"`
		EndDate      string      `json:"endDate"`
		CompleteDate string      `json:"completeDate"`
	} `json:"sprint"`
	Worklog *struct {
		ID               string       `json:"id"`
		Author           jiraAccount  `json:"author"`
		Self             string       `json:"self"`
		Created          string       `json:"created"`
		Updated          string       `json:"updated"`
		UpdateAuthor     *jiraAccount `json:"updateAuthor"`
		Started          string       `json:"started"`
		TimeSpentSeconds int64        `json:"timeSpentSeconds"`
	} `json:"worklog"`
	Project *jiraProject `json:"project"`
}

// Normalize lifts webhookEvent, id and timestamp out of the body; the rest
// of the payload rides along untouched as properties.
func (a *jiraAdapter) Normalize(headers http.Header, body []byte, client clientid.ClientID, now time.Time) (model.Event, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return model.Event{}, fmt.Errorf("%w: %v", ErrSchemaValidation, err)
	}

	var name string
	if raw, ok := fields["webhookEvent"]; ok {
		_ = json.Unmarshal(raw, &name)
		delete(fields, "webhookEvent")
	}
	if name == "" {
		return model.Event{}, fmt.Errorf("%w: webhookEvent", ErrSchemaValidation)
	}

	var id json.Number
	if raw, ok := fields["id"]; ok {
		_ = json.Unmarshal(raw, &id)
		delete(fields, "id")
	}

	eventTimestamp := now.UnixMilli()
	if raw, ok := fields["timestamp"]; ok {
		var ts int64
		if err := json.Unmarshal(raw, &ts); err == nil && ts != 0 {
			eventTimestamp = ts
		}
		delete(fields, "timestamp")
	}

	properties, err := json.Marshal(fields)
	if err != nil {
		return model.Event{}, fmt.Errorf("marshal properties: %w", err)
	}

	hookID := headers.Get("X-Atlassian-Webhook-Identifier")
	instanceID := hookID
	if instanceID == "" {
		instanceID = id.String()
	}
	if instanceID == "" {
		instanceID = strconv.FormatInt(eventTimestamp, 10)
	}

	return model.Event{
		PluginName:      model.SourceJira,
		ContentLength:   contentLength(headers, body),
		InstanceID:      instanceID,
		CustomerID:      client.CustomerID,
		FeedID:          client.FeedID,
		CreateTimestamp: now.UnixMilli(),
		EventTimestamp:  eventTimestamp,
		Name:            name,
		HookID:          hookID,
		Headers:         passThroughHeaders(headers),
		Properties:      properties,
	}, nil
}

func (a *jiraAdapter) ToActivity(event *model.Event, objectID string) (Result, error) {
	if err := validatePayload(a.schema, event.Properties); err != nil {
		return Result{}, err
	}

	var props jiraPayload
	if err := json.Unmarshal(event.Properties, &props); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrSchemaValidation, err)
	}

	account := jiraActor(&props)

	activity := &model.Activity{
		ObjectID:         objectID,
		EventType:        model.SourceJira,
		Event:            event.Name,
		CreatedTimestamp: event.CreateTimestamp,
		CustomerID:       event.CustomerID,
		Artifact:         jiraArtifact(event.Name),
		Action:           jiraAction(event.Name),
		Priority:         jiraPriority(&props),
		Initiative:       model.InitiativeUnset,
		Metadata:         jiraMetadata(&props),
	}
	if account != nil {
		activity.ActorAccountID = account.ID
	}

	result := Result{Activity: activity, Account: account}
	if props.Issue != nil {
		result.Ticket = jiraTicket(props.Issue, activity.Priority)
	}
	return result, nil
}

func (a *jiraAdapter) IsNoise(*model.Event) bool {
	return false
}

func jiraArtifact(eventName string) model.Artifact {
	for _, prefix := range []string{"board", "project", "sprint", "user"} {
		if strings.HasPrefix(eventName, prefix) {
			return model.ArtifactTaskOrg
		}
	}
	return model.ArtifactTask
}

func jiraAction(eventName string) model.Action {
	if strings.HasPrefix(eventName, "comment") || strings.HasPrefix(eventName, "attachment") {
		return model.ActionUpdated
	}
	for _, action := range jiraActionSuffixes {
		if strings.HasSuffix(eventName, string(action)) {
			return action
		}
	}
	return model.ActionUnknown
}

// jiraActor prefers the author closest to the change over the generic
// top-level user.
func jiraActor(props *jiraPayload) *model.Account {
	var account *jiraAccount
	switch {
	case props.Comment != nil:
		account = &props.Comment.Author
	case props.Attachment != nil:
		account = &props.Attachment.Author
	case props.User != nil:
		account = props.User
	default:
		return nil
	}

	name := account.DisplayName
	if name == "" {
		name = account.EmailAddress
	}
	return &model.Account{
		ID:          account.AccountID,
		AccountName: name,
		AccountURI:  account.Self,
		TimeZone:    account.TimeZone,
	}
}

func jiraPriority(props *jiraPayload) *int {
	if props.Issue == nil || props.Issue.Fields.Priority == nil {
		return nil
	}
	priority, err := strconv.Atoi(props.Issue.Fields.Priority.ID)
	if err != nil {
		return nil
	}
	return &priority
}

func jiraMetadata(props *jiraPayload) model.ActivityMetadata {
	var metadata model.ActivityMetadata

	if props.Changelog != nil {
		for _, item := range props.Changelog.Items {
			metadata.ChangeLog = append(metadata.ChangeLog, model.ChangeLogEntry{
				FieldID:  item.FieldID,
				Field:    item.Field,
				OldID:    item.From,
				OldValue: item.FromString,
				NewID:    item.To,
				NewValue: item.ToString,
			})
		}
	}
	if props.Issue != nil {
		metadata.Issue = jiraIssueMetadata(props.Issue)
	}
	if props.Comment != nil {
		metadata.Comment = &model.Comment{
			ID:      props.Comment.ID,
			Author:  props.Comment.Author.AccountID,
			Body:    props.Comment.Body,
			URI:     props.Comment.Self,
			Created: parseTimestamp(props.Comment.Created),
			Updated: parseTimestamp(props.Comment.Updated),
		}
		if props.Comment.UpdateAuthor != nil {
			metadata.Comment.UpdateAuthor = props.Comment.UpdateAuthor.AccountID
		}
	}
	if props.Attachment != nil {
		metadata.Attachment = &model.Attachment{
			ID:       props.Attachment.ID,
			Author:   props.Attachment.Author.AccountID,
			Filename: props.Attachment.Filename,
			MimeType: props.Attachment.MimeType,
			URI:      props.Attachment.Self,
			Created:  parseTimestamp(props.Attachment.Created),
		}
	}
	if props.Sprint != nil {
		metadata.Sprint = &model.Sprint{
			ID:           props.Sprint.ID.String(),
			Name:         props.Sprint.Name,
			State:        props.Sprint.State,
			URI:          props.Sprint.Self,
			Created:      parseTimestamp(props.Sprint.CreatedDate),
			StartDate:    parseTimestamp(props.Sprint.StartDate),
			EndDate:      parseTimestamp(props.Sprint.EndDate),
			CompleteDate: parseTimestamp(props.Sprint.CompleteDate),
		}
	}
	if props.Worklog != nil {
		metadata.Worklog = &model.Worklog{
			ID:               props.Worklog.ID,
			Author:           props.Worklog.Author.AccountID,
			URI:              props.Worklog.Self,
			Created:          parseTimestamp(props.Worklog.Created),
			Updated:          parseTimestamp(props.Worklog.Updated),
			Started:          parseTimestamp(props.Worklog.Started),
			TimeSpentSeconds: props.Worklog.TimeSpentSeconds,
		}
		if props.Worklog.UpdateAuthor != nil {
			metadata.Worklog.UpdateAuthor = props.Worklog.UpdateAuthor.AccountID
		}
	}
	if props.Project != nil {
		metadata.Project = jiraProjectMetadata(props.Project)
	}
	return metadata
}

func jiraProjectMetadata(project *jiraProject) *model.Project {
	return &model.Project{
		ID:   project.ID.String(),
		Key:  project.Key,
		Name: project.Name,
		URI:  project.Self,
	}
}

func jiraIssueMetadata(issue *jiraIssue) *model.Issue {
	out := &model.Issue{
		ID:          issue.ID,
		Key:         issue.Key,
		Type:        issue.Fields.IssueType.Name,
		Summary:     issue.Fields.Summary,
		Description: issue.Fields.Description,
		URI:         issue.Self,
		Created:     parseTimestamp(issue.Fields.Created),
	}
	if issue.Fields.Creator != nil {
		out.CreatedBy = issue.Fields.Creator.AccountID
	}
	if issue.Fields.Reporter != nil {
		out.ReportedBy = issue.Fields.Reporter.AccountID
	}
	if issue.Fields.Assignee != nil {
		out.AssignedTo = issue.Fields.Assignee.AccountID
	}
	if issue.Fields.Project != nil {
		out.Project = jiraProjectMetadata(issue.Fields.Project)
	}
	if issue.Fields.Status != nil {
		status := &model.Status{
			ID:   issue.Fields.Status.ID,
			Name: issue.Fields.Status.Name,
			URI:  issue.Fields.Status.Self,
		}
		if category := issue.Fields.Status.StatusCategory; category != nil {
			status.Category = &model.StatusCategory{
				ID:   category.ID.String(),
				Key:  category.Key,
				Name: category.Name,
				URI:  category.Self,
			}
		}
		out.Status = status
	}
	return out
}

func jiraTicket(issue *jiraIssue, priority *int) *model.Ticket {
	ticket := &model.Ticket{
		ID:       issue.ID,
		Key:      issue.Key,
		Summary:  issue.Fields.Summary,
		URI:      issue.Self,
		Priority: priority,
	}
	if issue.Fields.Project != nil {
		ticket.Project = jiraProjectMetadata(issue.Fields.Project)
	}
	return ticket
}
