package model

// Artifact is the kind of thing an activity concerns.
type Artifact string

const (
	ArtifactTask    Artifact = "task"
	ArtifactTaskOrg Artifact = "taskOrg"
	ArtifactCode    Artifact = "code"
	ArtifactCodeOrg Artifact = "codeOrg"
	ArtifactDoc     Artifact = "doc"
	ArtifactDocOrg  Artifact = "docOrg"
)

// Action is the normalized verb of an activity.
type Action string

const (
	ActionCreated  Action = "created"
	ActionUpdated  Action = "updated"
	ActionDeleted  Action = "deleted"
	ActionStarted  Action = "started"
	ActionClosed   Action = "closed"
	ActionReleased Action = "released"
	ActionArchived Action = "archived"
	ActionUnknown  Action = "unknown"
)

// InitiativeUnset is the stored value for an activity with no initiative.
// The document store indexes the field, so it must never be null.
const InitiativeUnset = ""

// Activity is the normalized fact derived from one event. ObjectID is the
// raw event's storage id; re-deriving the activity during replay overwrites
// the document with the same ObjectID instead of appending.
type Activity struct {
	ObjectID         string           `json:"objectId"`
	EventType        Source           `json:"eventType"`
	Event            string           `json:"event"`
	CreatedTimestamp int64            `json:"createdTimestamp"`
	CustomerID       int64            `json:"customerId"`
	Artifact         Artifact         `json:"artifact"`
	Action           Action           `json:"action"`
	ActorAccountID   string           `json:"actorAccountId,omitempty"`
	Priority         *int             `json:"priority,omitempty"`
	Initiative       string           `json:"initiative"`
	Metadata         ActivityMetadata `json:"metadata"`
}

// ActivityMetadata is the closed set of optional nested structures. Only
// the slots relevant to the source and event are populated; an absent slot
// is omitted from the stored document, never null.
type ActivityMetadata struct {
	// issue trackers (Jira)
	ChangeLog  []ChangeLogEntry `json:"changeLog,omitempty"`
	Project    *Project         `json:"project,omitempty"`
	Issue      *Issue           `json:"issue,omitempty"`
	Comment    *Comment         `json:"comment,omitempty"`
	Attachment *Attachment      `json:"attachment,omitempty"`
	Sprint     *Sprint          `json:"sprint,omitempty"`
	Worklog    *Worklog         `json:"worklog,omitempty"`

	// documentation (Confluence)
	Space *Space `json:"space,omitempty"`
	Page  *Page  `json:"page,omitempty"`
	Label *Label `json:"label,omitempty"`

	// source control (GitHub, GitLab)
	CodeAction         string              `json:"codeAction,omitempty"`
	Repository         string              `json:"repository,omitempty"`
	PullRequest        *PullRequest        `json:"pullRequest,omitempty"`
	PullRequestComment *PullRequestComment `json:"pullRequestComment,omitempty"`
	Commits            []Commit            `json:"commits,omitempty"`
	Release            *Release            `json:"release,omitempty"`
}

type ChangeLogEntry struct {
	FieldID  string `json:"fieldId,omitempty"`
	Field    string `json:"field,omitempty"`
	OldID    string `json:"oldId,omitempty"`
	OldValue string `json:"oldValue,omitempty"`
	NewID    string `json:"newId,omitempty"`
	NewValue string `json:"newValue,omitempty"`
}

type Project struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
	URI  string `json:"uri,omitempty"`
}

type StatusCategory struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
	URI  string `json:"uri,omitempty"`
}

type Status struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	URI      string          `json:"uri,omitempty"`
	Category *StatusCategory `json:"category,omitempty"`
}

type Issue struct {
	ID          string   `json:"id"`
	Key         string   `json:"key"`
	Type        string   `json:"type"`
	Summary     string   `json:"summary"`
	Description string   `json:"description,omitempty"`
	URI         string   `json:"uri,omitempty"`
	Created     int64    `json:"created,omitempty"`
	CreatedBy   string   `json:"createdBy,omitempty"`
	ReportedBy  string   `json:"reportedBy,omitempty"`
	AssignedTo  string   `json:"assignedTo,omitempty"`
	Project     *Project `json:"project,omitempty"`
	Status      *Status  `json:"status,omitempty"`
}

type CommentParent struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	URI   string `json:"uri,omitempty"`
}

type Comment struct {
	ID           string         `json:"id"`
	Author       string         `json:"author"`
	Body         string         `json:"body,omitempty"`
	URI          string         `json:"uri,omitempty"`
	Created      int64          `json:"created,omitempty"`
	Updated      int64          `json:"updated,omitempty"`
	UpdateAuthor string         `json:"updateAuthor,omitempty"`
	Parent       *CommentParent `json:"parent,omitempty"`
}

type Attachment struct {
	ID       string `json:"id"`
	Author   string `json:"author"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType,omitempty"`
	URI      string `json:"uri,omitempty"`
	Created  int64  `json:"created,omitempty"`
}

type Sprint struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	State        string `json:"state"`
	URI          string `json:"uri,omitempty"`
	Created      int64  `json:"created,omitempty"`
	StartDate    int64  `json:"startDate,omitempty"`
	EndDate      int64  `json:"endDate,omitempty"`
	CompleteDate int64  `json:"completeDate,omitempty"`
}

type Worklog struct {
	ID               string `json:"id"`
	Author           string `json:"author"`
	URI              string `json:"uri,omitempty"`
	Created          int64  `json:"created,omitempty"`
	Updated          int64  `json:"updated,omitempty"`
	UpdateAuthor     string `json:"updateAuthor,omitempty"`
	Started          int64  `json:"started,omitempty"`
	TimeSpentSeconds int64  `json:"timeSpentSeconds,omitempty"`
}

type Space struct {
	ID              string `json:"id"`
	Author          string `json:"author"`
	Key             string `json:"key"`
	Title           string `json:"title"`
	IsPersonalSpace bool   `json:"isPersonalSpace"`
	URI             string `json:"uri,omitempty"`
	Created         int64  `json:"created,omitempty"`
	Updated         int64  `json:"updated,omitempty"`
	UpdateAuthor    string `json:"updateAuthor,omitempty"`
}

type Page struct {
	ID           string `json:"id"`
	Author       string `json:"author"`
	Title        string `json:"title"`
	SpaceKey     string `json:"spaceKey,omitempty"`
	Version      int    `json:"version,omitempty"`
	URI          string `json:"uri,omitempty"`
	Created      int64  `json:"created,omitempty"`
	Updated      int64  `json:"updated,omitempty"`
	UpdateAuthor string `json:"updateAuthor,omitempty"`
}

type Label struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	Author       string `json:"author,omitempty"`
	SpaceKey     string `json:"spaceKey,omitempty"`
	URI          string `json:"uri,omitempty"`
	ContentURI   string `json:"contentUri,omitempty"`
	ContentType  string `json:"contentType,omitempty"`
	Created      int64  `json:"created,omitempty"`
	Updated      int64  `json:"updated,omitempty"`
	UpdateAuthor string `json:"updateAuthor,omitempty"`
}

type PullRequest struct {
	Title        string `json:"title"`
	Assignee     string `json:"assignee,omitempty"`
	Created      int64  `json:"created,omitempty"`
	Additions    int    `json:"additions,omitempty"`
	Deletions    int    `json:"deletions,omitempty"`
	ChangedFiles int    `json:"changedFiles,omitempty"`
	Commits      int    `json:"commits,omitempty"`
	Comments     int    `json:"comments,omitempty"`
	Ref          string `json:"ref,omitempty"`
	URI          string `json:"uri,omitempty"`
}

type PullRequestComment struct {
	Body   string `json:"body"`
	Author string `json:"author"`
	URI    string `json:"uri,omitempty"`
}

type Commit struct {
	Message string `json:"message"`
	URI     string `json:"uri,omitempty"`
}

type Release struct {
	Body string `json:"body"`
}
