package example

type Source string

const (
	SourceGitHub Source = "github"
	SourceGitLab Source = "gitlab"
)

type Artifact string

const (
	ArtifactCode Artifact = "code"
)

type Action string

const (
	ActionCreated Action = "created"
)

type Event struct {
	PluginName Source
}

type Activity struct {
	Artifact Artifact
	Action   Action
}

func bad() {
	e := &Event{}
	e.PluginName = "bitbucket" // want "enum field PluginName assigned string literal"

	a := &Activity{}
	a.Action = "opened" // want "enum field Action assigned string literal"
}

func good() {
	e := &Event{}
	e.PluginName = SourceGitHub // OK: using constant

	a := &Activity{}
	a.Artifact = ArtifactCode // OK: using constant
	a.Action = ActionCreated
}

func alsoGood() {
	// OK: Variable, not literal
	source := SourceGitLab
	e := &Event{PluginName: source}
	_ = e
}
