package adapter_test

import (
	"encoding/json"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"pulseboard.app/ingest/internal/adapter"
	"pulseboard.app/ingest/internal/clientid"
	"pulseboard.app/ingest/internal/model"
)

var _ = Describe("GitHub adapter", func() {
	var (
		github adapter.Source
		client clientid.ClientID
		now    time.Time
	)

	BeforeEach(func() {
		github = adapter.NewGitHub()
		client = clientid.ClientID{CustomerID: 4807, FeedID: 1}
		now = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	})

	headers := func(event string) http.Header {
		h := http.Header{}
		h.Set("X-GitHub-Event", event)
		h.Set("X-GitHub-Hook-ID", "456123")
		h.Set("X-GitHub-Delivery", "8a61f360-07a7-11ef")
		return h
	}

	Describe("Normalize", func() {
		It("builds the canonical envelope from headers", func() {
			event, err := github.Normalize(headers("pull_request"), []byte(`{"action":"opened"}`), client, now)
			Expect(err).NotTo(HaveOccurred())

			Expect(event.PluginName).To(Equal(model.SourceGitHub))
			Expect(event.Name).To(Equal("pull_request"))
			Expect(event.InstanceID).To(Equal("8a61f360-07a7-11ef"))
			Expect(event.HookID).To(Equal("456123"))
			Expect(event.CustomerID).To(Equal(int64(4807)))
			Expect(event.FeedID).To(Equal(1))
			Expect(event.EventTimestamp).To(Equal(now.UnixMilli()))
		})

		It("fails on a missing event header", func() {
			h := headers("pull_request")
			h.Del("X-GitHub-Event")
			_, err := github.Normalize(h, []byte(`{}`), client, now)
			Expect(err).To(MatchError(adapter.ErrMissingHeader))
		})

		It("falls back to the timestamp when the delivery header is absent", func() {
			h := headers("push")
			h.Del("X-GitHub-Delivery")
			event, err := github.Normalize(h, []byte(`{}`), client, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(event.InstanceID).To(Equal("1714555800000"))
		})

		It("prefers the hook creation time when present", func() {
			body := []byte(`{"hook":{"created_at":"2024-04-30T10:00:00Z"}}`)
			event, err := github.Normalize(headers("ping"), body, client, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(event.EventTimestamp).To(Equal(time.Date(2024, 4, 30, 10, 0, 0, 0, time.UTC).UnixMilli()))
		})
	})

	Describe("ToActivity", func() {
		It("derives a code/created activity from an opened pull request", func() {
			body := []byte(`{
				"action": "opened",
				"sender": {"login": "octocat", "html_url": "https://github.com/octocat"},
				"repository": {"name": "ingest"},
				"pull_request": {
					"title": "Add retry",
					"created_at": "2024-05-01T09:00:00Z",
					"additions": 10,
					"deletions": 2,
					"changed_files": 3,
					"html_url": "https://github.com/org/ingest/pull/7",
					"head": {"ref": "feature/retry"}
				}
			}`)
			event, err := github.Normalize(headers("pull_request"), body, client, now)
			Expect(err).NotTo(HaveOccurred())

			result, err := github.ToActivity(&event, "v1/c/4807/f/1/h/2024-05-01T09Z/e/pull_request/i/8a61f360-07a7-11ef")
			Expect(err).NotTo(HaveOccurred())

			activity := result.Activity
			Expect(activity.Artifact).To(Equal(model.ArtifactCode))
			Expect(activity.Action).To(Equal(model.ActionCreated))
			Expect(activity.ActorAccountID).To(Equal("octocat"))
			Expect(activity.Initiative).To(Equal(model.InitiativeUnset))
			Expect(activity.Metadata.Repository).To(Equal("ingest"))
			Expect(activity.Metadata.PullRequest).NotTo(BeNil())
			Expect(activity.Metadata.PullRequest.Title).To(Equal("Add retry"))
			Expect(activity.Metadata.PullRequest.Ref).To(Equal("feature/retry"))
			Expect(activity.Metadata.PullRequest.URI).To(Equal("https://github.com/org/ingest/pull/7"))

			Expect(result.Account).NotTo(BeNil())
			Expect(result.Account.ID).To(Equal("octocat"))
			Expect(result.Ticket).To(BeNil())
		})

		It("classifies org-level events as codeOrg", func() {
			body := []byte(`{"action":"created","sender":{"login":"octocat"}}`)
			event, err := github.Normalize(headers("repository"), body, client, now)
			Expect(err).NotTo(HaveOccurred())

			result, err := github.ToActivity(&event, "obj-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Activity.Artifact).To(Equal(model.ArtifactCodeOrg))
			Expect(result.Activity.Action).To(Equal(model.ActionCreated))
		})

		It("falls back to the payload action when the event name has no rule", func() {
			body := []byte(`{"action":"edited","sender":{"login":"octocat"}}`)
			event, err := github.Normalize(headers("gollum"), body, client, now)
			Expect(err).NotTo(HaveOccurred())

			result, err := github.ToActivity(&event, "obj-2")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Activity.Action).To(Equal(model.ActionUpdated))
			Expect(result.Activity.Metadata.CodeAction).To(Equal("edited"))
		})

		It("rejects a payload that fails schema validation", func() {
			body := []byte(`{"sender":{"html_url":"https://github.com/x"}}`)
			event, err := github.Normalize(headers("push"), body, client, now)
			Expect(err).NotTo(HaveOccurred())

			_, err = github.ToActivity(&event, "obj-3")
			Expect(err).To(MatchError(adapter.ErrSchemaValidation))
		})

		It("maps commits and releases", func() {
			body := []byte(`{
				"commits": [{"message": "fix", "url": "https://c/1"}, {"message": "feat", "url": "https://c/2"}],
				"release": {"body": "notes"},
				"sender": {"login": "octocat"}
			}`)
			event, err := github.Normalize(headers("push"), body, client, now)
			Expect(err).NotTo(HaveOccurred())

			result, err := github.ToActivity(&event, "obj-4")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Activity.Metadata.Commits).To(HaveLen(2))
			Expect(result.Activity.Metadata.Commits[0].Message).To(Equal("fix"))
			Expect(result.Activity.Metadata.Release.Body).To(Equal("notes"))
		})
	})

	Describe("IsNoise", func() {
		event := func(name, body string) *model.Event {
			return &model.Event{Name: name, Properties: json.RawMessage(body)}
		}

		It("flags pushes with zero commits", func() {
			Expect(github.IsNoise(event("push", `{"commits":[]}`))).To(BeTrue())
		})

		It("keeps pushes carrying commits", func() {
			Expect(github.IsNoise(event("push", `{"commits":[{"message":"fix"}]}`))).To(BeFalse())
		})

		It("flags bare tag and branch creations", func() {
			Expect(github.IsNoise(event("create", `{"ref_type":"tag"}`))).To(BeTrue())
			Expect(github.IsNoise(event("create", `{"ref_type":"branch"}`))).To(BeTrue())
		})

		It("keeps everything else", func() {
			Expect(github.IsNoise(event("pull_request", `{"action":"opened"}`))).To(BeFalse())
		})
	})
})
