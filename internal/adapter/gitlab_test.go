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

var _ = Describe("GitLab adapter", func() {
	var (
		gitlab adapter.Source
		client clientid.ClientID
		now    time.Time
	)

	BeforeEach(func() {
		gitlab = adapter.NewGitLab()
		client = clientid.ClientID{CustomerID: 4807, FeedID: 4}
		now = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	})

	headers := func() http.Header {
		h := http.Header{}
		h.Set("X-Gitlab-Event", "Push Hook")
		h.Set("X-Gitlab-Event-UUID", "gl-uuid-1")
		return h
	}

	Describe("Normalize", func() {
		It("names the event after object_kind", func() {
			body := []byte(`{"object_kind":"push","user_username":"alice"}`)
			event, err := gitlab.Normalize(headers(), body, client, now)
			Expect(err).NotTo(HaveOccurred())

			Expect(event.PluginName).To(Equal(model.SourceGitLab))
			Expect(event.Name).To(Equal("push"))
			Expect(event.InstanceID).To(Equal("gl-uuid-1"))
			Expect(event.SenderAccount).To(Equal("alice"))
		})

		It("fails without object_kind", func() {
			_, err := gitlab.Normalize(headers(), []byte(`{}`), client, now)
			Expect(err).To(MatchError(adapter.ErrSchemaValidation))
		})
	})

	Describe("ToActivity", func() {
		It("maps pushes onto commits metadata", func() {
			body := []byte(`{
				"object_kind": "push",
				"user_username": "alice",
				"user_name": "Alice",
				"project": {"name": "ingest"},
				"commits": [{"message": "fix parser", "url": "https://gl/c/1"}]
			}`)
			event, err := gitlab.Normalize(headers(), body, client, now)
			Expect(err).NotTo(HaveOccurred())

			result, err := gitlab.ToActivity(&event, "obj-gl-1")
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Activity.Artifact).To(Equal(model.ArtifactCode))
			Expect(result.Activity.Action).To(Equal(model.ActionCreated))
			Expect(result.Activity.Metadata.Repository).To(Equal("ingest"))
			Expect(result.Activity.Metadata.Commits).To(HaveLen(1))
			Expect(result.Account.ID).To(Equal("alice"))
		})

		It("maps merge requests onto the pull request slot", func() {
			body := []byte(`{
				"object_kind": "merge_request",
				"user": {"username": "alice", "name": "Alice"},
				"project": {"name": "ingest"},
				"object_attributes": {
					"action": "open",
					"title": "Add retry",
					"url": "https://gl/mr/7",
					"source_branch": "feature/retry"
				}
			}`)
			event, err := gitlab.Normalize(headers(), body, client, now)
			Expect(err).NotTo(HaveOccurred())

			result, err := gitlab.ToActivity(&event, "obj-gl-2")
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Activity.Action).To(Equal(model.ActionCreated))
			Expect(result.Activity.Metadata.PullRequest).NotTo(BeNil())
			Expect(result.Activity.Metadata.PullRequest.Title).To(Equal("Add retry"))
			Expect(result.Activity.Metadata.PullRequest.Ref).To(Equal("feature/retry"))
			Expect(result.Account.ID).To(Equal("alice"))
		})

		It("classifies merged merge requests as closed", func() {
			body := []byte(`{
				"object_kind": "merge_request",
				"user": {"username": "alice"},
				"object_attributes": {"action": "merge", "title": "Add retry"}
			}`)
			event, err := gitlab.Normalize(headers(), body, client, now)
			Expect(err).NotTo(HaveOccurred())

			result, err := gitlab.ToActivity(&event, "obj-gl-3")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Activity.Action).To(Equal(model.ActionClosed))
		})

		It("maps notes onto the pull request comment slot", func() {
			body := []byte(`{
				"object_kind": "note",
				"user": {"username": "bob", "name": "Bob"},
				"project": {"name": "ingest"},
				"object_attributes": {"note": "looks good", "url": "https://gl/note/9"},
				"merge_request": {"title": "Add retry", "source_branch": "feature/retry"}
			}`)
			event, err := gitlab.Normalize(headers(), body, client, now)
			Expect(err).NotTo(HaveOccurred())

			result, err := gitlab.ToActivity(&event, "obj-gl-4")
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Activity.Action).To(Equal(model.ActionUpdated))
			Expect(result.Activity.Metadata.PullRequestComment.Body).To(Equal("looks good"))
			Expect(result.Activity.Metadata.PullRequestComment.Author).To(Equal("bob"))
			Expect(result.Activity.Metadata.PullRequest.Title).To(Equal("Add retry"))
		})
	})

	Describe("IsNoise", func() {
		event := func(name, body string) *model.Event {
			return &model.Event{Name: name, Properties: json.RawMessage(body)}
		}

		It("flags commit-less pushes and tag pushes", func() {
			Expect(gitlab.IsNoise(event("push", `{"commits":[]}`))).To(BeTrue())
			Expect(gitlab.IsNoise(event("tag_push", `{"commits":[]}`))).To(BeTrue())
		})

		It("keeps pushes carrying commits", func() {
			Expect(gitlab.IsNoise(event("push", `{"commits":[{"message":"fix"}]}`))).To(BeFalse())
		})
	})
})
