package service_test

import (
	"context"
	"errors"
	"net/http"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"pulseboard.app/ingest/internal/adapter"
	"pulseboard.app/ingest/internal/clientid"
	"pulseboard.app/ingest/internal/model"
	"pulseboard.app/ingest/internal/queue"
	"pulseboard.app/ingest/internal/service"
)

var _ = Describe("IngestService", func() {
	var (
		ctx        context.Context
		registry   *adapter.Registry
		filter     *fakeFilter
		identity   *fakeIdentity
		raw        *fakeRawStore
		activities *fakeActivityStore
		accounts   *fakeAccountStore
		tickets    *fakeTicketStore
		mirror     *fakeMirrorStore
		producer   *fakeProducer
	)

	client := clientid.ClientID{CustomerID: 42, FeedID: 1}

	githubHeaders := func() http.Header {
		headers := http.Header{}
		headers.Set("X-GitHub-Event", "pull_request")
		headers.Set("X-GitHub-Hook-ID", "7")
		headers.Set("X-GitHub-Delivery", "delivery-1")
		return headers
	}

	githubBody := []byte(`{
		"action": "opened",
		"sender": {"login": "octocat", "html_url": "https://github.com/octocat"},
		"repository": {"name": "api"},
		"pull_request": {"title": "Add request caching", "head": {"ref": "cache"}}
	}`)

	newIngest := func() service.IngestService {
		return service.NewIngestService(registry, filter, identity, raw, activities, accounts, tickets, mirror, producer, nil, nil)
	}

	BeforeEach(func() {
		ctx = context.Background()
		registry = adapter.NewRegistry()
		filter = &fakeFilter{}
		identity = &fakeIdentity{}
		raw = &fakeRawStore{}
		activities = &fakeActivityStore{}
		accounts = &fakeAccountStore{}
		tickets = &fakeTicketStore{}
		mirror = &fakeMirrorStore{}
		producer = &fakeProducer{}
	})

	It("runs the full pipeline for an accepted delivery", func() {
		var (
			mu            sync.Mutex
			savedEvent    *model.Event
			savedActivity *model.Activity
			upserted      *model.Account
			published     *queue.ActivityMessage
			mirrored      string
		)
		raw.saveFn = func(_ context.Context, event model.Event) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			savedEvent = &event
			return "raw-key-1", nil
		}
		activities.saveFn = func(_ context.Context, activity *model.Activity) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			savedActivity = activity
			return "activity-7", nil
		}
		accounts.upsertFn = func(_ context.Context, customerID int64, feedID int, account model.Account) error {
			mu.Lock()
			defer mu.Unlock()
			Expect(customerID).To(Equal(int64(42)))
			Expect(feedID).To(Equal(1))
			upserted = &account
			return nil
		}
		mirror.saveFn = func(_ context.Context, _ model.Event, storageID string) error {
			mirrored = storageID
			return nil
		}
		producer.publishFn = func(_ context.Context, msg queue.ActivityMessage) error {
			published = &msg
			return nil
		}

		result, err := newIngest().Ingest(ctx, model.SourceGitHub, client, githubHeaders(), githubBody)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Banned).To(BeFalse())
		Expect(result.StorageID).To(Equal("raw-key-1"))
		Expect(result.ActivityID).To(Equal("activity-7"))

		Expect(savedEvent).NotTo(BeNil())
		Expect(savedEvent.Name).To(Equal("pull_request"))
		Expect(savedEvent.Banned).To(BeFalse())
		Expect(mirrored).To(Equal("raw-key-1"))

		Expect(savedActivity).NotTo(BeNil())
		Expect(savedActivity.ObjectID).To(Equal("raw-key-1"))
		Expect(savedActivity.Artifact).To(Equal(model.ArtifactCode))
		Expect(savedActivity.Action).To(Equal(model.ActionCreated))
		Expect(savedActivity.ActorAccountID).To(Equal("octocat"))

		Expect(upserted).NotTo(BeNil())
		Expect(upserted.ID).To(Equal("octocat"))

		Expect(published).NotTo(BeNil())
		Expect(published.ActivityID).To(Equal("activity-7"))
		Expect(published.Source).To(Equal(model.SourceGitHub))
	})

	It("persists a banned delivery raw but derives nothing", func() {
		filter.checkFn = func(context.Context, adapter.Source, *model.Event) (bool, error) {
			return true, nil
		}
		var savedEvent *model.Event
		raw.saveFn = func(_ context.Context, event model.Event) (string, error) {
			savedEvent = &event
			return "raw-key-1", nil
		}
		activities.saveFn = func(context.Context, *model.Activity) (string, error) {
			Fail("banned delivery must not produce an activity")
			return "", nil
		}

		result, err := newIngest().Ingest(ctx, model.SourceGitHub, client, githubHeaders(), githubBody)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Banned).To(BeTrue())
		Expect(result.StorageID).To(Equal("raw-key-1"))
		Expect(savedEvent).NotTo(BeNil())
		Expect(savedEvent.Banned).To(BeTrue())
	})

	It("fails when the ban settings cannot be fetched", func() {
		fetchErr := errors.New("arangodb unavailable")
		filter.checkFn = func(context.Context, adapter.Source, *model.Event) (bool, error) {
			return false, fetchErr
		}
		rawSaved := false
		raw.saveFn = func(_ context.Context, event model.Event) (string, error) {
			rawSaved = true
			return "raw-key-1", nil
		}

		_, err := newIngest().Ingest(ctx, model.SourceGitHub, client, githubHeaders(), githubBody)
		Expect(err).To(MatchError(fetchErr))
		Expect(rawSaved).To(BeFalse())
	})

	It("fails when the raw copy cannot be written", func() {
		saveErr := errors.New("postgres unavailable")
		raw.saveFn = func(context.Context, model.Event) (string, error) {
			return "", saveErr
		}

		_, err := newIngest().Ingest(ctx, model.SourceGitHub, client, githubHeaders(), githubBody)
		Expect(err).To(MatchError(saveErr))
	})

	It("fails when a required source header is missing", func() {
		headers := githubHeaders()
		headers.Del("X-GitHub-Event")

		_, err := newIngest().Ingest(ctx, model.SourceGitHub, client, headers, githubBody)
		Expect(err).To(MatchError(adapter.ErrMissingHeader))
	})

	It("surfaces schema validation failures after persisting the raw copy", func() {
		rawSaved := false
		raw.saveFn = func(_ context.Context, event model.Event) (string, error) {
			rawSaved = true
			return "raw-key-1", nil
		}

		body := []byte(`{"action": "opened", "sender": {"login": 7}}`)
		_, err := newIngest().Ingest(ctx, model.SourceGitHub, client, githubHeaders(), body)
		Expect(err).To(MatchError(adapter.ErrSchemaValidation))
		Expect(rawSaved).To(BeTrue())
	})

	It("tolerates publish failures", func() {
		producer.publishFn = func(context.Context, queue.ActivityMessage) error {
			return errors.New("redis unavailable")
		}

		result, err := newIngest().Ingest(ctx, model.SourceGitHub, client, githubHeaders(), githubBody)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.ActivityID).NotTo(BeEmpty())
	})

	It("fails when the mirror write fails", func() {
		mirrorErr := errors.New("arangodb unavailable")
		mirror.saveFn = func(context.Context, model.Event, string) error {
			return mirrorErr
		}

		_, err := newIngest().Ingest(ctx, model.SourceGitHub, client, githubHeaders(), githubBody)
		Expect(err).To(MatchError(mirrorErr))
	})

	It("fails when the activity write fails", func() {
		writeErr := errors.New("arangodb unavailable")
		activities.saveFn = func(context.Context, *model.Activity) (string, error) {
			return "", writeErr
		}

		_, err := newIngest().Ingest(ctx, model.SourceGitHub, client, githubHeaders(), githubBody)
		Expect(err).To(MatchError(writeErr))
	})

	It("rejects a source with no adapter", func() {
		_, err := newIngest().Ingest(ctx, model.Source("bitbucket"), client, githubHeaders(), githubBody)
		Expect(err).To(MatchError(adapter.ErrUnknownSource))
	})
})
