package service_test

import (
	"context"
	"net/http"
	"time"

	"pulseboard.app/ingest/internal/adapter"
	"pulseboard.app/ingest/internal/clientid"
	"pulseboard.app/ingest/internal/model"
	"pulseboard.app/ingest/internal/queue"
	"pulseboard.app/ingest/internal/rawstore"
	"pulseboard.app/ingest/internal/service"
)

type fakeFeedStore struct {
	bannedEventsFn   func(ctx context.Context, customerID int64, feedID int) (map[string]bool, error)
	bannedAccountsFn func(ctx context.Context, customerID int64, feedID int) (map[string]bool, error)
	registerFn       func(ctx context.Context, customerID int64, feedID int, eventName string) error
}

func (f *fakeFeedStore) GetBannedEvents(ctx context.Context, customerID int64, feedID int) (map[string]bool, error) {
	if f.bannedEventsFn == nil {
		return map[string]bool{}, nil
	}
	return f.bannedEventsFn(ctx, customerID, feedID)
}

func (f *fakeFeedStore) GetBannedAccounts(ctx context.Context, customerID int64, feedID int) (map[string]bool, error) {
	if f.bannedAccountsFn == nil {
		return map[string]bool{}, nil
	}
	return f.bannedAccountsFn(ctx, customerID, feedID)
}

func (f *fakeFeedStore) RegisterEventType(ctx context.Context, customerID int64, feedID int, eventName string) error {
	if f.registerFn == nil {
		return nil
	}
	return f.registerFn(ctx, customerID, feedID, eventName)
}

type fakeSource struct {
	normalizeFn  func(headers http.Header, body []byte, client clientid.ClientID, now time.Time) (model.Event, error)
	toActivityFn func(event *model.Event, objectID string) (adapter.Result, error)
	isNoiseFn    func(event *model.Event) bool
}

func (f *fakeSource) Normalize(headers http.Header, body []byte, client clientid.ClientID, now time.Time) (model.Event, error) {
	if f.normalizeFn == nil {
		return model.Event{}, nil
	}
	return f.normalizeFn(headers, body, client, now)
}

func (f *fakeSource) ToActivity(event *model.Event, objectID string) (adapter.Result, error) {
	if f.toActivityFn == nil {
		return adapter.Result{}, nil
	}
	return f.toActivityFn(event, objectID)
}

func (f *fakeSource) IsNoise(event *model.Event) bool {
	if f.isNoiseFn == nil {
		return false
	}
	return f.isNoiseFn(event)
}

type fakeFilter struct {
	checkFn        func(ctx context.Context, src adapter.Source, event *model.Event) (bool, error)
	bannedEventsFn func(ctx context.Context, customerID int64, feedID int, uncached bool) (map[string]bool, error)
}

func (f *fakeFilter) Check(ctx context.Context, src adapter.Source, event *model.Event) (bool, error) {
	if f.checkFn == nil {
		return false, nil
	}
	return f.checkFn(ctx, src, event)
}

func (f *fakeFilter) BannedEvents(ctx context.Context, customerID int64, feedID int, uncached bool) (map[string]bool, error) {
	if f.bannedEventsFn == nil {
		return map[string]bool{}, nil
	}
	return f.bannedEventsFn(ctx, customerID, feedID, uncached)
}

type fakeIdentity struct {
	warmFn    func(ctx context.Context, customerID int64) error
	resolveFn func(ctx context.Context, customerID int64, feedID int, account model.Account) (string, bool, error)
}

func (f *fakeIdentity) Warm(ctx context.Context, customerID int64) error {
	if f.warmFn == nil {
		return nil
	}
	return f.warmFn(ctx, customerID)
}

func (f *fakeIdentity) Resolve(ctx context.Context, customerID int64, feedID int, account model.Account) (string, bool, error) {
	if f.resolveFn == nil {
		return "", false, nil
	}
	return f.resolveFn(ctx, customerID, feedID, account)
}

type fakeRawStore struct {
	saveFn func(ctx context.Context, event model.Event) (string, error)
	listFn func(ctx context.Context, prefix string) ([]rawstore.Instance, error)
}

func (f *fakeRawStore) Save(ctx context.Context, event model.Event) (string, error) {
	if f.saveFn == nil {
		return rawstore.EventKey(event), nil
	}
	return f.saveFn(ctx, event)
}

func (f *fakeRawStore) ListByPrefix(ctx context.Context, prefix string) ([]rawstore.Instance, error) {
	if f.listFn == nil {
		return nil, nil
	}
	return f.listFn(ctx, prefix)
}

type fakeActivityStore struct {
	saveFn      func(ctx context.Context, activity *model.Activity) (string, error)
	overwriteFn func(ctx context.Context, activity *model.Activity) (string, error)
	countFn     func(ctx context.Context, customerID int64, objectID string) (int, error)
}

func (f *fakeActivityStore) Save(ctx context.Context, activity *model.Activity) (string, error) {
	if f.saveFn == nil {
		return "activity-1", nil
	}
	return f.saveFn(ctx, activity)
}

func (f *fakeActivityStore) OverwriteByObjectID(ctx context.Context, activity *model.Activity) (string, error) {
	if f.overwriteFn == nil {
		return "activity-1", nil
	}
	return f.overwriteFn(ctx, activity)
}

func (f *fakeActivityStore) CountByObjectID(ctx context.Context, customerID int64, objectID string) (int, error) {
	if f.countFn == nil {
		return 0, nil
	}
	return f.countFn(ctx, customerID, objectID)
}

type fakeAccountStore struct {
	upsertFn func(ctx context.Context, customerID int64, feedID int, account model.Account) error
}

func (f *fakeAccountStore) Upsert(ctx context.Context, customerID int64, feedID int, account model.Account) error {
	if f.upsertFn == nil {
		return nil
	}
	return f.upsertFn(ctx, customerID, feedID, account)
}

type fakeTicketStore struct {
	upsertFn func(ctx context.Context, customerID int64, ticket model.Ticket) error
}

func (f *fakeTicketStore) Upsert(ctx context.Context, customerID int64, ticket model.Ticket) error {
	if f.upsertFn == nil {
		return nil
	}
	return f.upsertFn(ctx, customerID, ticket)
}

type fakeIdentityStore struct {
	getAllFn func(ctx context.Context, customerID int64) (model.IdentityMap, error)
}

func (f *fakeIdentityStore) GetAll(ctx context.Context, customerID int64) (model.IdentityMap, error) {
	if f.getAllFn == nil {
		return model.IdentityMap{}, nil
	}
	return f.getAllFn(ctx, customerID)
}

type fakeReviewStore struct {
	addFn func(ctx context.Context, customerID int64, feedID int, account model.Account) error
}

func (f *fakeReviewStore) Add(ctx context.Context, customerID int64, feedID int, account model.Account) error {
	if f.addFn == nil {
		return nil
	}
	return f.addFn(ctx, customerID, feedID, account)
}

type fakeMirrorStore struct {
	saveFn func(ctx context.Context, event model.Event, storageID string) error
}

func (f *fakeMirrorStore) Save(ctx context.Context, event model.Event, storageID string) error {
	if f.saveFn == nil {
		return nil
	}
	return f.saveFn(ctx, event, storageID)
}

type fakeProducer struct {
	publishFn func(ctx context.Context, msg queue.ActivityMessage) error
}

func (f *fakeProducer) Publish(ctx context.Context, msg queue.ActivityMessage) error {
	if f.publishFn == nil {
		return nil
	}
	return f.publishFn(ctx, msg)
}

func (f *fakeProducer) Close() error { return nil }

var _ service.FilterService = (*fakeFilter)(nil)
var _ service.IdentityService = (*fakeIdentity)(nil)
var _ service.RawStore = (*fakeRawStore)(nil)
