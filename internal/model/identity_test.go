package model_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"pulseboard.app/ingest/internal/model"
)

var _ = Describe("FindIdentity", func() {
	identities := model.IdentityMap{
		"id-alice": {
			DisplayName: "Alice",
			Accounts: []model.IdentityAccount{
				{FeedID: 1, Type: "github", ID: "alice-gh"},
				{FeedID: 2, Type: "jira", ID: "557058:aaaa"},
			},
		},
		"id-bob": {
			DisplayName: "Bob",
			Accounts: []model.IdentityAccount{
				{FeedID: 2, Type: "jira", Name: "Bob B."},
			},
		},
	}

	It("finds the identity owning a feed/account pair", func() {
		id, ok := model.FindIdentity(identities, 1, "alice-gh", "")
		Expect(ok).To(BeTrue())
		Expect(id).To(Equal("id-alice"))
	})

	It("matches by account name on the same feed", func() {
		id, ok := model.FindIdentity(identities, 2, "unknown", "Bob B.")
		Expect(ok).To(BeTrue())
		Expect(id).To(Equal("id-bob"))
	})

	It("does not match the same account id on a different feed", func() {
		_, ok := model.FindIdentity(identities, 3, "alice-gh", "")
		Expect(ok).To(BeFalse())
	})

	It("reports not found for unknown accounts", func() {
		_, ok := model.FindIdentity(identities, 1, "nobody", "")
		Expect(ok).To(BeFalse())
	})

	It("never matches an empty account id against name-only entries", func() {
		// id-bob's jira entry carries no id; an anonymous account on the
		// same feed must not be attributed to it.
		_, ok := model.FindIdentity(identities, 2, "", "")
		Expect(ok).To(BeFalse())
	})

	It("never matches an empty account name", func() {
		_, ok := model.FindIdentity(model.IdentityMap{
			"x": {Accounts: []model.IdentityAccount{{FeedID: 1}}},
		}, 1, "someone", "")
		Expect(ok).To(BeFalse())
	})
})
