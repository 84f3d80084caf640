// Package clientid implements the opaque, checksummed token that scopes a
// webhook endpoint to one customer and feed. The checksum is keyed with a
// server-held secret, so the token is the authorization gate: decoding
// fails closed on any malformed or tampered input.
package clientid

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
)

var ErrInvalidClientID = errors.New("invalid client id")

// checksumLength is the number of hex characters of the HMAC-SHA256
// digest appended to the payload.
const checksumLength = 12

// ClientID identifies the customer and feed a webhook endpoint belongs to.
// A feed id of zero denotes a customer-wide token (used by replay).
type ClientID struct {
	CustomerID int64
	FeedID     int
}

// Codec encodes and decodes client id tokens with a shared secret.
type Codec struct {
	secret []byte
}

func NewCodec(secret []byte) *Codec {
	return &Codec{secret: secret}
}

// Encode serializes the client id and appends the truncated keyed checksum,
// then base64url-encodes the whole token.
func (c *Codec) Encode(id ClientID) string {
	payload := encodePayload(id)
	token := append(payload, c.checksum(payload)...)
	return base64.RawURLEncoding.EncodeToString(token)
}

// Decode validates and parses a token. Every failure mode (bad base64,
// truncated payload, trailing garbage, checksum mismatch) returns
// ErrInvalidClientID.
func (c *Codec) Decode(encoded string) (ClientID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return ClientID{}, ErrInvalidClientID
	}
	if len(raw) <= checksumLength {
		return ClientID{}, ErrInvalidClientID
	}

	payload := raw[:len(raw)-checksumLength]
	sum := raw[len(raw)-checksumLength:]

	customerID, n1 := binary.Uvarint(payload)
	if n1 <= 0 {
		return ClientID{}, ErrInvalidClientID
	}
	feedID, n2 := binary.Uvarint(payload[n1:])
	if n2 <= 0 || n1+n2 != len(payload) {
		return ClientID{}, ErrInvalidClientID
	}

	if !hmac.Equal(sum, c.checksum(payload)) {
		return ClientID{}, ErrInvalidClientID
	}

	return ClientID{CustomerID: int64(customerID), FeedID: int(feedID)}, nil
}

func (c *Codec) checksum(payload []byte) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(payload)
	digest := hex.EncodeToString(mac.Sum(nil))
	return []byte(digest[:checksumLength])
}

func encodePayload(id ClientID) []byte {
	payload := binary.AppendUvarint(nil, uint64(id.CustomerID))
	return binary.AppendUvarint(payload, uint64(id.FeedID))
}
