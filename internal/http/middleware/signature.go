package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

var (
	ErrMissingSignature = errors.New("missing signature header")
	ErrInvalidSignature = errors.New("invalid signature")
)

// VerifySignature checks an HMAC-SHA256 signature of the form
// "sha256=<hex>" against the exact raw body bytes. Re-serialized JSON is
// not byte-stable, so callers must pass the bytes as received.
func VerifySignature(headerValue string, secret, body []byte) error {
	if headerValue == "" {
		return ErrMissingSignature
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(headerValue), []byte(expected)) {
		return ErrInvalidSignature
	}
	return nil
}

// Signature is a gin middleware enforcing a signed JSON body for sources
// that sign their deliveries. The body is restored for downstream handlers.
func Signature(headerName string, secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Signed senders always deliver JSON; anything else is rejected
		// before the signature is even checked.
		if c.ContentType() != "application/json" {
			c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{"error": true, "message": "unsupported content type"})
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": true, "message": "failed to read request body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if err := VerifySignature(c.GetHeader(headerName), secret, body); err != nil {
			slog.WarnContext(c.Request.Context(), "webhook signature rejected",
				"header", headerName,
				"reason", err.Error())
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": true, "message": fmt.Sprintf("%s: %s", err.Error(), headerName)})
			return
		}

		c.Next()
	}
}
