package middleware_test

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"pulseboard.app/ingest/internal/http/middleware"
)

func sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

var _ = Describe("VerifySignature", func() {
	secret := []byte("webhook-secret")
	body := []byte(`{"action":"opened"}`)

	It("accepts a correctly computed signature", func() {
		Expect(middleware.VerifySignature(sign(secret, body), secret, body)).To(Succeed())
	})

	It("rejects a mutated body", func() {
		header := sign(secret, body)
		mutated := []byte(`{"action":"opened" }`)
		Expect(middleware.VerifySignature(header, secret, mutated)).To(MatchError(middleware.ErrInvalidSignature))
	})

	It("rejects a mutated signature header", func() {
		header := sign(secret, body)
		corrupted := header[:len(header)-1] + "0"
		if corrupted == header {
			corrupted = header[:len(header)-1] + "1"
		}
		Expect(middleware.VerifySignature(corrupted, secret, body)).To(MatchError(middleware.ErrInvalidSignature))
	})

	It("rejects a signature under the wrong secret", func() {
		header := sign([]byte("other-secret"), body)
		Expect(middleware.VerifySignature(header, secret, body)).To(MatchError(middleware.ErrInvalidSignature))
	})

	It("rejects a missing header", func() {
		Expect(middleware.VerifySignature("", secret, body)).To(MatchError(middleware.ErrMissingSignature))
	})
})

var _ = Describe("Signature middleware", func() {
	secret := []byte("webhook-secret")
	body := []byte(`{"action":"opened"}`)

	var router *gin.Engine
	var seen []byte

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		seen = nil
		router = gin.New()
		router.POST("/hook", middleware.Signature("X-Hub-Signature-256", secret), func(c *gin.Context) {
			data, err := c.GetRawData()
			Expect(err).NotTo(HaveOccurred())
			seen = data
			c.Status(http.StatusAccepted)
		})
	})

	post := func(payload []byte, header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/hook", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		if header != "" {
			req.Header.Set("X-Hub-Signature-256", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("passes signed requests through with the body intact", func() {
		w := post(body, sign(secret, body))

		Expect(w.Code).To(Equal(http.StatusAccepted))
		Expect(seen).To(Equal(body))
	})

	It("rejects unsigned requests with 400", func() {
		w := post(body, "")

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring(`"error":true`))
	})

	It("rejects tampered bodies with 400", func() {
		w := post([]byte(`{"action":"closed"}`), sign(secret, body))

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("rejects non-JSON content types with 415 before checking the signature", func() {
		req := httptest.NewRequest(http.MethodPost, "/hook", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Hub-Signature-256", sign(secret, body))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusUnsupportedMediaType))
		Expect(seen).To(BeNil())
	})

	It("accepts a JSON content type carrying a charset parameter", func() {
		req := httptest.NewRequest(http.MethodPost, "/hook", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		req.Header.Set("X-Hub-Signature-256", sign(secret, body))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusAccepted))
	})
})
