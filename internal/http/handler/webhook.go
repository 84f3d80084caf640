package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"pulseboard.app/ingest/common/logger"
	"pulseboard.app/ingest/internal/adapter"
	"pulseboard.app/ingest/internal/clientid"
	"pulseboard.app/ingest/internal/http/dto"
	"pulseboard.app/ingest/internal/model"
	"pulseboard.app/ingest/internal/service"
)

type WebhookHandler struct {
	codec  *clientid.Codec
	ingest service.IngestService
}

func NewWebhookHandler(codec *clientid.Codec, ingest service.IngestService) *WebhookHandler {
	return &WebhookHandler{codec: codec, ingest: ingest}
}

// Handle returns the endpoint for one source. The client id token in the
// path is the authorization gate: it must decode cleanly and its feed must
// carry the source the endpoint is registered for.
func (h *WebhookHandler) Handle(source model.Source) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		client, err := h.codec.Decode(c.Param("clientId"))
		if err != nil {
			c.JSON(http.StatusForbidden, dto.NewError("invalid client id"))
			return
		}
		feed, ok := model.FeedByID(client.FeedID)
		if !ok || feed.Source != source {
			c.JSON(http.StatusForbidden, dto.NewError("client id does not match endpoint"))
			return
		}

		ctx = logger.WithLogFields(ctx, logger.LogFields{
			CustomerID: logger.Ptr(client.CustomerID),
			FeedID:     logger.Ptr(client.FeedID),
			Source:     logger.Ptr(string(source)),
		})

		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewError("failed to read request body"))
			return
		}

		result, err := h.ingest.Ingest(ctx, source, client, c.Request.Header, body)
		if err != nil {
			h.writeError(c, source, err)
			return
		}

		if result.Banned {
			c.JSON(http.StatusOK, dto.WebhookResponse{Status: "banned", StorageID: result.StorageID})
			return
		}
		c.JSON(http.StatusAccepted, dto.WebhookResponse{
			Status:     "processed",
			StorageID:  result.StorageID,
			ActivityID: result.ActivityID,
		})
	}
}

func (h *WebhookHandler) writeError(c *gin.Context, source model.Source, err error) {
	ctx := c.Request.Context()

	switch {
	case errors.Is(err, adapter.ErrMissingHeader):
		c.JSON(http.StatusBadRequest, dto.NewError(err.Error()))
	case errors.Is(err, adapter.ErrSchemaValidation):
		slog.WarnContext(ctx, "webhook payload rejected", "source", source, "error", err)
		c.JSON(http.StatusUnprocessableEntity, dto.NewError("payload validation failed"))
	default:
		slog.ErrorContext(ctx, "webhook processing failed", "source", source, "error", err)
		c.JSON(http.StatusInternalServerError, dto.NewError("failed to process event"))
	}
}
