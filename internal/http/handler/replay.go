package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pulseboard.app/ingest/internal/clientid"
	"pulseboard.app/ingest/internal/http/dto"
	"pulseboard.app/ingest/internal/service"
)

type ReplayHandler struct {
	codec  *clientid.Codec
	replay service.ReplayService
}

func NewReplayHandler(codec *clientid.Codec, replay service.ReplayService) *ReplayHandler {
	return &ReplayHandler{codec: codec, replay: replay}
}

// HandleReplay re-derives activities from stored raw events. Only a
// customer-wide token (feed id zero) may replay; per-feed webhook tokens
// are rejected.
func (h *ReplayHandler) HandleReplay(c *gin.Context) {
	ctx := c.Request.Context()

	client, err := h.codec.Decode(c.Param("clientId"))
	if err != nil {
		c.JSON(http.StatusForbidden, dto.NewError("invalid client id"))
		return
	}
	if client.FeedID != 0 {
		c.JSON(http.StatusForbidden, dto.NewError("replay requires a customer-wide client id"))
		return
	}

	var req dto.ReplayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewError("invalid request body"))
		return
	}

	ids, err := h.replay.Replay(ctx, client.CustomerID, service.ReplayRequest{
		Events:    req.Events,
		DateStart: req.DateStart,
		DateEnd:   req.DateEnd,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmptyReplay) || isDateError(err) {
			c.JSON(http.StatusBadRequest, dto.NewError(err.Error()))
			return
		}
		slog.ErrorContext(ctx, "replay failed", "customer_id", client.CustomerID, "error", err)
		c.JSON(http.StatusInternalServerError, dto.NewError("replay failed"))
		return
	}

	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, dto.ReplayResponse{WrittenActivityIDs: ids})
}

// isDateError distinguishes a malformed hour-bucket bound (client error)
// from downstream failures.
func isDateError(err error) bool {
	var parseErr *time.ParseError
	return errors.As(err, &parseErr)
}
