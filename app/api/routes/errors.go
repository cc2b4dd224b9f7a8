package routes

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/wagate/pkg/automation"
	"github.com/wagate/pkg/constant"
	"github.com/wagate/pkg/domains/auth"
	"github.com/wagate/pkg/domains/session"
	"github.com/wagate/pkg/domains/webhook"
	"github.com/wagate/pkg/events"
)

// respondError maps domain errors onto HTTP responses.
func respondError(c *gin.Context, err error) {
	var (
		notFound     *session.SessionNotFoundError
		notConnected *session.SessionNotConnectedError
		inProgress   *session.CreationInProgressError
		taken        *session.SessionTakenError
		initErr      *session.InitializationError
		unknownEvent *events.UnknownEventError
		notSupported *automation.NotSupportedError
	)

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": constant.SESSION_NOT_FOUND})
	case errors.Is(err, webhook.ErrWebhookNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": constant.WEBHOOK_NOT_FOUND})
	case errors.As(err, &inProgress), errors.Is(err, session.ErrSessionEvicted):
		c.JSON(http.StatusConflict, gin.H{"error": constant.SESSION_CREATING})
	case errors.As(err, &taken):
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf(constant.ALREADY_EXISTS, "Session")})
	case errors.Is(err, auth.ErrUserExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.As(err, &unknownEvent):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   constant.INVALID_EVENTS,
			"unknown": unknownEvent.Tokens,
			"allowed": events.ExternalNames(events.All()),
		})
	case errors.Is(err, events.ErrNoEvents):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": constant.INVALID_EVENTS, "detail": err.Error()})
	case errors.Is(err, session.ErrInvalidSessionID),
		errors.Is(err, webhook.ErrInvalidPolicy),
		errors.Is(err, webhook.ErrInvalidURL):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &notConnected):
		c.JSON(http.StatusTooEarly, gin.H{"error": constant.SESSION_NOT_READY, "status": notConnected.Status})
	case errors.As(err, &initErr):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":    constant.SESSION_INIT_FAILED,
			"kind":     initErr.Kind,
			"guidance": initErr.Guidance,
			"detail":   initErr.Err.Error(),
		})
	case errors.As(err, &notSupported):
		c.JSON(http.StatusNotImplemented, gin.H{"error": constant.NOT_SUPPORTED, "operation": notSupported.Operation})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("unhandled request error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": constant.SOMETHING_WENT_WRONG})
	}
}
