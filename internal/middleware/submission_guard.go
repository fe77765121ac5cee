package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// IdempotencyHeader carries the client-generated submission key.
const IdempotencyHeader = "Idempotency-Key"

// SubmissionStore reserves submission keys for a limited time.
type SubmissionStore interface {
	// Reserve returns false when key is already reserved.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// SubmissionGuard rejects a mutating request whose Idempotency-Key was already
// seen for the same caller and route within ttl. A failed request releases its
// key so the user can resubmit corrected input. Requests without the header pass.
func SubmissionGuard(store SubmissionStore, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		idemKey := strings.TrimSpace(c.GetHeader(IdempotencyHeader))
		if idemKey == "" {
			c.Next()
			return
		}

		logger := GetLoggerFromCtx(c.Request.Context())
		caller := "anonymous"
		if actor, ok := GetActorFromContext(c); ok {
			caller = actor.UserID
		}
		key := strings.Join([]string{"submission", caller, c.Request.Method, c.FullPath(), idemKey}, ":")

		reserved, err := store.Reserve(c.Request.Context(), key, ttl)
		if err != nil {
			logger.Error("Failed to reserve submission key", slog.String("error", err.Error()))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Could not register the submission, please retry"})
			return
		}
		if !reserved {
			logger.Warn("Duplicate submission rejected", slog.String("idempotency_key", idemKey))
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "This submission is already being processed"})
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			// Context may already be cancelled once the handler returns.
			if err := store.Release(context.WithoutCancel(c.Request.Context()), key); err != nil {
				logger.Warn("Failed to release submission key", slog.String("error", err.Error()))
			}
		}
	}
}
