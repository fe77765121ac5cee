package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/transfer_backoffice/internal/apperrors"
	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	portsrepo "github.com/SscSPs/transfer_backoffice/internal/core/ports/repositories"
	"github.com/SscSPs/transfer_backoffice/internal/middleware"
	"github.com/jackc/pgx/v5"
)

// BaseService provides common functionality for all services
type BaseService struct {
	// Now is the clock used for audit stamps; nil means time.Now.
	Now func() time.Time
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	return middleware.GetLoggerFromCtx(ctx)
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+2)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Error(msg, args...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	logger.Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	logger.Debug(msg, keyvals...)
}

// AuthorizeActor checks that the actor holds one of the allowed roles.
func (s *BaseService) AuthorizeActor(ctx context.Context, actor domain.Actor, action string, allowed ...domain.Role) error {
	if actor.HasRole(allowed...) {
		return nil
	}
	s.LogDebug(ctx, "Role not allowed for action",
		slog.String("user_id", actor.UserID),
		slog.String("role", string(actor.Role)),
		slog.String("action", action))
	return fmt.Errorf("%w: role %s cannot %s", apperrors.ErrForbidden, actor.Role, action)
}

// CurrentTime returns the service clock reading in UTC.
func (s *BaseService) CurrentTime() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Rollback rolls tx back and logs a failure; it is meant for defer.
// Rolling back a committed transaction is a no-op.
func (s *BaseService) Rollback(ctx context.Context, tm portsrepo.TransactionManager, tx pgx.Tx) {
	if err := tm.Rollback(ctx, tx); err != nil {
		s.LogError(ctx, err, "Failed to rollback transaction")
	}
}
