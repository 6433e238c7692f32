package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tripaudit/internal/audit/util"
)

var (
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrVersionNotFound     = errors.New("version not found")
	ErrVersionMismatch     = errors.New("versions belong to different documents")
	ErrNotDeleted          = errors.New("document is not deleted")
	ErrBadRequest          = errors.New("bad request")
	ErrUnknownDocumentType = errors.New("unknown document type")
)

// Side channels
const (
	ChannelAudit   = "audit"
	ChannelVersion = "version"
)

// sideChannelTimeout bounds a best-effort write once the request context is gone.
const sideChannelTimeout = 5 * time.Second

// FailureHook is called after an audit or version write fails and has been
// swallowed. It must not block for long; it runs on the request goroutine.
type FailureHook func(ctx context.Context, channel, entityType string, err error)

// sideChannel reports swallowed audit/version failures.
type sideChannel struct {
	logger  *slog.Logger
	metrics *util.Metrics
	hook    FailureHook
}

func (s sideChannel) fail(ctx context.Context, channel, entityType, documentID string, err error) {
	s.logger.WarnContext(ctx, "side channel write failed",
		"channel", channel,
		"entity_type", entityType,
		"document_id", documentID,
		"error", err,
	)
	if s.metrics != nil {
		s.metrics.SideChannelFailuresTotal.WithLabelValues(channel, entityType).Inc()
	}
	if s.hook != nil {
		s.hook(ctx, channel, entityType, err)
	}
}

// detach keeps request values but not cancellation, so a client disconnect
// does not drop the audit trail of a mutation that already happened.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), sideChannelTimeout)
}
