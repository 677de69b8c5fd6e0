// Package audit persiste los eventos del flujo de identidad: reclamos,
// verificaciones, mismatches y certificados emitidos.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/gmailbridge/internal/observability/logger"
)

// Recorder recibe eventos de auditoría.
type Recorder interface {
	Record(ctx context.Context, event, sessionID, email, detail string)
	Close()
}

// LogRecorder escribe los eventos al log estructurado. Es el default
// cuando no hay base de datos configurada.
type LogRecorder struct {
	log *zap.Logger
}

func NewLogRecorder() *LogRecorder {
	return &LogRecorder{log: logger.Named("audit")}
}

func (r *LogRecorder) Record(_ context.Context, event, sessionID, email, detail string) {
	r.log.Info("audit event",
		zap.String("event", event),
		logger.SessionID(sessionID),
		logger.Email(email),
		zap.String("detail", detail))
}

func (r *LogRecorder) Close() {}
