package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/dropDatabas3/gmailbridge/internal/observability/logger"
)

// PGRecorder inserta los eventos en Postgres. Un fallo de insert se
// loggea y no interrumpe el flujo: la auditoría es best-effort.
type PGRecorder struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// NewPGRecorder conecta el pool y verifica la conexión.
func NewPGRecorder(ctx context.Context, dsn string) (*PGRecorder, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PGRecorder{pool: pool, log: logger.Named("audit")}, nil
}

const insertEvent = `
INSERT INTO audit_event (id, event, session_id, email, detail, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

func (r *PGRecorder) Record(ctx context.Context, event, sessionID, email, detail string) {
	id := uuid.New()
	_, err := r.pool.Exec(ctx, insertEvent,
		id, event, sessionID, email, detail, time.Now().UTC())
	if err != nil {
		r.log.Error("audit insert failed",
			zap.String("event", event), logger.SessionID(sessionID), logger.Err(err))
	}
}

func (r *PGRecorder) Close() {
	r.pool.Close()
}
