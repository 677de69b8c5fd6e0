package logger

import (
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/gmailbridge/internal/util"
)

// Campos estándar HTTP.

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func Bytes(v int) zap.Field        { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field  { return zap.String("client_ip", v) }

func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }

func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

// Campos de negocio.

// Email crea un campo para el email, enmascarado para no filtrar PII en
// los logs. La dirección completa solo vive en auditoría.
func Email(v string) zap.Field { return zap.String("email", util.MaskEmail(v)) }

func SessionID(v string) zap.Field { return zap.String("session_id", v) }
func Provider(v string) zap.Field  { return zap.String("provider", v) }
func Outcome(v string) zap.Field   { return zap.String("outcome", v) }
func KID(v string) zap.Field       { return zap.String("kid", v) }

// Campos de sistema.

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Layer(v string) zap.Field     { return zap.String("layer", v) }
func Err(err error) zap.Field      { return zap.Error(err) }

// Genéricos.

func String(key, v string) zap.Field     { return zap.String(key, v) }
func Int(key string, v int) zap.Field    { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field  { return zap.Bool(key, v) }
func Any(key string, v any) zap.Field    { return zap.Any(key, v) }
