package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/yungbote/integration-engine/internal/platform/envutil"
)

type Logger struct {
	SugaredLogger *zap.SugaredLogger
	scrub         scrubber
}

// New builds a zap logger for LOG_MODE. Redaction follows LOG_REDACTION_ENABLED and LOG_HASH_SALT.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	case "test":
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zl.Sugar(), scrub: scrubberFromEnv()}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar(), scrub: scrubber{enabled: true}}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.SugaredLogger.Debugw(msg, l.scrub.kvs(kv)...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.SugaredLogger.Infow(msg, l.scrub.kvs(kv)...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.SugaredLogger.Warnw(msg, l.scrub.kvs(kv)...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.SugaredLogger.Errorw(msg, l.scrub.kvs(kv)...) }
func (l *Logger) Fatal(msg string, kv ...interface{}) { l.SugaredLogger.Fatalw(msg, l.scrub.kvs(kv)...) }

func (l *Logger) With(kv ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(l.scrub.kvs(kv)...), scrub: l.scrub}
}

const redacted = "[REDACTED]"

// Credentials and the user's own words never reach a log sink.
var redactedKeyParts = []string{
	"token", "authorization", "password", "secret", "cookie", "email",
	"insight_text", "reflection_text", "narrative", "somatic", "struggle_text",
}

// Identifiers stay correlatable across lines without being readable.
var hashedKeyParts = []string{"user_id", "session_id"}

type scrubber struct {
	enabled bool
	salt    string
}

func scrubberFromEnv() scrubber {
	return scrubber{
		enabled: envutil.Bool("LOG_REDACTION_ENABLED", true),
		salt:    envutil.String("LOG_HASH_SALT", ""),
	}
}

func (s scrubber) kvs(kv []interface{}) []interface{} {
	if !s.enabled || len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i == len(kv)-1 {
			out = append(out, kv[i])
			break
		}
		key := toString(kv[i])
		out = append(out, key, s.value(strings.ToLower(key), kv[i+1]))
	}
	return out
}

func (s scrubber) value(key string, val interface{}) interface{} {
	switch {
	case matchesAny(key, redactedKeyParts):
		return redacted
	case matchesAny(key, hashedKeyParts):
		return s.hash(val)
	}
	switch v := val.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, inner := range v {
			out[k] = s.value(strings.ToLower(k), inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, inner := range v {
			out[i] = s.value("", inner)
		}
		return out
	case string:
		if looksLikeJWT(v) {
			return redacted
		}
	}
	return val
}

func (s scrubber) hash(val interface{}) string {
	raw := toString(val)
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(s.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:])[:12]
}

func matchesAny(key string, parts []string) bool {
	if key == "" {
		return false
	}
	for _, p := range parts {
		if strings.Contains(key, p) {
			return true
		}
	}
	return false
}

func looksLikeJWT(s string) bool {
	parts := strings.Split(s, ".")
	return len(parts) == 3 && len(parts[0]) > 10 && len(parts[1]) > 10
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
