package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowQuery is the threshold above which statements are reported.
// SQLite runs in process, so anything near it usually means lock contention.
const DefaultSlowQuery = 200 * time.Millisecond

// GormLogger routes GORM output through zap. Statement traces use the logger
// attached to the query context, so SQL issued during a request or an import
// run carries its request_id or run_id.
type GormLogger struct {
	base          *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

// GormOption customises a GormLogger.
type GormOption func(*GormLogger)

// WithSlowThreshold overrides DefaultSlowQuery. Zero disables slow query reports.
func WithSlowThreshold(d time.Duration) GormOption {
	return func(l *GormLogger) { l.slowThreshold = d }
}

func NewGormLogger(base *zap.Logger, level gormlogger.LogLevel, opts ...GormOption) *GormLogger {
	l := &GormLogger{base: base, level: level, slowThreshold: DefaultSlowQuery}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.scoped(ctx).Sugar().Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.scoped(ctx).Sugar().Warnf(msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.scoped(ctx).Sugar().Errorf(msg, data...)
	}
}

// Trace reports failed, slow and (at Info) all statements. Lookups that find
// nothing and unique conflicts are expected during an upsert and never
// reported as errors.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	took := time.Since(begin)
	slow := l.slowThreshold > 0 && took >= l.slowThreshold
	expected := errors.Is(err, gormlogger.ErrRecordNotFound) || errors.Is(err, gorm.ErrDuplicatedKey)

	var (
		level = gormlogger.Info
		msg   = "query"
	)
	switch {
	case err != nil && !expected:
		level, msg = gormlogger.Error, "query failed"
	case slow:
		level, msg = gormlogger.Warn, "slow query"
	}
	if l.level < level {
		return
	}

	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("took", took),
		zap.Int64("rows_affected", rows),
		zap.String("sql", sql),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}

	log := l.scoped(ctx)
	switch level {
	case gormlogger.Error:
		log.Error(msg, fields...)
	case gormlogger.Warn:
		log.Warn(msg, append(fields, zap.Duration("threshold", l.slowThreshold))...)
	default:
		log.Debug(msg, fields...)
	}
}

func (l *GormLogger) scoped(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if cl, ok := ctx.Value(loggerKey).(*zap.Logger); ok && cl != nil {
			return cl.Named("gorm")
		}
	}
	return l.base.Named("gorm")
}

// MapGormLogLevel maps a DB_LOG_LEVEL value to a GORM log level
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
