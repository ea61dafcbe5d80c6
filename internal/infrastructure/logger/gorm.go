package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger routes GORM statements to zap.
//
// Statements that take row locks (invoice, sequence and outbox rows are read
// FOR UPDATE) queue behind concurrent issues and payments, so they are judged
// against their own lock-wait threshold instead of the slow-query one.
type GormLogger struct {
	logger        *zap.Logger
	level         gormlogger.LogLevel
	slow          time.Duration
	lockWait      time.Duration
	logNotFound   bool
	parameterized bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the threshold above which a plain statement is logged at warn
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		l.slow = threshold
	}
}

// WithLockWaitThreshold sets the threshold for statements that take row locks
func WithLockWaitThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		l.lockWait = threshold
	}
}

// WithIgnoreRecordNotFoundError controls whether lookups of missing invoices,
// payments or accounts are logged as SQL errors. They are ignored by default:
// the application layer turns them into NOT_FOUND.
func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) {
		l.logNotFound = !ignore
	}
}

// WithParameterizedQueries logs statements with placeholders instead of
// bound values, keeping client names and amounts out of the logs.
func WithParameterizedQueries(enabled bool) GormLoggerOption {
	return func(l *GormLogger) {
		l.parameterized = enabled
	}
}

// NewGormLogger creates a GORM logger writing to zapLogger under the "gorm" name
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	gl := &GormLogger{
		logger:   zapLogger.Named("gorm"),
		level:    level,
		slow:     200 * time.Millisecond,
		lockWait: time.Second,
	}
	for _, opt := range opts {
		opt(gl)
	}
	return gl
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.sugar(ctx).Infof(msg, data...)
	}
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.sugar(ctx).Warnf(msg, data...)
	}
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.sugar(ctx).Errorf(msg, data...)
	}
}

// ParamsFilter implements gorm's ParamsFilter, dropping bound values when
// parameterized logging is on.
func (l *GormLogger) ParamsFilter(_ context.Context, sql string, params ...any) (string, []any) {
	if l.parameterized {
		return sql, nil
	}
	return sql, params
}

// Trace implements gormlogger.Interface. Statements carry the request,
// tenant and trace IDs found on ctx.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	locking := takesRowLock(sql)
	log := WithTraceContext(ctx, l.logger).With(l.statementFields(ctx, sql, rows, elapsed, locking)...)

	switch {
	case err != nil && l.level >= gormlogger.Error:
		if !l.logNotFound && errors.Is(err, gormlogger.ErrRecordNotFound) {
			return
		}
		log.Error("SQL Error", zap.Error(err))

	case locking && l.lockWait > 0 && elapsed > l.lockWait && l.level >= gormlogger.Warn:
		log.Warn(fmt.Sprintf("SLOW LOCKED SQL >= %v", l.lockWait))

	case !locking && l.slow > 0 && elapsed > l.slow && l.level >= gormlogger.Warn:
		log.Warn(fmt.Sprintf("SLOW SQL >= %v", l.slow))

	case l.level >= gormlogger.Info:
		log.Debug("SQL Query")
	}
}

func (l *GormLogger) statementFields(ctx context.Context, sql string, rows int64, elapsed time.Duration, locking bool) []zap.Field {
	fields := make([]zap.Field, 0, 6)
	fields = append(fields,
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	)
	if locking {
		fields = append(fields, zap.Bool("row_lock", true))
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if tenantID := GetTenantID(ctx); tenantID != "" {
		fields = append(fields, zap.String("tenant_id", tenantID))
	}
	return fields
}

func (l *GormLogger) sugar(ctx context.Context) *zap.SugaredLogger {
	return WithTraceContext(ctx, l.logger).Sugar()
}

func takesRowLock(sql string) bool {
	upper := strings.ToUpper(sql)
	return strings.Contains(upper, " FOR UPDATE") || strings.Contains(upper, " FOR NO KEY UPDATE")
}

// MapGormLogLevel maps the application log level to a GORM level; GORM
// logs nothing below warn unless the application runs at debug.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
