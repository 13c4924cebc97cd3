package database

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Credential-bearing tables never reach the audit log.
var sensitiveTables = map[string]bool{
	"sessions":            true,
	"accounts":            true,
	"verification_tokens": true,
}

var tableRefPattern = regexp.MustCompile(`(?i)\b(?:from|into|update|join)\s+"?([a-z_][a-z0-9_]*)"?`)

type traceKey struct{}

type traceStart struct {
	sql     string
	started time.Time
}

// AuditTracer logs failed statements with the table and operation they touched.
type AuditTracer struct {
	logger *zap.Logger
}

func NewAuditTracer(logger *zap.Logger) *AuditTracer {
	return &AuditTracer{logger: logger}
}

func (t *AuditTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, traceKey{}, traceStart{sql: data.SQL, started: time.Now()})
}

func (t *AuditTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	if data.Err == nil {
		return
	}
	start, ok := ctx.Value(traceKey{}).(traceStart)
	if !ok {
		return
	}

	tables := ReferencedTables(start.sql)
	for _, table := range tables {
		if sensitiveTables[table] {
			return
		}
	}

	fields := []zap.Field{
		zap.Strings("tables", tables),
		zap.String("operation", Operation(start.sql)),
		zap.Duration("elapsed", time.Since(start.started)),
		zap.Error(data.Err),
	}
	if req, ok := RequestFrom(ctx); ok {
		fields = append(fields, zap.String("method", req.Method), zap.String("path", req.Path))
	}

	t.logger.Error("database operation failed", fields...)
}

// ReferencedTables returns the lower-cased table names a statement reads or writes.
func ReferencedTables(sql string) []string {
	seen := make(map[string]bool)
	var tables []string
	for _, m := range tableRefPattern.FindAllStringSubmatch(sql, -1) {
		name := strings.ToLower(m[1])
		// ON CONFLICT ... DO UPDATE SET
		if name == "set" {
			continue
		}
		if !seen[name] {
			seen[name] = true
			tables = append(tables, name)
		}
	}
	return tables
}

func Operation(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToUpper(fields[0])
}
