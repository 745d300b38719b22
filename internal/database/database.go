// Package database 提供运行结果库的连接
package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/tourplan/tourplan/internal/config"
	"github.com/tourplan/tourplan/internal/metrics"
	apperrors "github.com/tourplan/tourplan/pkg/errors"
	"github.com/tourplan/tourplan/pkg/logger"

	_ "github.com/lib/pq" // PostgreSQL 驱动
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultSlowQuery      = 100 * time.Millisecond

	// maxLoggedQuery 日志中保留的查询长度
	maxLoggedQuery = 160
)

// DB 结果库连接，每次操作计入查询指标
type DB struct {
	*sql.DB
	slow    time.Duration
	metrics *metrics.MetricsRegistry
}

// New 打开结果库并确认可连接
func New(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	pool, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "打开结果库失败")
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := pool.PingContext(pingCtx); err != nil {
		pool.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "连接结果库失败").
			WithField("host", cfg.Host).
			WithField("port", cfg.Port)
	}

	slow := cfg.SlowQuery
	if slow <= 0 {
		slow = defaultSlowQuery
	}
	logger.Debug().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Msg("结果库已连接")

	return &DB{DB: pool, slow: slow, metrics: metrics.GetRegistry()}, nil
}

// Transaction 在事务中执行 fn，fn 返回错误或 panic 时回滚
func (db *DB) Transaction(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	start := time.Now()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "开始事务失败")
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				logger.WithError(rbErr).Msg("事务回滚失败")
			}
		}
		db.observe("tx", "", start, err)
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "事务提交失败")
	}
	return nil
}

// ExecContext 执行SQL语句
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := db.DB.ExecContext(ctx, query, args...)
	db.observe("exec", query, start, err)
	return result, err
}

// QueryContext 执行查询
func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := db.DB.QueryContext(ctx, query, args...)
	db.observe("query", query, start, err)
	return rows, err
}

// QueryRowContext 执行单行查询，错误在 Scan 时返回
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	start := time.Now()
	row := db.DB.QueryRowContext(ctx, query, args...)
	db.observe("query_row", query, start, row.Err())
	return row
}

// observe 记录操作指标，失败和慢查询写日志
func (db *DB) observe(op, query string, start time.Time, err error) {
	elapsed := time.Since(start)
	if db.metrics != nil {
		db.metrics.RecordQuery(op, err == nil || errors.Is(err, sql.ErrNoRows), elapsed)
	}

	switch {
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		logger.Debug().
			Err(err).
			Str("op", op).
			Str("query", compactQuery(query)).
			Msg("SQL执行失败")
	case elapsed > db.slow:
		logger.Warn().
			Str("op", op).
			Str("query", compactQuery(query)).
			Dur("duration", elapsed).
			Msg("慢SQL查询")
	}
}

// compactQuery 压缩空白并截断，用于日志
func compactQuery(query string) string {
	query = strings.Join(strings.Fields(query), " ")
	if len(query) > maxLoggedQuery {
		return query[:maxLoggedQuery] + "..."
	}
	return query
}
