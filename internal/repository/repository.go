// Package repository 提供求解结果的数据访问层
package repository

import (
	"context"
	"database/sql"
)

// ListFilter 列表查询过滤器
type ListFilter struct {
	Instance  string `json:"instance,omitempty"`
	Solver    string `json:"solver,omitempty"`
	ValidOnly bool   `json:"valid_only,omitempty"`
	Offset    int    `json:"offset"`
	Limit     int    `json:"limit"`
	OrderBy   string `json:"order_by,omitempty"`
	OrderDir  string `json:"order_dir,omitempty"` // asc/desc
}

// DefaultListFilter 返回默认过滤器
func DefaultListFilter() ListFilter {
	return ListFilter{
		Offset:   0,
		Limit:    20,
		OrderBy:  "created_at",
		OrderDir: "desc",
	}
}

// WithLimit 设置限制
func (f ListFilter) WithLimit(limit int) ListFilter {
	f.Limit = limit
	return f
}

// WithOffset 设置偏移
func (f ListFilter) WithOffset(offset int) ListFilter {
	f.Offset = offset
	return f
}

// WithInstance 设置实例过滤
func (f ListFilter) WithInstance(instance string) ListFilter {
	f.Instance = instance
	return f
}

// WithSolver 设置求解器过滤
func (f ListFilter) WithSolver(solver string) ListFilter {
	f.Solver = solver
	return f
}

// WithValidOnly 只返回合法解
func (f ListFilter) WithValidOnly() ListFilter {
	f.ValidOnly = true
	return f
}

// orderable 允许排序的列
var orderable = map[string]bool{
	"created_at":  true,
	"score":       true,
	"duration_ms": true,
	"iterations":  true,
}

// order 返回安全的排序子句
func (f ListFilter) order() (string, string) {
	by := f.OrderBy
	if !orderable[by] {
		by = "created_at"
	}
	dir := "DESC"
	if f.OrderDir == "asc" {
		dir = "ASC"
	}
	return by, dir
}

// DB 数据库接口
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Scanner 行扫描接口
type Scanner interface {
	Scan(dest ...interface{}) error
}
