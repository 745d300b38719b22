package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tourplan/tourplan/internal/config"
	"github.com/tourplan/tourplan/internal/metrics"
	apperrors "github.com/tourplan/tourplan/pkg/errors"
)

func TestCompactQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected string
	}{
		{name: "短查询", query: "SELECT 1", expected: "SELECT 1"},
		{name: "多行查询", query: "\n\t\tSELECT id\n\t\tFROM runs\n", expected: "SELECT id FROM runs"},
		{name: "超长查询", query: strings.Repeat("x", 200), expected: strings.Repeat("x", maxLoggedQuery) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := compactQuery(tt.query); got != tt.expected {
				t.Errorf("compactQuery() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestObserve(t *testing.T) {
	registry := metrics.NewRegistry()
	db := &DB{slow: time.Hour, metrics: registry}

	db.observe("exec", "INSERT INTO runs", time.Now(), nil)
	db.observe("exec", "INSERT INTO runs", time.Now(), errors.New("duplicate key"))
	db.observe("query_row", "SELECT 1", time.Now(), sql.ErrNoRows)

	queries := registry.GetCounter(metrics.DBQueries)
	if got := queries.Value("exec", "success"); got != 1 {
		t.Errorf("exec success = %v, expected 1", got)
	}
	if got := queries.Value("exec", "failure"); got != 1 {
		t.Errorf("exec failure = %v, expected 1", got)
	}
	// 查询无结果不算失败
	if got := queries.Value("query_row", "success"); got != 1 {
		t.Errorf("query_row success = %v, expected 1", got)
	}
}

func TestNew_Unreachable(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:            "127.0.0.1",
		Port:            1,
		Name:            "tourplan",
		User:            "tourplan",
		SSLMode:         "disable",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	db, err := New(ctx, cfg)
	if err == nil {
		db.Close()
		t.Skip("端口 1 上意外存在数据库")
	}
	if !apperrors.Is(err, apperrors.CodeDatabaseError) {
		t.Errorf("New() error code = %v, expected %v", apperrors.GetCode(err), apperrors.CodeDatabaseError)
	}
}
