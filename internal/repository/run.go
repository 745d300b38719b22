package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/tourplan/tourplan/pkg/errors"
	"github.com/tourplan/tourplan/pkg/planner/solver"
)

// RunRecord 一次求解的最终结果
type RunRecord struct {
	ID         uuid.UUID         `json:"id"`
	Instance   string            `json:"instance"`
	Solver     string            `json:"solver"`
	Params     map[string]string `json:"params,omitempty"`
	Score      float64           `json:"score"`
	Valid      bool              `json:"valid"`
	Iterations int               `json:"iterations"`
	DurationMS int64             `json:"duration_ms"`
	Solution   string            `json:"solution"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NewRunRecord 由求解结果创建记录
func NewRunRecord(instance, solverName string, params map[string]string, res *solver.Result) *RunRecord {
	rec := &RunRecord{
		ID:         uuid.New(),
		Instance:   instance,
		Solver:     solverName,
		Params:     params,
		Score:      res.Score,
		Valid:      res.Valid,
		Iterations: res.Iterations,
		DurationMS: res.Duration.Milliseconds(),
	}
	if res.Solution != nil {
		rec.Solution = res.Solution.Summary()
	}
	return rec
}

// Schema 结果表结构
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          UUID PRIMARY KEY,
	instance    TEXT NOT NULL,
	solver      TEXT NOT NULL,
	params      JSONB NOT NULL DEFAULT '{}',
	score       DOUBLE PRECISION NOT NULL,
	valid       BOOLEAN NOT NULL,
	iterations  INTEGER NOT NULL,
	duration_ms BIGINT NOT NULL,
	solution    TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_instance_score_idx ON runs (instance, score DESC);
`

const runColumns = `id, instance, solver, params, score, valid, iterations, duration_ms, solution, created_at`

// RunRepositoryInterface 求解记录仓储接口
type RunRepositoryInterface interface {
	EnsureSchema(ctx context.Context) error
	Create(ctx context.Context, run *RunRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*RunRecord, error)
	List(ctx context.Context, filter ListFilter) ([]*RunRecord, int, error)
	BestByInstance(ctx context.Context, instance string) (*RunRecord, error)
}

// RunRepository 求解记录仓储实现
type RunRepository struct {
	db DB
}

// NewRunRepository 创建求解记录仓储
func NewRunRepository(db DB) *RunRepository {
	return &RunRepository{db: db}
}

// EnsureSchema 创建结果表
func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "创建结果表失败")
	}
	return nil
}

// Create 保存求解记录
func (r *RunRepository) Create(ctx context.Context, run *RunRecord) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	params, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("序列化参数失败: %w", err)
	}

	query := `INSERT INTO runs (` + runColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = r.db.ExecContext(ctx, query,
		run.ID, run.Instance, run.Solver, params, run.Score, run.Valid,
		run.Iterations, run.DurationMS, run.Solution, run.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "保存求解记录失败")
	}
	return nil
}

// GetByID 根据ID获取求解记录
func (r *RunRepository) GetByID(ctx context.Context, id uuid.UUID) (*RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = $1`
	return scanRun(r.db.QueryRowContext(ctx, query, id))
}

// BestByInstance 返回实例上得分最高的合法记录
func (r *RunRepository) BestByInstance(ctx context.Context, instance string) (*RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs
		WHERE instance = $1 AND valid
		ORDER BY score DESC, duration_ms ASC
		LIMIT 1`
	return scanRun(r.db.QueryRowContext(ctx, query, instance))
}

// List 列出求解记录，返回当前页和总数
func (r *RunRepository) List(ctx context.Context, filter ListFilter) ([]*RunRecord, int, error) {
	where, args := buildWhere(filter)

	var total int
	countQuery := "SELECT COUNT(*) FROM runs" + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "统计求解记录失败")
	}

	by, dir := filter.order()
	query := fmt.Sprintf("SELECT %s FROM runs%s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		runColumns, where, by, dir, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询求解记录失败")
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "读取求解记录失败")
	}
	return runs, total, nil
}

// buildWhere 生成过滤条件
func buildWhere(filter ListFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.Instance != "" {
		args = append(args, filter.Instance)
		conditions = append(conditions, fmt.Sprintf("instance = $%d", len(args)))
	}
	if filter.Solver != "" {
		args = append(args, filter.Solver)
		conditions = append(conditions, fmt.Sprintf("solver = $%d", len(args)))
	}
	if filter.ValidOnly {
		conditions = append(conditions, "valid")
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// scanRun 扫描一行记录
func scanRun(row Scanner) (*RunRecord, error) {
	run := &RunRecord{}
	var params []byte
	err := row.Scan(
		&run.ID, &run.Instance, &run.Solver, &params, &run.Score, &run.Valid,
		&run.Iterations, &run.DurationMS, &run.Solution, &run.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.New(apperrors.CodeNotFound, "求解记录不存在")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "扫描求解记录失败")
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &run.Params); err != nil {
			return nil, fmt.Errorf("解析参数失败: %w", err)
		}
	}
	return run, nil
}
