package experiment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tourplan/tourplan/internal/metrics"
	apperrors "github.com/tourplan/tourplan/pkg/errors"
	"github.com/tourplan/tourplan/pkg/index"
	"github.com/tourplan/tourplan/pkg/logger"
	"github.com/tourplan/tourplan/pkg/planner/optimizer"
)

// Trial 单次退火运行的结果
type Trial struct {
	Score      float64
	Seconds    float64
	Iterations int
	Solution   string
	Err        error
}

// Aggregate 一组参数在多次运行上的汇总
type Aggregate struct {
	Params   Permutation
	Runs     int // 成功的运行次数
	Failures int
	AvgScore float64
	AvgTime  float64
	Best     Trial
}

// Line 返回 params;avgScore;avgTime;bestScore;bestTime;bestIters;bestSol
func (a Aggregate) Line() string {
	return strings.Join([]string{
		a.Params.Key(),
		formatFloat(a.AvgScore),
		formatFloat(a.AvgTime),
		formatFloat(a.Best.Score),
		formatFloat(a.Best.Seconds),
		strconv.Itoa(a.Best.Iterations),
		a.Best.Solution,
	}, ";")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Runner 并发执行参数网格
type Runner struct {
	Base    optimizer.Config
	Tries   int
	Workers int
	Metrics *metrics.MetricsRegistry // 可选
}

// NewRunner 创建实验执行器
func NewRunner(base optimizer.Config, tries, workers int) *Runner {
	return &Runner{Base: base, Tries: tries, Workers: workers}
}

// config 生成第 p 组参数第 try 次运行的配置，每次运行使用独立种子
func (r *Runner) config(perm Permutation, p, try int) (optimizer.Config, error) {
	cfg := r.Base
	for i, name := range perm.Names {
		if err := cfg.Set(name, perm.Values[i]); err != nil {
			return cfg, err
		}
	}
	if _, fixed := perm.Get("sa-random-seed"); !fixed {
		cfg.RandomSeed = r.Base.RandomSeed + int64(p*r.Tries+try)
	}
	return cfg, cfg.Validate()
}

// Run 对每组参数运行 Tries 次退火并汇总
//
// 单次运行构造失败只记录在 Trial 中；参数不合法或 ctx 取消时返回错误。
func (r *Runner) Run(ctx context.Context, idx *index.Index, perms []Permutation) ([]Aggregate, error) {
	if r.Tries < 1 || r.Workers < 1 {
		return nil, apperrors.InvalidInput("runner", fmt.Sprintf("tries=%d workers=%d 必须大于0", r.Tries, r.Workers))
	}
	for p, perm := range perms {
		if _, err := r.config(perm, p, 0); err != nil {
			return nil, apperrors.InvalidInput(perm.Key(), err.Error())
		}
	}

	trials := make([][]Trial, len(perms))
	for p := range trials {
		trials[p] = make([]Trial, r.Tries)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Workers)

	for p, perm := range perms {
		for try := 0; try < r.Tries; try++ {
			p, perm, try := p, perm, try
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				cfg, _ := r.config(perm, p, try)
				trial, err := r.runOne(ctx, idx, cfg)
				trials[p][try] = trial
				return err
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	aggregates := make([]Aggregate, len(perms))
	for p, perm := range perms {
		aggregates[p] = aggregate(perm, trials[p])
		logger.Debug().
			Str("params", perm.Key()).
			Float64("avg_score", aggregates[p].AvgScore).
			Float64("best_score", aggregates[p].Best.Score).
			Msg("参数组完成")
	}
	return aggregates, nil
}

// runOne 执行一次退火；只有 ctx 取消会作为错误返回
func (r *Runner) runOne(ctx context.Context, idx *index.Index, cfg optimizer.Config) (Trial, error) {
	start := time.Now()
	annealer := optimizer.NewAnnealer(cfg)
	res, err := annealer.Solve(ctx, idx)

	if r.Metrics != nil {
		iterations := 0
		if res != nil {
			iterations = res.Iterations
		}
		r.Metrics.RecordSolve(annealer.Name(), err == nil, iterations, time.Since(start))
		if res != nil && res.Statistics != nil {
			r.Metrics.RecordMoves(annealer.Name(), res.Statistics.Accepted, res.Statistics.Rejected)
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Trial{Err: err}, err
	}
	if err != nil {
		logger.Warn().Err(err).Int64("seed", cfg.RandomSeed).Msg("退火运行失败")
		return Trial{Err: err}, nil
	}

	return Trial{
		Score:      res.Score,
		Seconds:    res.Duration.Seconds(),
		Iterations: res.Iterations,
		Solution:   res.Solution.Summary(),
	}, nil
}

// aggregate 计算平均值和最优运行，得分相同时保留较早的运行
func aggregate(perm Permutation, trials []Trial) Aggregate {
	a := Aggregate{Params: perm}
	found := false
	for _, tr := range trials {
		if tr.Err != nil {
			a.Failures++
			continue
		}
		a.Runs++
		a.AvgScore += tr.Score
		a.AvgTime += tr.Seconds
		if !found || tr.Score > a.Best.Score {
			a.Best = tr
			found = true
		}
	}
	if a.Runs > 0 {
		a.AvgScore /= float64(a.Runs)
		a.AvgTime /= float64(a.Runs)
	}
	return a
}

// WriteLines 按顺序输出汇总行
func WriteLines(w io.Writer, aggregates []Aggregate) error {
	for _, a := range aggregates {
		if a.Runs == 0 {
			continue
		}
		if _, err := fmt.Fprintln(w, a.Line()); err != nil {
			return err
		}
	}
	return nil
}
