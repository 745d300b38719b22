package optimizer

import (
	"context"
	"math/rand"
	"time"

	apperrors "github.com/tourplan/tourplan/pkg/errors"
	"github.com/tourplan/tourplan/pkg/index"
	"github.com/tourplan/tourplan/pkg/logger"
	"github.com/tourplan/tourplan/pkg/planner/solver"
	"github.com/tourplan/tourplan/pkg/solution"
)

// Annealer 模拟退火求解器
type Annealer struct {
	config Config
	logger *logger.SolverLogger
}

// NewAnnealer 创建模拟退火求解器
func NewAnnealer(config Config) *Annealer {
	return &Annealer{
		config: config,
		logger: logger.NewSolverLogger("annealing"),
	}
}

// Name 返回求解器名称
func (a *Annealer) Name() string {
	return "annealing"
}

// Config 返回配置
func (a *Annealer) Config() Config {
	return a.config
}

// run 单次求解的可变状态
type run struct {
	cfg    Config
	idx    *index.Index
	rng    *rand.Rand
	logger *logger.SolverLogger

	cur    *solution.Solution
	best   *solution.Solution
	pool   []int // 未放置的兴趣点 Q
	pivots pivots
	stats  *solver.Statistics

	iterations int
	steps      int // 已完成的温度步
	streak     int // 连续无改进的尝试次数
}

// newRun 创建求解状态
func newRun(cfg Config, idx *index.Index, log *logger.SolverLogger) *run {
	seed := cfg.RandomSeed
	if seed == 0 {
		seed = 1
	}
	return &run{
		cfg:    cfg,
		idx:    idx,
		rng:    rand.New(rand.NewSource(seed)),
		logger: log,
		pivots: newPivots(idx, cfg.Criterion),
		stats:  &solver.Statistics{},
	}
}

// Solve 构造初始解并执行模拟退火
//
// ctx 在每个温度步之间检查；取消时返回当前最优解和 ctx 的错误。
func (a *Annealer) Solve(ctx context.Context, idx *index.Index) (*solver.Result, error) {
	start := time.Now()
	if err := a.config.Validate(); err != nil {
		return nil, apperrors.InvalidInput("annealing", err.Error())
	}
	a.logger.StartSolve(idx.TourCount(), len(idx.IDs()), idx.Budget())

	r := newRun(a.config, idx, a.logger)
	if err := r.construct(); err != nil {
		return nil, err
	}
	r.fillInitial()
	r.best = r.cur.Clone()
	a.logger.InitialSolution(r.cur.Score(), r.cur.VisitedCount(), len(r.pool))

	err := r.anneal(ctx)

	result := &solver.Result{
		Solution:   r.best,
		Score:      r.best.Score(),
		Valid:      r.best.IsValid(),
		Iterations: r.iterations,
		Duration:   time.Since(start),
		Statistics: r.stats,
	}
	if err != nil {
		return result, err
	}
	a.logger.SolveComplete(result.Duration, result.Score, result.Iterations)
	return result, nil
}

// anneal 主循环：每个温度步遍历一次排序后的池，完成后降温
func (r *run) anneal(ctx context.Context) error {
	temperature := r.cfg.InitialTemp
	cooling := &schedule{fn: r.cfg.Cooling, factor: r.cfg.CoolingFactor, precision: r.cfg.Precision}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := r.step(ctx, temperature); err != nil {
			return err
		}
		r.steps++
		r.logger.Progress(r.iterations, temperature, r.cur.Score())

		next, ok := cooling.next(temperature)
		if !ok {
			return nil
		}
		temperature = next
	}
}

// step 执行一个温度步
//
// 按规则排序池 Q，依次用每个候选替换当前占用区间最长的非模式兴趣点。
// 接受移动或扰动后继续处理剩余候选，被替换位置在每次尝试前重新查找。
func (r *run) step(ctx context.Context, temperature float64) error {
	if len(r.pool) == 0 {
		r.miss()
		return nil
	}

	for _, b := range solver.Rank(r.idx, r.pool, r.cfg.Criterion) {
		if err := ctx.Err(); err != nil {
			return err
		}
		// 扰动或补充插入可能已把候选放回解中
		if r.cur.Contains(b) {
			continue
		}
		t, pos, ok := r.largestFilled()
		if !ok {
			r.miss()
			continue
		}
		vacated := r.cur.At(t, pos)
		vacatedType, _ := r.cur.TypeOf(vacated)

		r.iterations++
		typ := r.chooseType(b, vacatedType)
		candidate := r.cur.Clone()
		if !candidate.Swap(b, typ, pos, t) || !candidate.IsValid() {
			r.stats.Rejected++
			r.miss()
			continue
		}

		delta := candidate.Score() - r.cur.Score()
		if r.rng.Float64() >= boltzmannProbability(delta, temperature) {
			r.stats.Rejected++
			r.miss()
			continue
		}

		r.stats.Accepted++
		r.cur = candidate
		r.pool = removeID(r.pool, b)
		r.pool = append(r.pool, vacated)
		r.fill()
		if !r.recordBest() {
			r.miss()
		}
	}
	return nil
}

// miss 记录一次无改进尝试，连续次数超过阈值时扰动
func (r *run) miss() {
	r.streak++
	if r.streak <= r.cfg.MaxIterations {
		return
	}
	r.diversify()
	r.streak = 0
}

// recordBest 当前解优于最优解时更新，返回是否改进
func (r *run) recordBest() bool {
	if r.cur.Score() <= r.best.Score() || !r.cur.IsValid() {
		return false
	}
	r.best = r.cur.Clone()
	r.streak = 0
	r.stats.Improvements++
	r.logger.Improvement(r.iterations, r.best.Score())
	return true
}

// largestFilled 找出占用区间最长的非模式兴趣点
func (r *run) largestFilled() (tour, pos int, ok bool) {
	pivotIDs := r.pivots.ids()
	size := -1.0
	for t := 0; t < r.cur.TourCount(); t++ {
		for p, id := range r.cur.Tour(t) {
			if pivotIDs[id] {
				continue
			}
			fs, _ := r.cur.Filled(t, id)
			if fs.Size() > size {
				size, tour, pos, ok = fs.Size(), t, p, true
			}
		}
	}
	return tour, pos, ok
}

// chooseType 优先沿用被替换位置的类别，否则选当前计数最少的可接受类别
func (r *run) chooseType(id, vacatedType int) int {
	types := r.idx.Types(id)
	for _, typ := range types {
		if typ == vacatedType {
			return typ
		}
	}
	result := types[0]
	for _, typ := range types[1:] {
		if r.cur.TypeCount(typ) < r.cur.TypeCount(result) {
			result = typ
		}
	}
	return result
}

// fill 尽力将池中兴趣点插入空闲区间，不回溯
func (r *run) fill() int {
	inserted := 0
	remaining := r.pool[:0]
	for _, id := range r.pool {
		if solver.FirstFit(r.cur, id) {
			inserted++
			continue
		}
		remaining = append(remaining, id)
	}
	r.pool = remaining
	return inserted
}

// removeID 从切片中删除一个编号
func removeID(ids []int, id int) []int {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
