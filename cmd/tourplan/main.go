// TourPlan 多约束游览规划求解器
// 命令行入口

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/tourplan/tourplan/internal/config"
	"github.com/tourplan/tourplan/internal/database"
	"github.com/tourplan/tourplan/internal/metrics"
	"github.com/tourplan/tourplan/internal/repository"
	apperrors "github.com/tourplan/tourplan/pkg/errors"
	"github.com/tourplan/tourplan/pkg/index"
	"github.com/tourplan/tourplan/pkg/logger"
	"github.com/tourplan/tourplan/pkg/parser"
	"github.com/tourplan/tourplan/pkg/planner/optimizer"
	"github.com/tourplan/tourplan/pkg/planner/solver"
	"github.com/tourplan/tourplan/pkg/solution"
	"github.com/tourplan/tourplan/pkg/stats"
	"github.com/tourplan/tourplan/pkg/validator"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// saUsage 退火参数说明
var saUsage = map[string]string{
	"sa-seed":         "初始填充的跳跃步长",
	"sa-random-seed":  "随机数种子",
	"sa-init-sol":     "候选排序规则 score|average-distance",
	"sa-cool-func":    "降温函数 geometric|lundy-mees",
	"sa-cool-fact":    "降温系数 (0,1)",
	"sa-initial-temp": "初始温度",
	"sa-max-iter":     "无改进的最大尝试次数",
	"sa-min-swap":     "每轮扰动最少交换的模式位置数",
	"sa-max-swap":     "每轮扰动最多交换的模式位置数",
	"sa-max-del":      "每轮扰动最多随机移除次数",
	"sa-max-ins":      "每轮扰动最多随机插入次数",
}

// options 命令行选项
type options struct {
	file        string
	solverName  string
	annealing   optimizer.Config
	solverOpts  solver.Options
	timeout     time.Duration
	skipFileLog bool
	metricsFile string
	logLevel    string
	save        bool
	showStats   bool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(apperrors.ExitInput)
	}

	opts, err := parseFlags(os.Args[1:], cfg, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(apperrors.ExitOK)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(apperrors.ExitInput)
	}

	logCfg := logger.Config{
		Level:      opts.logLevel,
		Format:     cfg.Log.Format,
		Output:     "file",
		FilePath:   cfg.Log.File,
		TimeFormat: time.RFC3339,
	}
	if logCfg.FilePath == "" {
		logCfg.FilePath = "app.log"
	}
	if opts.skipFileLog {
		logCfg.Output = "stderr"
	}
	logger.Init(logCfg)

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("commit", GitCommit).
		Msg("TourPlan 启动")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, os.Stdout); err != nil {
		logger.WithError(err).Str("code", string(apperrors.GetCode(err))).Msg("求解失败")
		os.Exit(apperrors.ExitCode(err))
	}
}

// parseFlags 解析命令行，默认值来自配置
func parseFlags(args []string, cfg *config.Config, errOut io.Writer) (*options, error) {
	annealing, err := cfg.OptimizerConfig()
	if err != nil {
		return nil, err
	}
	opts := &options{annealing: annealing}

	fs := flag.NewFlagSet("tourplan", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.StringVar(&opts.file, "file", "", "实例文件路径，支持 .gz/.zst/.lz4 (必填)")
	fs.StringVar(&opts.solverName, "solver", cfg.Solver.Name, "求解器 exhaustive|bounded|annealing")
	fs.DurationVar(&opts.timeout, "timeout", cfg.Solver.Timeout, "求解超时，到期输出当前最优解，0 表示不限制")
	fs.BoolVar(&opts.skipFileLog, "skip-file-log", false, "只输出日志到标准错误")
	fs.StringVar(&opts.metricsFile, "metrics-file", cfg.Metrics.File, "求解结束后写入Prometheus文本指标的文件")
	fs.StringVar(&opts.logLevel, "log-level", cfg.Log.Level, "日志级别")
	fs.BoolVar(&opts.save, "save", cfg.Database.Enabled, "保存结果到数据库")
	fs.BoolVar(&opts.showStats, "stats", true, "输出方案统计")
	windowPolicy := fs.String("window-policy", cfg.Solver.WindowPolicy, "时间窗口规则 start|end")
	maxBranches := fs.Int("max-branches", cfg.Solver.MaxBranches, "有界穷举每步保留的最大部分解数量")

	names := make([]string, 0, len(saUsage))
	for name := range saUsage {
		names = append(names, name)
	}
	sort.Strings(names)
	params := annealing.Params()
	saValues := make(map[string]*string, len(names))
	for _, name := range names {
		saValues[name] = fs.String(name, params[name], saUsage[name])
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.file == "" {
		return nil, apperrors.InvalidInput("file", "必须指定 --file")
	}

	var setErr error
	fs.Visit(func(f *flag.Flag) {
		if v, ok := saValues[f.Name]; ok && setErr == nil {
			setErr = opts.annealing.Set(f.Name, *v)
		}
	})
	if setErr != nil {
		return nil, apperrors.InvalidInput("sa", setErr.Error())
	}

	policy, err := solution.ParseWindowPolicy(*windowPolicy)
	if err != nil {
		return nil, apperrors.InvalidInput("window-policy", err.Error())
	}
	opts.annealing.WindowPolicy = policy
	opts.solverOpts = solver.Options{WindowPolicy: policy, MaxBranches: *maxBranches}

	if err := opts.annealing.Validate(); err != nil {
		return nil, apperrors.InvalidInput("sa", err.Error())
	}
	return opts, nil
}

// newSolver 根据名称创建求解器
func newSolver(opts *options) (solver.Solver, error) {
	switch opts.solverName {
	case "annealing", "sa":
		return optimizer.NewAnnealer(opts.annealing), nil
	case "exhaustive", "brute-force":
		return solver.NewExhaustive(opts.solverOpts), nil
	case "bounded", "clever-brute-force":
		return solver.NewBoundedExhaustive(opts.solverOpts), nil
	default:
		return nil, apperrors.InvalidInput("solver", fmt.Sprintf("未知求解器 %q", opts.solverName))
	}
}

// run 加载实例、求解、校验并输出结果
func run(ctx context.Context, cfg *config.Config, opts *options, out io.Writer) error {
	problem, err := parser.ParseFile(opts.file)
	if err != nil {
		return err
	}
	idx, err := index.New(problem)
	if err != nil {
		return err
	}

	s, err := newSolver(opts)
	if err != nil {
		return err
	}

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := s.Solve(ctx, idx)
	elapsed := time.Since(start)

	registry := metrics.GetRegistry()
	recordMetrics(registry, s.Name(), idx.Name(), result, err, elapsed)
	if opts.metricsFile != "" {
		defer func() {
			if werr := registry.WriteFile(opts.metricsFile); werr != nil {
				logger.WithError(werr).Str("path", opts.metricsFile).Msg("写入指标文件失败")
			}
		}()
	}

	if err != nil {
		interrupted := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
		if !interrupted || result == nil || result.Solution == nil {
			return err
		}
		logger.Warn().Err(err).Msg("求解被中断，输出当前最优解")
	}

	sol := result.Solution
	if conflicts := validator.Detect(sol); len(conflicts) > 0 {
		msgs := make([]string, len(conflicts))
		for i, c := range conflicts {
			msgs[i] = c.Message
		}
		return apperrors.InvalidSolution(strings.Join(msgs, "; "))
	}

	printSolution(out, idx, sol)
	if opts.showStats {
		fmt.Fprintln(out, stats.GenerateReport(stats.Analyze(sol)))
	}
	fmt.Fprintln(out, resultLine(result, elapsed))

	if opts.save {
		return saveRun(ctx, cfg, idx.Name(), s.Name(), params(opts), result)
	}
	return nil
}

// params 返回用于记录的求解参数
func params(opts *options) map[string]string {
	p := map[string]string{"solver": opts.solverName, "window-policy": opts.solverOpts.WindowPolicy.String()}
	if opts.solverName == "annealing" || opts.solverName == "sa" {
		for k, v := range opts.annealing.Params() {
			p[k] = v
		}
	} else {
		p["max-branches"] = strconv.Itoa(opts.solverOpts.MaxBranches)
	}
	return p
}

// recordMetrics 记录求解指标
func recordMetrics(r *metrics.MetricsRegistry, solverName, instance string, result *solver.Result, err error, elapsed time.Duration) {
	iterations := 0
	if result != nil {
		iterations = result.Iterations
		if result.Statistics != nil {
			r.RecordMoves(solverName, result.Statistics.Accepted, result.Statistics.Rejected)
		}
		if result.Solution != nil {
			r.SetSolutionScore(instance, result.Score)
		}
	}
	r.RecordSolve(solverName, err == nil, iterations, elapsed)
}

// printSolution 输出各路线的访问序列和时间区间
func printSolution(out io.Writer, idx *index.Index, sol *solution.Solution) {
	fmt.Fprintf(out, "实例 %s: %d 条路线, 预算 %g, 得分 %g, 费用 %g\n",
		idx.Name(), idx.TourCount(), idx.Budget(), sol.Score(), sol.Cost())
	for t := 0; t < sol.TourCount(); t++ {
		fmt.Fprintf(out, "路线 %d (模式 %v):", t, idx.Pattern(t))
		for _, id := range sol.Tour(t) {
			typ, _ := sol.TypeOf(id)
			fs, _ := sol.Filled(t, id)
			fmt.Fprintf(out, " %d:%d[%g,%g]", id, typ, fs.Start, fs.End)
		}
		fmt.Fprintln(out)
	}
}

// resultLine 返回 score;elapsedSeconds;iterations;solution，作为最后一行输出供实验脚本读取
func resultLine(result *solver.Result, elapsed time.Duration) string {
	return fmt.Sprintf("%s;%s;%d;%s",
		strconv.FormatFloat(result.Score, 'f', -1, 64),
		strconv.FormatFloat(elapsed.Seconds(), 'f', 3, 64),
		result.Iterations,
		result.Solution.Summary())
}

// saveRun 保存结果到数据库
func saveRun(ctx context.Context, cfg *config.Config, instance, solverName string, p map[string]string, result *solver.Result) error {
	// 求解超时后仍需完成写入
	ctx = context.WithoutCancel(ctx)

	db, err := database.New(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repository.NewRunRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}
	rec := repository.NewRunRecord(instance, solverName, p, result)
	if err := repo.Create(ctx, rec); err != nil {
		return err
	}
	logger.Info().Str("run_id", rec.ID.String()).Msg("结果已保存")
	return nil
}
