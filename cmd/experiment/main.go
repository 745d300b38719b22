// TourPlan 参数网格实验
// 对单个实例按网格批量运行模拟退火并汇总

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tourplan/tourplan/internal/config"
	"github.com/tourplan/tourplan/internal/database"
	"github.com/tourplan/tourplan/internal/experiment"
	"github.com/tourplan/tourplan/internal/metrics"
	"github.com/tourplan/tourplan/internal/repository"
	apperrors "github.com/tourplan/tourplan/pkg/errors"
	"github.com/tourplan/tourplan/pkg/index"
	"github.com/tourplan/tourplan/pkg/logger"
	"github.com/tourplan/tourplan/pkg/parser"
)

// options 命令行选项
type options struct {
	file        string
	grid        string
	output      string
	tries       int
	workers     int
	save        bool
	metricsFile string
	logLevel    string
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

	logger.Init(logger.Config{
		Level:      opts.logLevel,
		Format:     cfg.Log.Format,
		Output:     "stderr",
		TimeFormat: time.RFC3339,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts); err != nil {
		logger.WithError(err).Str("code", string(apperrors.GetCode(err))).Msg("实验失败")
		os.Exit(apperrors.ExitCode(err))
	}
}

// parseFlags 解析命令行
func parseFlags(args []string, cfg *config.Config, errOut io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("experiment", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.StringVar(&opts.file, "file", "", "实例文件路径 (必填)")
	fs.StringVar(&opts.grid, "grid", "", "参数网格文件 (必填)")
	fs.StringVar(&opts.output, "output", "", "汇总输出文件，为空时输出到标准输出")
	fs.IntVar(&opts.tries, "tries", cfg.Experiment.Tries, "每组参数的运行次数")
	fs.IntVar(&opts.workers, "workers", cfg.Experiment.Workers, "并发运行数")
	fs.BoolVar(&opts.save, "save", cfg.Database.Enabled, "保存每组参数的最优结果到数据库")
	fs.StringVar(&opts.metricsFile, "metrics-file", cfg.Metrics.File, "写入Prometheus文本指标的文件")
	fs.StringVar(&opts.logLevel, "log-level", cfg.Log.Level, "日志级别")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.file == "" || opts.grid == "" {
		return nil, apperrors.InvalidInput("file", "必须指定 --file 和 --grid")
	}
	return opts, nil
}

// run 展开网格、执行实验并输出汇总
func run(ctx context.Context, cfg *config.Config, opts *options) error {
	base, err := cfg.OptimizerConfig()
	if err != nil {
		return apperrors.InvalidInput("annealing", err.Error())
	}

	problem, err := parser.ParseFile(opts.file)
	if err != nil {
		return err
	}
	idx, err := index.New(problem)
	if err != nil {
		return err
	}

	gf, err := os.Open(opts.grid)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "无法打开网格文件")
	}
	grid, err := experiment.ParseGrid(gf)
	gf.Close()
	if err != nil {
		return err
	}
	perms := experiment.Expand(grid)
	logger.Info().
		Str("instance", idx.Name()).
		Int("permutations", len(perms)).
		Int("tries", opts.tries).
		Int("workers", opts.workers).
		Msg("开始实验")

	runner := experiment.NewRunner(base, opts.tries, opts.workers)
	runner.Metrics = metrics.GetRegistry()

	start := time.Now()
	aggregates, err := runner.Run(ctx, idx, perms)
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if opts.output != "" {
		f, err := os.OpenFile(opts.output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "无法打开输出文件")
		}
		defer f.Close()
		out = f
	}
	if err := experiment.WriteLines(out, aggregates); err != nil {
		return err
	}
	logger.Info().Dur("duration", time.Since(start)).Msg("实验完成")

	if opts.metricsFile != "" {
		if err := runner.Metrics.WriteFile(opts.metricsFile); err != nil {
			logger.WithError(err).Msg("写入指标文件失败")
		}
	}
	if opts.save {
		return saveBest(ctx, cfg, idx.Name(), aggregates)
	}
	return nil
}

// saveBest 保存每组参数的最优运行
func saveBest(ctx context.Context, cfg *config.Config, instance string, aggregates []experiment.Aggregate) error {
	db, err := database.New(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repository.NewRunRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}

	return db.Transaction(ctx, func(tx *sql.Tx) error {
		txRepo := repository.NewRunRepository(tx)
		for _, a := range aggregates {
			if a.Runs == 0 {
				continue
			}
			rec := &repository.RunRecord{
				Instance:   instance,
				Solver:     "annealing",
				Params:     a.Params.Map(),
				Score:      a.Best.Score,
				Valid:      true,
				Iterations: a.Best.Iterations,
				DurationMS: time.Duration(a.Best.Seconds * float64(time.Second)).Milliseconds(),
				Solution:   a.Best.Solution,
			}
			if err := txRepo.Create(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}
