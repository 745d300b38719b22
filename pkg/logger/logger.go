// Package logger 提供统一的日志框架
package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stderr",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器
func Init(cfg Config) {
	once.Do(func() {
		logger = New(cfg, nil)
	})
}

// New 按配置创建独立的日志器，out 非空时覆盖 Output 设置
func New(cfg Config, out io.Writer) zerolog.Logger {
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	output := out
	if output == nil {
		output = openOutput(cfg)
	}

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: cfg.TimeFormat,
		}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// openOutput 打开日志输出目标
func openOutput(cfg Config) io.Writer {
	switch cfg.Output {
	case "stdout":
		return os.Stdout
	case "file":
		if cfg.FilePath != "" {
			f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err == nil {
				// 文件与终端同时输出，与原有 app.log 行为一致
				return zerolog.MultiLevelWriter(f, os.Stderr)
			}
		}
		return os.Stderr
	default:
		return os.Stderr
	}
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器
func Get() *zerolog.Logger {
	once.Do(func() {
		logger = New(DefaultConfig(), nil)
	})
	return &logger
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// Fatal 记录致命错误日志
func Fatal() *zerolog.Event {
	return Get().Fatal()
}

// WithError 添加错误信息
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// WithField 添加字段
func WithField(key string, value interface{}) *zerolog.Logger {
	l := Get().With().Interface(key, value).Logger()
	return &l
}

// WithFields 添加多个字段
func WithFields(fields map[string]interface{}) *zerolog.Logger {
	ctx := Get().With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	l := ctx.Logger()
	return &l
}

// SolverLogger 求解器专用日志器
type SolverLogger struct {
	base     *zerolog.Logger
	progress rate.Sometimes
}

// NewSolverLogger 创建求解器日志器
func NewSolverLogger(solver string) *SolverLogger {
	return NewSolverLoggerWith(Get(), solver)
}

// NewSolverLoggerWith 基于指定日志器创建求解器日志器
func NewSolverLoggerWith(base *zerolog.Logger, solver string) *SolverLogger {
	l := base.With().Str("component", "solver").Str("solver", solver).Logger()
	return &SolverLogger{
		base:     &l,
		progress: rate.Sometimes{Interval: time.Second},
	}
}

// StartSolve 记录求解开始
func (l *SolverLogger) StartSolve(tours, pois int, budget float64) {
	l.base.Info().
		Int("tours", tours).
		Int("pois", pois).
		Float64("budget", budget).
		Msg("开始求解")
}

// InitialSolution 记录初始解
func (l *SolverLogger) InitialSolution(score float64, placed, pool int) {
	l.base.Debug().
		Float64("score", score).
		Int("placed", placed).
		Int("pool", pool).
		Msg("初始解构造完成")
}

// Improvement 记录更优解
func (l *SolverLogger) Improvement(iteration int, score float64) {
	l.base.Debug().
		Int("iteration", iteration).
		Float64("score", score).
		Msg("发现更优解")
}

// Diversify 记录扰动
func (l *SolverLogger) Diversify(iteration, removed, swapped, inserted int) {
	l.base.Debug().
		Int("iteration", iteration).
		Int("removed", removed).
		Int("swapped", swapped).
		Int("inserted", inserted).
		Msg("执行扰动")
}

// Progress 记录进度，每秒至多一次
func (l *SolverLogger) Progress(iteration int, temperature, score float64) {
	l.progress.Do(func() {
		l.base.Debug().
			Int("iteration", iteration).
			Float64("temperature", temperature).
			Float64("score", score).
			Msg("求解进度")
	})
}

// Infeasible 记录不可行
func (l *SolverLogger) Infeasible(tour int, reason string) {
	l.base.Warn().
		Int("tour", tour).
		Str("reason", reason).
		Msg("无法构造可行解")
}

// SolveComplete 记录求解完成
func (l *SolverLogger) SolveComplete(duration time.Duration, score float64, iterations int) {
	l.base.Info().
		Dur("duration", duration).
		Float64("score", score).
		Int("iterations", iterations).
		Msg("求解完成")
}
