// Package config 提供配置管理
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/tourplan/tourplan/pkg/planner/optimizer"
	"github.com/tourplan/tourplan/pkg/planner/solver"
	"github.com/tourplan/tourplan/pkg/solution"
)

// envPrefix 环境变量前缀
const envPrefix = "TOURPLAN_"

// Config 应用配置
type Config struct {
	App        AppConfig        `yaml:"app"`
	Log        LogConfig        `yaml:"log"`
	Solver     SolverConfig     `yaml:"solver"`
	Annealing  AnnealingConfig  `yaml:"annealing"`
	Database   DatabaseConfig   `yaml:"database"`
	Experiment ExperimentConfig `yaml:"experiment"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name string `yaml:"name"`
	Env  string `yaml:"env"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json/console
	File   string `yaml:"file"`   // 为空时只输出到标准错误
}

// SolverConfig 求解器选择与公共参数
type SolverConfig struct {
	Name         string        `yaml:"name"` // exhaustive/bounded/annealing
	Timeout      time.Duration `yaml:"timeout"`
	WindowPolicy string        `yaml:"window_policy"` // start/end
	MaxBranches  int           `yaml:"max_branches"`
}

// AnnealingConfig 模拟退火参数
type AnnealingConfig struct {
	Seed          int     `yaml:"seed"`
	RandomSeed    int64   `yaml:"random_seed"`
	InitSolution  string  `yaml:"init_solution"` // score/average-distance
	CoolFunc      string  `yaml:"cool_func"`     // geometric/lundy-mees
	CoolFactor    float64 `yaml:"cool_factor"`
	InitialTemp   float64 `yaml:"initial_temp"`
	MaxIter       int     `yaml:"max_iter"`
	MinSwap       int     `yaml:"min_swap"`
	MaxSwap       int     `yaml:"max_swap"`
	MaxDelete     int     `yaml:"max_delete"`
	MaxInsert     int     `yaml:"max_insert"`
	Precision     int     `yaml:"precision"`
	MaxBacktracks int     `yaml:"max_backtracks"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	SlowQuery       time.Duration `yaml:"slow_query"` // 超过该耗时的查询记录警告
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// ExperimentConfig 批量实验配置
type ExperimentConfig struct {
	Workers int `yaml:"workers"`
	Tries   int `yaml:"tries"`
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	File    string `yaml:"file"`
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	defaults := optimizer.DefaultConfig()
	cfg := &Config{
		App: AppConfig{
			Name: getEnv("APP_NAME", "tourplan"),
			Env:  getEnv("APP_ENV", "development"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
			File:   getEnv("LOG_FILE", ""),
		},
		Solver: SolverConfig{
			Name:         getEnv("SOLVER", "annealing"),
			Timeout:      getEnvDuration("TIMEOUT", 0),
			WindowPolicy: getEnv("WINDOW_POLICY", "start"),
			MaxBranches:  getEnvInt("BOUNDED_MAX_BRANCHES", solver.DefaultOptions().MaxBranches),
		},
		Annealing: AnnealingConfig{
			Seed:          getEnvInt("SA_SEED", defaults.Stride),
			RandomSeed:    getEnvInt64("SA_RANDOM_SEED", defaults.RandomSeed),
			InitSolution:  getEnv("SA_INIT_SOL", defaults.Criterion.String()),
			CoolFunc:      getEnv("SA_COOL_FUNC", defaults.Cooling.String()),
			CoolFactor:    getEnvFloat("SA_COOL_FACT", defaults.CoolingFactor),
			InitialTemp:   getEnvFloat("SA_INITIAL_TEMP", defaults.InitialTemp),
			MaxIter:       getEnvInt("SA_MAX_ITER", defaults.MaxIterations),
			MinSwap:       getEnvInt("SA_MIN_SWAP", defaults.MinSwaps),
			MaxSwap:       getEnvInt("SA_MAX_SWAP", defaults.MaxSwaps),
			MaxDelete:     getEnvInt("SA_MAX_DEL", defaults.MaxRemovals),
			MaxInsert:     getEnvInt("SA_MAX_INS", defaults.MaxInsertions),
			Precision:     getEnvInt("SA_PRECISION", defaults.Precision),
			MaxBacktracks: getEnvInt("SA_MAX_BACKTRACKS", defaults.MaxBacktracks),
		},
		Database: DatabaseConfig{
			Enabled:         getEnvBool("DB_ENABLED", false),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "tourplan"),
			User:            getEnv("DB_USER", "tourplan"),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnectTimeout:  getEnvDuration("DB_CONNECT_TIMEOUT", 5*time.Second),
			SlowQuery:       getEnvDuration("DB_SLOW_QUERY", 100*time.Millisecond),
		},
		Experiment: ExperimentConfig{
			Workers: getEnvInt("EXPERIMENT_WORKERS", 4),
			Tries:   getEnvInt("EXPERIMENT_TRIES", 10),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			File:    getEnv("METRICS_FILE", ""),
		},
	}

	if _, err := solution.ParseWindowPolicy(cfg.Solver.WindowPolicy); err != nil {
		return nil, err
	}
	if cfg.Experiment.Workers < 1 {
		return nil, fmt.Errorf("EXPERIMENT_WORKERS 必须大于0: %d", cfg.Experiment.Workers)
	}
	return cfg, nil
}

// OptimizerConfig 转换为模拟退火配置
func (c *Config) OptimizerConfig() (optimizer.Config, error) {
	a := c.Annealing
	criterion, err := optimizer.ParseCriterion(a.InitSolution)
	if err != nil {
		return optimizer.Config{}, err
	}
	cooling, err := optimizer.ParseCoolingFunc(a.CoolFunc)
	if err != nil {
		return optimizer.Config{}, err
	}
	policy, err := solution.ParseWindowPolicy(c.Solver.WindowPolicy)
	if err != nil {
		return optimizer.Config{}, err
	}

	oc := optimizer.Config{
		Stride:        a.Seed,
		RandomSeed:    a.RandomSeed,
		Criterion:     criterion,
		Cooling:       cooling,
		CoolingFactor: a.CoolFactor,
		InitialTemp:   a.InitialTemp,
		MaxIterations: a.MaxIter,
		MinSwaps:      a.MinSwap,
		MaxSwaps:      a.MaxSwap,
		MaxRemovals:   a.MaxDelete,
		MaxInsertions: a.MaxInsert,
		Precision:     a.Precision,
		MaxBacktracks: a.MaxBacktracks,
		WindowPolicy:  policy,
	}
	return oc, oc.Validate()
}

// SolverOptions 转换为穷举求解器配置
func (c *Config) SolverOptions() (solver.Options, error) {
	policy, err := solution.ParseWindowPolicy(c.Solver.WindowPolicy)
	if err != nil {
		return solver.Options{}, err
	}
	return solver.Options{WindowPolicy: policy, MaxBranches: c.Solver.MaxBranches}, nil
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// 辅助函数
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(envPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(envPrefix + key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(envPrefix + key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(envPrefix + key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(envPrefix + key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(envPrefix + key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
