// Package optimizer 提供模拟退火游览规划算法
package optimizer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tourplan/tourplan/pkg/planner/solver"
	"github.com/tourplan/tourplan/pkg/solution"
)

// CoolingFunc 降温函数
type CoolingFunc int

const (
	// Geometric 几何降温 T ← T·factor^k
	Geometric CoolingFunc = iota
	// LundyMees Lundy-Mees 降温 T ← T/(1+factor·T)
	LundyMees
)

// String 实现 Stringer
func (c CoolingFunc) String() string {
	if c == LundyMees {
		return "lundy-mees"
	}
	return "geometric"
}

// ParseCoolingFunc 解析降温函数名称
func ParseCoolingFunc(s string) (CoolingFunc, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "geometric", "geometrical":
		return Geometric, nil
	case "lundy-mees", "lundymees", "lundy":
		return LundyMees, nil
	default:
		return Geometric, fmt.Errorf("未知的降温函数: %s", s)
	}
}

// ParseCriterion 解析候选排序规则
func ParseCriterion(s string) (solver.Criterion, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "score":
		return solver.ByScore, nil
	case "average-distance", "averagedistance", "distance":
		return solver.ByAverageDistance, nil
	default:
		return solver.ByScore, fmt.Errorf("未知的排序规则: %s", s)
	}
}

// Config 模拟退火配置
type Config struct {
	Stride        int                   `json:"stride"`         // 初始填充的跳跃步长
	RandomSeed    int64                 `json:"random_seed"`    // 随机数种子，0 视为 1
	Criterion     solver.Criterion      `json:"criterion"`      // 候选排序规则
	Cooling       CoolingFunc           `json:"cooling"`        // 降温函数
	CoolingFactor float64               `json:"cooling_factor"` // 降温系数 (0,1)
	InitialTemp   float64               `json:"initial_temp"`   // 初始温度
	MaxIterations int                   `json:"max_iterations"` // 无改进的最大尝试次数，超过后扰动
	MinSwaps      int                   `json:"min_swaps"`      // 每条路线每轮扰动最少交换的模式位置数
	MaxSwaps      int                   `json:"max_swaps"`      // 每条路线每轮扰动最多交换的模式位置数
	MaxRemovals   int                   `json:"max_removals"`   // 每轮扰动最多随机移除次数
	MaxInsertions int                   `json:"max_insertions"` // 每轮扰动最多随机插入次数
	Precision     int                   `json:"precision"`      // 温度比较的小数位数
	MaxBacktracks int                   `json:"max_backtracks"` // 初始构造的回溯预算
	WindowPolicy  solution.WindowPolicy `json:"window_policy"`  // 时间窗口规则
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Stride:        3,
		RandomSeed:    1,
		Criterion:     solver.ByScore,
		Cooling:       Geometric,
		CoolingFactor: 0.7,
		InitialTemp:   100,
		MaxIterations: 10,
		MinSwaps:      1,
		MaxSwaps:      4,
		MaxRemovals:   12,
		MaxInsertions: 6,
		Precision:     6,
		MaxBacktracks: 100000,
		WindowPolicy:  solution.StartBeforeClose,
	}
}

// Validate 校验配置
func (c Config) Validate() error {
	switch {
	case c.Stride < 1:
		return fmt.Errorf("stride 必须大于0: %d", c.Stride)
	case c.CoolingFactor <= 0 || c.CoolingFactor >= 1:
		return fmt.Errorf("cooling factor 必须在 (0,1) 内: %g", c.CoolingFactor)
	case c.InitialTemp <= 0:
		return fmt.Errorf("initial temperature 必须大于0: %g", c.InitialTemp)
	case c.MaxIterations < 0:
		return fmt.Errorf("max iterations 不能为负数: %d", c.MaxIterations)
	case c.MinSwaps < 0 || c.MaxSwaps < c.MinSwaps:
		return fmt.Errorf("swap 范围不合法: [%d,%d]", c.MinSwaps, c.MaxSwaps)
	case c.MaxRemovals < 0 || c.MaxInsertions < 0:
		return fmt.Errorf("随机移除/插入次数不能为负数")
	case c.Precision < 0 || c.Precision > 15:
		return fmt.Errorf("precision 必须在 [0,15] 内: %d", c.Precision)
	case c.MaxBacktracks < 1:
		return fmt.Errorf("backtrack 预算必须大于0: %d", c.MaxBacktracks)
	}
	return nil
}

// Params 返回参数的文本表示，用于日志和实验记录
func (c Config) Params() map[string]string {
	return map[string]string{
		"sa-seed":         fmt.Sprint(c.Stride),
		"sa-random-seed":  fmt.Sprint(c.RandomSeed),
		"sa-init-sol":     c.Criterion.String(),
		"sa-cool-func":    c.Cooling.String(),
		"sa-cool-fact":    fmt.Sprint(c.CoolingFactor),
		"sa-initial-temp": fmt.Sprint(c.InitialTemp),
		"sa-max-iter":     fmt.Sprint(c.MaxIterations),
		"sa-min-swap":     fmt.Sprint(c.MinSwaps),
		"sa-max-swap":     fmt.Sprint(c.MaxSwaps),
		"sa-max-del":      fmt.Sprint(c.MaxRemovals),
		"sa-max-ins":      fmt.Sprint(c.MaxInsertions),
	}
}

// Set 按参数名设置单个字段，参数名与 Params 的键一致
func (c *Config) Set(name, value string) error {
	value = strings.TrimSpace(value)
	var err error
	switch name {
	case "sa-seed":
		c.Stride, err = strconv.Atoi(value)
	case "sa-random-seed":
		c.RandomSeed, err = strconv.ParseInt(value, 10, 64)
	case "sa-init-sol":
		c.Criterion, err = ParseCriterion(value)
	case "sa-cool-func":
		c.Cooling, err = ParseCoolingFunc(value)
	case "sa-cool-fact":
		c.CoolingFactor, err = strconv.ParseFloat(value, 64)
	case "sa-initial-temp":
		c.InitialTemp, err = strconv.ParseFloat(value, 64)
	case "sa-max-iter":
		c.MaxIterations, err = strconv.Atoi(value)
	case "sa-min-swap":
		c.MinSwaps, err = strconv.Atoi(value)
	case "sa-max-swap":
		c.MaxSwaps, err = strconv.Atoi(value)
	case "sa-max-del":
		c.MaxRemovals, err = strconv.Atoi(value)
	case "sa-max-ins":
		c.MaxInsertions, err = strconv.Atoi(value)
	default:
		return fmt.Errorf("未知参数: %s", name)
	}
	if err != nil {
		return fmt.Errorf("参数 %s 的值 %q 不合法: %w", name, value, err)
	}
	return nil
}
