// Package metrics 提供Prometheus文本格式的求解指标
package metrics

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// MetricsRegistry 指标注册表
type MetricsRegistry struct {
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
	mu         sync.RWMutex
}

// Counter 计数器
type Counter struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Gauge 仪表盘
type Gauge struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Histogram 直方图
type Histogram struct {
	Name    string
	Help    string
	Labels  []string
	Buckets []float64
	counts  map[string][]int
	sums    map[string]float64
	mu      sync.RWMutex
}

// 指标名称
const (
	SolverRuns       = "tourplan_solver_runs_total"
	SolverIterations = "tourplan_solver_iterations_total"
	SolverMoves      = "tourplan_solver_moves_total"
	SolutionScore    = "tourplan_solution_score"
	SolveDuration    = "tourplan_solve_duration_seconds"
	DBQueries        = "tourplan_db_queries_total"
	DBQueryDuration  = "tourplan_db_query_duration_seconds"
)

var (
	registry *MetricsRegistry
	once     sync.Once
)

// GetRegistry 获取全局注册表
func GetRegistry() *MetricsRegistry {
	once.Do(func() {
		registry = NewRegistry()
	})
	return registry
}

// NewRegistry 创建带默认指标的注册表
func NewRegistry() *MetricsRegistry {
	r := &MetricsRegistry{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
	}
	r.initDefaultMetrics()
	return r
}

// initDefaultMetrics 初始化默认指标
func (r *MetricsRegistry) initDefaultMetrics() {
	// 求解次数
	r.NewCounter(SolverRuns, "求解次数", []string{"solver", "status"})

	// 迭代次数
	r.NewCounter(SolverIterations, "求解器迭代次数", []string{"solver"})

	// 退火移动
	r.NewCounter(SolverMoves, "退火移动次数", []string{"solver", "result"})

	// 最优得分
	r.NewGauge(SolutionScore, "最优解得分", []string{"instance"})

	// 求解耗时
	r.NewHistogram(SolveDuration, "求解耗时",
		[]string{"solver"},
		[]float64{0.01, 0.1, 0.5, 1.0, 5.0, 10.0, 30.0, 60.0, 300.0})

	// 结果库查询
	r.NewCounter(DBQueries, "结果库查询次数", []string{"op", "status"})
	r.NewHistogram(DBQueryDuration, "结果库查询耗时",
		[]string{"op"},
		[]float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0})
}

// NewCounter 创建计数器
func (r *MetricsRegistry) NewCounter(name, help string, labels []string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	counter := &Counter{
		Name:   name,
		Help:   help,
		Labels: labels,
		values: make(map[string]float64),
	}
	r.counters[name] = counter
	return counter
}

// NewGauge 创建仪表盘
func (r *MetricsRegistry) NewGauge(name, help string, labels []string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()

	gauge := &Gauge{
		Name:   name,
		Help:   help,
		Labels: labels,
		values: make(map[string]float64),
	}
	r.gauges[name] = gauge
	return gauge
}

// NewHistogram 创建直方图
func (r *MetricsRegistry) NewHistogram(name, help string, labels []string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	histogram := &Histogram{
		Name:    name,
		Help:    help,
		Labels:  labels,
		Buckets: buckets,
		counts:  make(map[string][]int),
		sums:    make(map[string]float64),
	}
	r.histograms[name] = histogram
	return histogram
}

// GetCounter 获取计数器
func (r *MetricsRegistry) GetCounter(name string) *Counter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[name]
}

// GetGauge 获取仪表盘
func (r *MetricsRegistry) GetGauge(name string) *Gauge {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gauges[name]
}

// GetHistogram 获取直方图
func (r *MetricsRegistry) GetHistogram(name string) *Histogram {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.histograms[name]
}

// Inc 增加计数
func (c *Counter) Inc(labelValues ...string) {
	c.Add(1, labelValues...)
}

// Add 增加指定值
func (c *Counter) Add(value float64, labelValues ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[labelKey(labelValues)] += value
}

// Value 返回当前值
func (c *Counter) Value(labelValues ...string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[labelKey(labelValues)]
}

// Set 设置值
func (g *Gauge) Set(value float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[labelKey(labelValues)] = value
}

// Value 返回当前值
func (g *Gauge) Value(labelValues ...string) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.values[labelKey(labelValues)]
}

// Observe 记录观测值
func (h *Histogram) Observe(value float64, labelValues ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := labelKey(labelValues)
	if _, exists := h.counts[key]; !exists {
		h.counts[key] = make([]int, len(h.Buckets)+1)
	}

	// 落入第一个不小于观测值的桶，输出时再累加
	i := sort.SearchFloat64s(h.Buckets, value)
	h.counts[key][i]++
	h.sums[key] += value
}

// labelKey 生成标签键
func labelKey(labels []string) string {
	return strings.Join(labels, ",")
}

// WriteText 以Prometheus文本格式输出全部指标，按名称和标签排序
func (r *MetricsRegistry) WriteText(w io.Writer) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder

	// 输出计数器
	for _, name := range sortedKeys(r.counters) {
		counter := r.counters[name]
		fmt.Fprintf(&b, "# HELP %s %s\n", counter.Name, counter.Help)
		fmt.Fprintf(&b, "# TYPE %s counter\n", counter.Name)

		counter.mu.RLock()
		for _, key := range sortedKeys(counter.values) {
			writeSample(&b, counter.Name, counter.Labels, key, "", counter.values[key])
		}
		counter.mu.RUnlock()
	}

	// 输出仪表盘
	for _, name := range sortedKeys(r.gauges) {
		gauge := r.gauges[name]
		fmt.Fprintf(&b, "# HELP %s %s\n", gauge.Name, gauge.Help)
		fmt.Fprintf(&b, "# TYPE %s gauge\n", gauge.Name)

		gauge.mu.RLock()
		for _, key := range sortedKeys(gauge.values) {
			writeSample(&b, gauge.Name, gauge.Labels, key, "", gauge.values[key])
		}
		gauge.mu.RUnlock()
	}

	// 输出直方图
	for _, name := range sortedKeys(r.histograms) {
		histogram := r.histograms[name]
		fmt.Fprintf(&b, "# HELP %s %s\n", histogram.Name, histogram.Help)
		fmt.Fprintf(&b, "# TYPE %s histogram\n", histogram.Name)

		histogram.mu.RLock()
		for _, key := range sortedKeys(histogram.counts) {
			counts := histogram.counts[key]
			cumulative := 0
			for i, bucket := range histogram.Buckets {
				cumulative += counts[i]
				writeSample(&b, histogram.Name+"_bucket", histogram.Labels, key,
					fmt.Sprintf("le=\"%g\"", bucket), float64(cumulative))
			}
			cumulative += counts[len(histogram.Buckets)]
			writeSample(&b, histogram.Name+"_bucket", histogram.Labels, key, "le=\"+Inf\"", float64(cumulative))
			writeSample(&b, histogram.Name+"_sum", histogram.Labels, key, "", histogram.sums[key])
			writeSample(&b, histogram.Name+"_count", histogram.Labels, key, "", float64(cumulative))
		}
		histogram.mu.RUnlock()
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteFile 将指标写入文件
func (r *MetricsRegistry) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.WriteText(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeSample 输出一行样本
func writeSample(b *strings.Builder, name string, labels []string, key, extra string, value float64) {
	pairs := formatLabels(labels, key)
	if extra != "" {
		if pairs != "" {
			pairs += ","
		}
		pairs += extra
	}
	if pairs == "" {
		fmt.Fprintf(b, "%s %g\n", name, value)
		return
	}
	fmt.Fprintf(b, "%s{%s} %g\n", name, pairs, value)
}

// formatLabels 格式化标签
func formatLabels(names []string, key string) string {
	if len(names) == 0 {
		return ""
	}
	vals := strings.Split(key, ",")
	parts := make([]string, len(names))
	for i, name := range names {
		val := ""
		if i < len(vals) {
			val = vals[i]
		}
		parts[i] = fmt.Sprintf("%s=%q", name, val)
	}
	return strings.Join(parts, ",")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RecordSolve 记录一次求解
func (r *MetricsRegistry) RecordSolve(solverName string, success bool, iterations int, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}

	if counter := r.GetCounter(SolverRuns); counter != nil {
		counter.Inc(solverName, status)
	}
	if counter := r.GetCounter(SolverIterations); counter != nil {
		counter.Add(float64(iterations), solverName)
	}
	if histogram := r.GetHistogram(SolveDuration); histogram != nil {
		histogram.Observe(duration.Seconds(), solverName)
	}
}

// RecordMoves 记录退火移动的接受和拒绝次数
func (r *MetricsRegistry) RecordMoves(solverName string, accepted, rejected int) {
	counter := r.GetCounter(SolverMoves)
	if counter == nil {
		return
	}
	counter.Add(float64(accepted), solverName, "accepted")
	counter.Add(float64(rejected), solverName, "rejected")
}

// SetSolutionScore 设置最优解得分
func (r *MetricsRegistry) SetSolutionScore(instance string, score float64) {
	if gauge := r.GetGauge(SolutionScore); gauge != nil {
		gauge.Set(score, instance)
	}
}

// RecordQuery 记录一次结果库操作
func (r *MetricsRegistry) RecordQuery(op string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	if counter := r.GetCounter(DBQueries); counter != nil {
		counter.Inc(op, status)
	}
	if histogram := r.GetHistogram(DBQueryDuration); histogram != nil {
		histogram.Observe(duration.Seconds(), op)
	}
}
