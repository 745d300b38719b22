package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tourplan/tourplan/internal/config"
	apperrors "github.com/tourplan/tourplan/pkg/errors"
	"github.com/tourplan/tourplan/pkg/planner/optimizer"
	"github.com/tourplan/tourplan/pkg/solution"
)

// 单路线、两个兴趣点，两点都能放下时得分 17
const instance = `1 2 100
1 1
1
1
0 0 0 0 0 0 100
1 10 0 5 10 0 50 10 1 0
2 0 10 5 7 0 50 10 0 1
`

func writeInstance(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inst.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	return cfg
}

func TestParseFlags(t *testing.T) {
	cfg := loadConfig(t)
	opts, err := parseFlags([]string{
		"--file", "x.txt",
		"--solver", "bounded",
		"--sa-cool-func", "lundy-mees",
		"--sa-max-iter", "25",
		"--window-policy", "end",
	}, cfg, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}

	if opts.solverName != "bounded" {
		t.Errorf("solverName = %v, expected bounded", opts.solverName)
	}
	if opts.annealing.Cooling != optimizer.LundyMees || opts.annealing.MaxIterations != 25 {
		t.Errorf("annealing = %+v", opts.annealing)
	}
	// 未指定的参数保持默认值
	if opts.annealing.CoolingFactor != 0.7 {
		t.Errorf("CoolingFactor = %v, expected 0.7", opts.annealing.CoolingFactor)
	}
	if opts.solverOpts.WindowPolicy != solution.EndBeforeClose || opts.annealing.WindowPolicy != solution.EndBeforeClose {
		t.Errorf("window policy not applied: %+v", opts.solverOpts)
	}
}

func TestParseFlags_Invalid(t *testing.T) {
	cfg := loadConfig(t)
	tests := []struct {
		name string
		args []string
	}{
		{name: "缺少文件", args: []string{"--solver", "annealing"}},
		{name: "降温系数越界", args: []string{"--file", "x", "--sa-cool-fact", "1.5"}},
		{name: "未知降温函数", args: []string{"--file", "x", "--sa-cool-func", "linear"}},
		{name: "未知窗口规则", args: []string{"--file", "x", "--window-policy", "later"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(tt.args, cfg, io.Discard)
			if apperrors.ExitCode(err) != apperrors.ExitInput {
				t.Errorf("parseFlags() error = %v, expected input error", err)
			}
		})
	}
}

func TestRun_Solvers(t *testing.T) {
	cfg := loadConfig(t)
	path := writeInstance(t, instance)

	for _, name := range []string{"exhaustive", "bounded", "annealing"} {
		t.Run(name, func(t *testing.T) {
			opts, err := parseFlags([]string{"--file", path, "--solver", name, "--stats=false"}, cfg, io.Discard)
			if err != nil {
				t.Fatalf("parseFlags() error = %v", err)
			}

			var out strings.Builder
			if err := run(context.Background(), cfg, opts, &out); err != nil {
				t.Fatalf("run() error = %v", err)
			}

			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			last := strings.Split(lines[len(lines)-1], ";")
			if len(last) != 4 {
				t.Fatalf("last line = %q, expected 4 fields", lines[len(lines)-1])
			}
			if last[0] != "17" {
				t.Errorf("score = %v, expected 17", last[0])
			}
			if last[3] != "[1:1 2:2]" {
				t.Errorf("solution = %v, expected [1:1 2:2]", last[3])
			}
		})
	}
}

func TestRun_MetricsFile(t *testing.T) {
	cfg := loadConfig(t)
	metricsPath := filepath.Join(t.TempDir(), "metrics.prom")
	opts, err := parseFlags([]string{
		"--file", writeInstance(t, instance),
		"--solver", "exhaustive",
		"--metrics-file", metricsPath,
	}, cfg, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}

	var out strings.Builder
	if err := run(context.Background(), cfg, opts, &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(out.String(), "方案统计报告") {
		t.Error("stats report missing from output")
	}

	data, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), `tourplan_solution_score{instance="inst"} 17`) {
		t.Errorf("metrics file = %s", data)
	}
}

func TestRun_Errors(t *testing.T) {
	cfg := loadConfig(t)

	// 模式要求类别 2 出现两次，但上限为 1
	unsatisfiable := strings.Replace(instance, "1\n1\n0 0", "2\n2 2\n0 0", 1)

	tests := []struct {
		name     string
		content  string
		solver   string
		expected int
	}{
		{name: "格式错误", content: "1 2\n", solver: "annealing", expected: apperrors.ExitInput},
		{name: "未知求解器", content: instance, solver: "greedy", expected: apperrors.ExitInput},
		{name: "模式不可满足", content: unsatisfiable, solver: "annealing", expected: apperrors.ExitInfeasible},
		{name: "穷举无可行解", content: unsatisfiable, solver: "exhaustive", expected: apperrors.ExitInfeasible},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseFlags([]string{"--file", writeInstance(t, tt.content), "--solver", tt.solver}, cfg, io.Discard)
			if err != nil {
				t.Fatalf("parseFlags() error = %v", err)
			}
			err = run(context.Background(), cfg, opts, io.Discard)
			if got := apperrors.ExitCode(err); got != tt.expected {
				t.Errorf("ExitCode(%v) = %d, expected %d", err, got, tt.expected)
			}
		})
	}
}
