package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRecordSolve(t *testing.T) {
	r := NewRegistry()
	r.RecordSolve("annealing", true, 120, 2*time.Second)
	r.RecordSolve("annealing", false, 30, time.Second)

	runs := r.GetCounter(SolverRuns)
	if got := runs.Value("annealing", "success"); got != 1 {
		t.Errorf("success runs = %v, expected 1", got)
	}
	if got := runs.Value("annealing", "failure"); got != 1 {
		t.Errorf("failure runs = %v, expected 1", got)
	}
	if got := r.GetCounter(SolverIterations).Value("annealing"); got != 150 {
		t.Errorf("iterations = %v, expected 150", got)
	}
}

func TestRecordQuery(t *testing.T) {
	r := NewRegistry()
	r.RecordQuery("exec", true, 20*time.Millisecond)
	r.RecordQuery("exec", false, time.Millisecond)
	r.RecordQuery("query", true, 2*time.Second)

	queries := r.GetCounter(DBQueries)
	if got := queries.Value("exec", "success"); got != 1 {
		t.Errorf("exec success = %v, expected 1", got)
	}
	if got := queries.Value("exec", "failure"); got != 1 {
		t.Errorf("exec failure = %v, expected 1", got)
	}

	var b strings.Builder
	if err := r.WriteText(&b); err != nil {
		t.Fatalf("WriteText() error = %v", err)
	}
	for _, line := range []string{
		`tourplan_db_query_duration_seconds_bucket{op="exec",le="0.05"} 2`,
		`tourplan_db_query_duration_seconds_bucket{op="query",le="1"} 0`,
		`tourplan_db_query_duration_seconds_count{op="query"} 1`,
	} {
		if !strings.Contains(b.String(), line) {
			t.Errorf("WriteText() missing %q", line)
		}
	}
}

func TestRecordMoves(t *testing.T) {
	r := NewRegistry()
	r.RecordMoves("annealing", 7, 3)
	r.RecordMoves("annealing", 1, 0)

	moves := r.GetCounter(SolverMoves)
	if got := moves.Value("annealing", "accepted"); got != 8 {
		t.Errorf("accepted = %v, expected 8", got)
	}
	if got := moves.Value("annealing", "rejected"); got != 3 {
		t.Errorf("rejected = %v, expected 3", got)
	}
}

func TestWriteText(t *testing.T) {
	r := NewRegistry()
	r.SetSolutionScore("pr01", 308)
	r.RecordSolve("bounded", true, 10, 300*time.Millisecond)

	var b strings.Builder
	if err := r.WriteText(&b); err != nil {
		t.Fatalf("WriteText() error = %v", err)
	}
	out := b.String()

	expected := []string{
		"# TYPE tourplan_solver_runs_total counter",
		`tourplan_solver_runs_total{solver="bounded",status="success"} 1`,
		`tourplan_solution_score{instance="pr01"} 308`,
		`tourplan_solve_duration_seconds_bucket{solver="bounded",le="0.1"} 0`,
		`tourplan_solve_duration_seconds_bucket{solver="bounded",le="0.5"} 1`,
		`tourplan_solve_duration_seconds_bucket{solver="bounded",le="+Inf"} 1`,
		`tourplan_solve_duration_seconds_count{solver="bounded"} 1`,
	}
	for _, line := range expected {
		if !strings.Contains(out, line) {
			t.Errorf("WriteText() missing %q\n%s", line, out)
		}
	}

	// 输出顺序稳定
	var again strings.Builder
	r.WriteText(&again)
	if again.String() != out {
		t.Error("WriteText() output is not deterministic")
	}
}

func TestWriteFile(t *testing.T) {
	r := NewRegistry()
	r.SetSolutionScore("pr02", 12.5)

	path := filepath.Join(t.TempDir(), "metrics.prom")
	if err := r.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), `tourplan_solution_score{instance="pr02"} 12.5`) {
		t.Errorf("metrics file = %s", data)
	}
}

func TestGetRegistry_Singleton(t *testing.T) {
	if GetRegistry() != GetRegistry() {
		t.Error("GetRegistry() returned different registries")
	}
}
