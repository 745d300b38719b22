// Package experiment 提供参数网格展开和批量退火实验
package experiment

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	apperrors "github.com/tourplan/tourplan/pkg/errors"
)

// Param 参数及其候选取值
type Param struct {
	Name   string
	Values []string
}

// Condition 参数之间的约束，如 sa-min-swap <= sa-max-swap
type Condition struct {
	Left  string
	Op    string
	Right string
}

// Grid 参数网格
type Grid struct {
	Params     []Param
	Conditions []Condition
}

var operators = map[string]bool{"<=": true, "<": true, ">=": true, ">": true, "==": true, "!=": true}

// ParseGrid 解析网格文件
//
// 每行形如 `name ~ domain:[a,b,c]` 或 `name ~ range:min-max; step:s`，
// 可附加 `condition: a <= b`，`#` 之后为注释。
func ParseGrid(r io.Reader) (*Grid, error) {
	g := &Grid{}
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		name, body, ok := strings.Cut(line, "~")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, apperrors.InputMalformed(lineNo, "缺少 `name ~ 取值`")
		}
		if seen[name] {
			return nil, apperrors.InputMalformed(lineNo, fmt.Sprintf("参数 %s 重复", name))
		}
		seen[name] = true

		param, conds, err := parseParam(name, body)
		if err != nil {
			return nil, apperrors.InputMalformed(lineNo, err.Error())
		}
		g.Params = append(g.Params, param)
		g.Conditions = append(g.Conditions, conds...)
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "读取网格文件失败")
	}
	if len(g.Params) == 0 {
		return nil, apperrors.InvalidInput("grid", "网格为空")
	}

	for _, c := range g.Conditions {
		for _, operand := range []string{c.Left, c.Right} {
			if !seen[operand] && !isNumber(operand) {
				return nil, apperrors.InvalidInput("condition", fmt.Sprintf("%s 既不是参数也不是数字", operand))
			}
		}
	}
	return g, nil
}

// parseParam 解析 `~` 右侧的选项
func parseParam(name, body string) (Param, []Condition, error) {
	param := Param{Name: name}
	var conds []Condition
	var rangeOpt, stepOpt string

	for _, opt := range strings.Split(body, ";") {
		opt = strings.TrimSpace(opt)
		switch {
		case opt == "":
		case strings.HasPrefix(opt, "domain:"):
			list := strings.Trim(strings.TrimSpace(strings.TrimPrefix(opt, "domain:")), "[]")
			for _, v := range strings.Split(list, ",") {
				if v = strings.TrimSpace(v); v != "" {
					param.Values = append(param.Values, v)
				}
			}
		case strings.HasPrefix(opt, "range:"):
			rangeOpt = strings.TrimSpace(strings.TrimPrefix(opt, "range:"))
		case strings.HasPrefix(opt, "step:"):
			stepOpt = strings.TrimSpace(strings.TrimPrefix(opt, "step:"))
		case strings.HasPrefix(opt, "condition:"):
			c, err := parseCondition(strings.TrimPrefix(opt, "condition:"))
			if err != nil {
				return param, nil, err
			}
			conds = append(conds, c)
		default:
			return param, nil, fmt.Errorf("未知选项 %q", opt)
		}
	}

	if rangeOpt != "" {
		values, err := expandRange(rangeOpt, stepOpt)
		if err != nil {
			return param, nil, err
		}
		param.Values = append(param.Values, values...)
	}
	if len(param.Values) == 0 {
		return param, nil, fmt.Errorf("参数 %s 没有取值", name)
	}
	return param, conds, nil
}

// expandRange 展开闭区间 [min,max]，取值保留两位小数
func expandRange(rng, step string) ([]string, error) {
	if len(rng) < 3 {
		return nil, fmt.Errorf("range 格式应为 min-max: %q", rng)
	}
	// 跳过首字符以允许负数下界
	i := strings.IndexByte(rng[1:], '-')
	if i < 0 {
		return nil, fmt.Errorf("range 格式应为 min-max: %q", rng)
	}
	lo, err1 := strconv.ParseFloat(strings.TrimSpace(rng[:i+1]), 64)
	hi, err2 := strconv.ParseFloat(strings.TrimSpace(rng[i+2:]), 64)
	if err1 != nil || err2 != nil || hi < lo {
		return nil, fmt.Errorf("range 不合法: %q", rng)
	}
	if step == "" {
		return nil, fmt.Errorf("range 缺少 step")
	}
	s, err := strconv.ParseFloat(step, 64)
	if err != nil || s <= 0 {
		return nil, fmt.Errorf("step 必须为正数: %q", step)
	}

	n := int(math.Floor((hi-lo)/s+1e-9)) + 1
	values := make([]string, 0, n)
	for k := 0; k < n; k++ {
		v := math.Round((lo+float64(k)*s)*100) / 100
		values = append(values, strconv.FormatFloat(v, 'f', -1, 64))
	}
	return values, nil
}

// parseCondition 解析 `a op b`
func parseCondition(s string) (Condition, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 || !operators[fields[1]] {
		return Condition{}, fmt.Errorf("条件格式应为 `a op b`: %q", strings.TrimSpace(s))
	}
	return Condition{Left: fields[0], Op: fields[1], Right: fields[2]}, nil
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// Permutation 一组参数取值，保持网格中的参数顺序
type Permutation struct {
	Names  []string
	Values []string
}

// Get 返回参数取值
func (p Permutation) Get(name string) (string, bool) {
	for i, n := range p.Names {
		if n == name {
			return p.Values[i], true
		}
	}
	return "", false
}

// Map 返回参数映射
func (p Permutation) Map() map[string]string {
	m := make(map[string]string, len(p.Names))
	for i, n := range p.Names {
		m[n] = p.Values[i]
	}
	return m
}

// Key 返回 {"name":"value",...} 形式的稳定键
func (p Permutation) Key() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, n := range p.Names {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%q:%q", n, p.Values[i])
	}
	b.WriteByte('}')
	return b.String()
}

// Expand 生成笛卡尔积并按条件过滤，第一个参数变化最慢
func Expand(g *Grid) []Permutation {
	names := make([]string, len(g.Params))
	for i, p := range g.Params {
		names[i] = p.Name
	}

	combos := [][]string{{}}
	for _, p := range g.Params {
		next := make([][]string, 0, len(combos)*len(p.Values))
		for _, c := range combos {
			for _, v := range p.Values {
				combo := make([]string, len(c), len(c)+1)
				copy(combo, c)
				next = append(next, append(combo, v))
			}
		}
		combos = next
	}

	perms := make([]Permutation, 0, len(combos))
	for _, c := range combos {
		perm := Permutation{Names: names, Values: c}
		if satisfies(perm, g.Conditions) {
			perms = append(perms, perm)
		}
	}
	return perms
}

// satisfies 检查全部条件
func satisfies(p Permutation, conds []Condition) bool {
	for _, c := range conds {
		if !c.Holds(p) {
			return false
		}
	}
	return true
}

// Holds 对一组取值求值条件；两侧都是数字时按数值比较，否则只支持 == 和 !=
func (c Condition) Holds(p Permutation) bool {
	left, right := resolve(p, c.Left), resolve(p, c.Right)
	l, errL := strconv.ParseFloat(left, 64)
	r, errR := strconv.ParseFloat(right, 64)

	if errL != nil || errR != nil {
		switch c.Op {
		case "==":
			return left == right
		case "!=":
			return left != right
		}
		return false
	}

	switch c.Op {
	case "<=":
		return l <= r
	case "<":
		return l < r
	case ">=":
		return l >= r
	case ">":
		return l > r
	case "==":
		return l == r
	case "!=":
		return l != r
	}
	return false
}

func resolve(p Permutation, operand string) string {
	if v, ok := p.Get(operand); ok {
		return v
	}
	return operand
}
