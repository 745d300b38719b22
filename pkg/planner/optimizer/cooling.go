package optimizer

import "math"

// schedule 降温进度
type schedule struct {
	fn        CoolingFunc
	factor    float64
	precision int
	step      int
}

// next 计算下一温度，返回 false 表示已到达零点
//
// 下一温度在给定精度下与当前温度相同，或舍入后为0，即视为到达零点。
func (s *schedule) next(t float64) (float64, bool) {
	s.step++
	var n float64
	switch s.fn {
	case LundyMees:
		n = t / (1 + s.factor*t)
	default:
		n = t * math.Pow(s.factor, float64(s.step))
	}
	if n > t {
		n = t
	}
	if round(n, s.precision) == round(t, s.precision) || round(n, s.precision) == 0 {
		return 0, false
	}
	return n, true
}

// round 按小数位数四舍五入
func round(v float64, precision int) float64 {
	p := math.Pow10(precision)
	return math.Round(v*p) / p
}

// boltzmannProbability 计算接受较差解的概率
// delta: 得分变化 (new - old)，得分越高越好
// temperature: 当前温度
func boltzmannProbability(delta, temperature float64) float64 {
	if delta >= 0 {
		return 1.0
	}
	if temperature <= 0 {
		return 0.0
	}
	return math.Exp(delta / temperature)
}
