package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tourplan/tourplan/pkg/errors"
	"github.com/tourplan/tourplan/pkg/model"
)

func testProblem() *model.Problem {
	return &model.Problem{
		Name:       "tiny",
		TourCount:  2,
		POICount:   3,
		Budget:     50,
		MaxPerType: []int{2, 1},
		Patterns:   [][]int{{1}, {2, 1}},
		POIs: []model.POI{
			{ID: 0, Open: 0, Close: 100},
			{ID: 1, X: 3, Y: 4, Duration: 5, Score: 10, Open: 0, Close: 60, Cost: 7, Types: []int{1}},
			{ID: 2, X: 0, Y: 8, Duration: 2, Score: 4, Open: 10, Close: 90, Cost: 3, Types: []int{1, 2}},
			{ID: 7, X: 6, Y: 8, Duration: 1, Score: 1, Open: 0, Close: 100, Cost: 1, Types: []int{2}},
		},
	}
}

func TestNew(t *testing.T) {
	idx, err := New(testProblem())
	require.NoError(t, err)

	assert.Equal(t, 2, idx.TourCount())
	assert.Equal(t, 50.0, idx.Budget())
	assert.Equal(t, 100.0, idx.TimeBudget())
	assert.Equal(t, 2, idx.MaxOfType(1))
	assert.Equal(t, 1, idx.MaxOfType(2))
	assert.Equal(t, 0, idx.MaxOfType(9))
	assert.Equal(t, []int{2, 1}, idx.Pattern(1))
	assert.Equal(t, []int{1, 2, 7}, idx.IDs())
	assert.Equal(t, "tiny", idx.Name())
}

func TestTravel(t *testing.T) {
	idx := MustNew(testProblem())

	assert.Equal(t, 5.0, idx.Travel(0, 1))
	assert.Equal(t, 5.0, idx.Travel(1, 0))
	assert.Equal(t, 0.0, idx.Travel(2, 2))
	assert.Equal(t, 10.0, idx.Travel(0, 7))
	assert.InDelta(t, 5.0, idx.Travel(1, 2), 1e-9)

	// 平均值：到其余3个点的行程时间均值
	expected := (idx.Travel(7, 0) + idx.Travel(7, 1) + idx.Travel(7, 2)) / 3
	assert.InDelta(t, expected, idx.TravelAverage(7), 1e-9)
}

func TestAccessors(t *testing.T) {
	idx := MustNew(testProblem())

	assert.Equal(t, 3.0, idx.Cost(2))
	assert.Equal(t, 2.0, idx.Duration(2))
	assert.Equal(t, 4.0, idx.Score(2))
	assert.Equal(t, model.TimeWindow{Open: 10, Close: 90}, idx.Window(2))
	assert.Equal(t, []int{1, 2}, idx.Types(2))
	assert.True(t, idx.Has(7))
	assert.False(t, idx.Has(3))
	assert.Panics(t, func() { idx.Travel(0, 3) })
}

func TestNew_InvalidProblem(t *testing.T) {
	p := testProblem()
	p.POIs = p.POIs[1:]

	_, err := New(p)
	assert.True(t, apperrors.Is(err, apperrors.CodeValidationFail))
}
