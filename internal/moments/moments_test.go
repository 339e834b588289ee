package moments

import (
	"math"
	"testing"

	"github.com/san-kum/pbesim/internal/distribution"
)

func TestMoment_Polynomial(t *testing.T) {
	grid, _ := distribution.Uniform(0, 1, 1001)
	d, _ := distribution.FromFunc(grid, func(y float64) float64 { return 1 })

	tests := []struct {
		order float64
		want  float64
	}{
		{0, 1},
		{1, 0.5},
		{2, 1.0 / 3},
		{3, 0.25},
	}
	for _, tt := range tests {
		got := Moment(d, tt.order)
		if math.Abs(got-tt.want) > 1e-6 {
			t.Errorf("moment %v: got %v, want %v", tt.order, got, tt.want)
		}
	}
}

func TestMoments_PerTimePoint(t *testing.T) {
	grid := []float64{0, 1, 2}
	a, _ := distribution.New(grid, []float64{1, 1, 1})
	b, _ := distribution.New(grid, []float64{2, 2, 2})

	got := Moments([]*distribution.Distribution{a, b}, 0)
	if len(got) != 2 || got[0] != 2 || got[1] != 4 {
		t.Errorf("unexpected zeroth moments %v", got)
	}
}

func TestWeights_MatchTrapezoid(t *testing.T) {
	grid := []float64{1, 1.5, 3, 3.2, 7}
	f := []float64{0.2, 1, 4, 2, 0.5}
	w := Weights(grid)

	for _, order := range []float64{0, 1, 3, 4.5} {
		a := Weighted(grid, w, f, order)
		b := Quadrature(grid, f, order)
		if math.Abs(a-b) > 1e-9*math.Max(1, math.Abs(b)) {
			t.Errorf("order %v: weighted %v != quadrature %v", order, a, b)
		}
	}

	sum := 0.0
	for _, v := range w {
		sum += v
	}
	if math.Abs(sum-(grid[len(grid)-1]-grid[0])) > 1e-12 {
		t.Errorf("weights should tile the domain, got total %v", sum)
	}
}

func TestMeanSize(t *testing.T) {
	grid, _ := distribution.Uniform(0, 300, 3001)
	d, _ := distribution.FromFunc(grid, distribution.Gaussian(150, 5, 1))

	if got := MeanSize(d); math.Abs(got-150) > 1 {
		t.Errorf("expected weight mean near 150, got %v", got)
	}
	if got := CountMeanSize(d); math.Abs(got-150) > 1e-3 {
		t.Errorf("expected count mean 150, got %v", got)
	}
}

func TestQuadrature_Degenerate(t *testing.T) {
	if Quadrature([]float64{1}, []float64{1}, 0) != 0 {
		t.Error("single point should integrate to zero")
	}
	if Quadrature([]float64{1, 2}, []float64{1}, 0) != 0 {
		t.Error("mismatched input should integrate to zero")
	}
	if Moment(nil, 3) != 0 {
		t.Error("nil distribution should have zero moment")
	}
}

func TestLeading(t *testing.T) {
	grid := []float64{0, 2}
	got := Leading(grid, []float64{1, 1})
	want := []float64{2, 2, 4, 8}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("mu%d = %v, want %v", i, got[i], want[i])
		}
	}
}
