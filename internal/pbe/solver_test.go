package pbe_test

import (
	"context"
	"math"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pbesim/internal/distribution"
	"github.com/san-kum/pbesim/internal/dynamo"
	"github.com/san-kum/pbesim/internal/moments"
	"github.com/san-kum/pbesim/internal/pbe"
	"github.com/san-kum/pbesim/internal/profile"
	"github.com/san-kum/pbesim/internal/rates"
)

var allSchemes = []string{"central-difference", "high-resolution", "moving-pivot"}

func mustScheme(name string) pbe.Scheme {
	s, err := pbe.ParseScheme(name)
	Expect(err).NotTo(HaveOccurred())
	return s
}

func mustGrowth(spec rates.GrowthSpec) rates.GrowthFunc {
	g, _, err := rates.AdaptGrowth(spec)
	Expect(err).NotTo(HaveOccurred())
	return g
}

func mustNucleation(spec rates.NucleationSpec) rates.NucleationFunc {
	b, _, err := rates.AdaptNucleation(spec)
	Expect(err).NotTo(HaveOccurred())
	return b
}

func mustSolubility(spec rates.SolubilitySpec) rates.SolubilityFunc {
	c, _, err := rates.AdaptSolubility(spec)
	Expect(err).NotTo(HaveOccurred())
	return c
}

// seeded is a supersaturated batch with a Gaussian seed well inside the grid.
func seeded() *pbe.Problem {
	grid, err := distribution.Uniform(1, 200, 120)
	Expect(err).NotTo(HaveOccurred())
	initial, err := distribution.FromFunc(grid, distribution.Gaussian(50, 8, 1e-3))
	Expect(err).NotTo(HaveOccurred())

	return &pbe.Problem{
		Initial:              initial,
		InitialConcentration: 0.12,
		Solubility:           mustSolubility(rates.SolubilityConstant(0.1)),
		Temperature:          profile.Constant(298.15),
		Growth: mustGrowth(rates.GrowthOfST(func(s, _ float64) float64 {
			return 0.5 * math.Max(s, 0)
		})),
		Nucleation: mustNucleation(rates.NucleationOfST(func(s, _ float64) float64 {
			return 1e-4 * math.Pow(math.Max(s, 0), 2)
		})),
		MediumMass:     1,
		CrystalDensity: 1,
		ShapeFactor:    1e-6,
	}
}

func totalMass(res *pbe.Result, i int) float64 {
	crystals := res.CrystalDensity * res.ShapeFactor * moments.Moment(res.Distributions[i], 3)
	return (crystals + res.Concentrations[i]) * res.MediumMass[i]
}

var _ = Describe("ParseScheme", func() {
	It("accepts the three scheme names", func() {
		for _, name := range allSchemes {
			s, err := pbe.ParseScheme(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Name()).To(Equal(name))
		}
		Expect(pbe.SchemeNames()).To(Equal(allSchemes))
	})

	It("ignores case and surrounding space", func() {
		s, err := pbe.ParseScheme("  High-Resolution ")
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(Equal(pbe.HighResolution{}))
	})

	It("rejects anything else", func() {
		_, err := pbe.ParseScheme("upwind")
		Expect(err).To(MatchError(pbe.ErrUnknownScheme))
	})
})

var _ = Describe("Solver", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("fails without a scheme", func() {
		_, err := pbe.New(nil).Run(ctx, seeded(), []float64{0, 1})
		Expect(err).To(MatchError(pbe.ErrUnknownScheme))
	})

	It("rejects unordered output times", func() {
		_, err := pbe.New(pbe.HighResolution{}).Run(ctx, seeded(), []float64{0, 10, 5})
		Expect(err).To(MatchError(pbe.ErrInvalidTimes))
	})

	It("rejects an incomplete problem", func() {
		p := seeded()
		p.Growth = nil
		_, err := pbe.New(pbe.HighResolution{}).Run(ctx, p, []float64{0, 1})
		Expect(err).To(MatchError(pbe.ErrInvalidProblem))
	})

	DescribeTable("reports one snapshot per output time starting at the seed",
		func(name string) {
			p := seeded()
			times := []float64{0, 5, 10, 20}
			res, err := pbe.New(mustScheme(name)).Run(ctx, p, times)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Scheme).To(Equal(name))
			Expect(res.Times).To(Equal(times))
			Expect(res.Distributions).To(HaveLen(len(times)))
			Expect(res.Concentrations).To(HaveLen(len(times)))
			Expect(res.MediumMass).To(HaveLen(len(times)))
			Expect(res.Supersaturation).To(HaveLen(len(times)))

			Expect(res.Distributions[0].Grid()).To(Equal(p.Initial.Grid()))
			Expect(res.Distributions[0].Density()).To(Equal(p.Initial.Density()))
			Expect(res.Concentrations[0]).To(Equal(0.12))
			Expect(res.Supersaturation[0]).To(BeNumerically("~", 0.2, 1e-12))
		},
		Entry("central difference", "central-difference"),
		Entry("high resolution", "high-resolution"),
		Entry("moving pivot", "moving-pivot"),
	)

	DescribeTable("leaves a saturated batch without kinetics unchanged",
		func(name string) {
			p := seeded()
			p.Saturated = true
			p.Growth = mustGrowth(rates.GrowthConstant(0))
			p.Nucleation = nil

			res, err := pbe.New(mustScheme(name)).Run(ctx, p, []float64{0, 25, 50})
			Expect(err).NotTo(HaveOccurred())

			initial := p.Initial.Density()
			for i := range res.Times {
				Expect(res.Concentrations[i]).To(BeNumerically("~", 0.1, 1e-12))
				got := res.Distributions[i].Density()
				Expect(got).To(HaveLen(len(initial)))
				for k := range got {
					Expect(got[k]).To(BeNumerically("~", initial[k], 1e-12*(1+initial[k])))
				}
			}
		},
		Entry("central difference", "central-difference"),
		Entry("high resolution", "high-resolution"),
		Entry("moving pivot", "moving-pivot"),
	)

	DescribeTable("keeps the crystal and solute mass balanced",
		func(name string) {
			res, err := pbe.New(mustScheme(name)).Run(ctx, seeded(), []float64{0, 25, 50, 75, 100})
			Expect(err).NotTo(HaveOccurred())

			m0 := totalMass(res, 0)
			for i := range res.Times {
				dev := 100 * math.Abs(totalMass(res, i)-m0) / m0
				Expect(dev).To(BeNumerically("<", 1), "t=%g", res.Times[i])
			}

			// crystals grew at the expense of the solution
			last := res.Len() - 1
			Expect(res.Concentrations[last]).To(BeNumerically("<", res.Concentrations[0]))
			Expect(moments.Moment(res.Distributions[last], 3)).To(BeNumerically(">", moments.Moment(res.Distributions[0], 3)))
		},
		Entry("central difference", "central-difference"),
		Entry("high resolution", "high-resolution"),
		Entry("moving pivot", "moving-pivot"),
	)

	DescribeTable("dissolves an undersaturated seed completely",
		func(name string) {
			p := seeded()
			p.InitialConcentration = 0
			p.Growth = mustGrowth(rates.GrowthExpression("4*S"))
			p.Nucleation = nil

			res, err := pbe.New(mustScheme(name)).Run(ctx, p, []float64{0, 25, 50, 75, 100})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Distributions).To(HaveLen(5))

			m0 := totalMass(res, 0)
			for i := range res.Times {
				dev := 100 * math.Abs(totalMass(res, i)-m0) / m0
				Expect(dev).To(BeNumerically("<", 1), "t=%g", res.Times[i])
				if i > 0 {
					Expect(res.Concentrations[i]).To(BeNumerically(">=", res.Concentrations[i-1]-1e-9*m0))
				}
			}

			// every crystal went back into solution
			last := res.Len() - 1
			Expect(res.Concentrations[last]).To(BeNumerically("~", m0, 0.01*m0))
			crystals := res.CrystalDensity * res.ShapeFactor * moments.Moment(res.Distributions[last], 3)
			Expect(crystals).To(BeNumerically("<", 0.01*m0))
		},
		Entry("central difference", "central-difference"),
		Entry("high resolution", "high-resolution"),
		Entry("moving pivot", "moving-pivot"),
	)

	It("shares one expression-based problem between concurrent runs", func() {
		p := seeded()
		p.Growth = mustGrowth(rates.GrowthExpression("0.5*pos(S)"))
		p.Nucleation = mustNucleation(rates.NucleationExpression("1e-4*pos(S)^2"))
		solver := pbe.New(pbe.HighResolution{})
		times := []float64{0, 10, 20}

		want, err := solver.Run(ctx, p, times)
		Expect(err).NotTo(HaveOccurred())

		results := make([]*pbe.Result, 4)
		errs := make([]error, len(results))
		var wg sync.WaitGroup
		for i := range results {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], errs[i] = solver.Run(ctx, p, times)
			}()
		}
		wg.Wait()

		for i, res := range results {
			Expect(errs[i]).NotTo(HaveOccurred())
			Expect(res.Concentrations).To(Equal(want.Concentrations))
			Expect(res.Distributions[2].Density()).To(Equal(want.Distributions[2].Density()))
		}
	})

	It("moves pivots by exactly G·t under constant growth", func() {
		p := seeded()
		p.Growth = mustGrowth(rates.GrowthConstant(0.5))
		p.Nucleation = nil

		times := []float64{0, 10, 20}
		res, err := pbe.New(pbe.MovingPivot{}).Run(ctx, p, times)
		Expect(err).NotTo(HaveOccurred())

		initial := p.Initial.Grid()
		for i, t := range times {
			grid := res.Distributions[i].Grid()
			Expect(grid).To(HaveLen(len(initial)))
			for k := range grid {
				want := initial[k] + 0.5*t
				Expect(grid[k]).To(BeNumerically("~", want, 1e-9*want))
			}
		}
		Expect(moments.Moment(res.Distributions[2], 0)).To(BeNumerically("~", moments.Moment(res.Distributions[0], 0), 1e-9))
	})

	It("preserves particle count on a fixed grid without nucleation", func() {
		p := seeded()
		p.Nucleation = nil

		res, err := pbe.New(pbe.HighResolution{}).Run(ctx, p, []float64{0, 50})
		Expect(err).NotTo(HaveOccurred())

		mu0 := moments.Moment(res.Distributions[0], 0)
		Expect(moments.Moment(res.Distributions[1], 0)).To(BeNumerically("~", mu0, 1e-3*mu0))
		Expect(moments.MeanSize(res.Distributions[1])).To(BeNumerically(">", moments.MeanSize(res.Distributions[0])))
	})

	DescribeTable("dilutes with antisolvent",
		func(name string) {
			p := seeded()
			p.Growth = mustGrowth(rates.GrowthConstant(0))
			p.Nucleation = nil
			feed, err := profile.NewAntisolventTable([]float64{0, 50}, []float64{0, 1})
			Expect(err).NotTo(HaveOccurred())
			p.Antisolvent = feed

			res, err := pbe.New(mustScheme(name)).Run(ctx, p, []float64{0, 100})
			Expect(err).NotTo(HaveOccurred())

			Expect(res.MediumMass).To(Equal([]float64{1, 2}))
			Expect(res.Concentrations[1]).To(BeNumerically("~", 0.06, 1e-9))
			before, after := res.Distributions[0].Density(), res.Distributions[1].Density()
			for k := range after {
				Expect(after[k]).To(BeNumerically("~", before[k]/2, 1e-9*(1+before[k])))
			}
		},
		Entry("high resolution", "high-resolution"),
		Entry("moving pivot", "moving-pivot"),
	)

	It("rescales the seed to the requested mass", func() {
		p := seeded()
		p.SeedMass = 0.01

		res, err := pbe.New(pbe.HighResolution{}).Run(ctx, p, []float64{0})
		Expect(err).NotTo(HaveOccurred())
		crystals := p.CrystalDensity * p.ShapeFactor * p.MediumMass * moments.Moment(res.Distributions[0], 3)
		Expect(crystals).To(BeNumerically("~", 0.01, 1e-12))
	})

	It("treats an exhausted step budget as fatal", func() {
		cfg := dynamo.DefaultConfig()
		cfg.MaxSteps = 3
		cfg.Dt = 1e-3

		res, err := pbe.New(pbe.CentralDifference{}, pbe.WithConfig(cfg)).Run(ctx, seeded(), []float64{0, 100})
		Expect(err).To(MatchError(dynamo.ErrStepBudget))
		Expect(res).To(BeNil())
	})

	It("stops when the context is canceled", func() {
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		res, err := pbe.New(pbe.MovingPivot{}).Run(canceled, seeded(), []float64{0, 100})
		Expect(err).To(MatchError(dynamo.ErrContextCanceled))
		Expect(res).To(BeNil())
	})
})
