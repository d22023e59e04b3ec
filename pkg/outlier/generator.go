// outlier injects synthetic out-of-distribution values into a numeric column
// of a dataset
package outlier

import (
	"fmt"
	"math"

	"github.com/tim-beatham/outliermask/pkg/dataset"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// FallbackSpread replaces a zero standard deviation so that a constant
// column still receives outliers at a distance of multiplier
const FallbackSpread = 1.0

// Placement decides where the synthetic rows go
type Placement string

const (
	// AppendPlacement adds every synthetic row after the existing rows
	AppendPlacement Placement = "append"
	// RandomPlacement inserts every synthetic row at a uniformly random index
	RandomPlacement Placement = "random"
)

// Template decides how the other columns of a synthetic row are filled
type Template string

const (
	// BlankTemplate leaves every other column empty
	BlankTemplate Template = "blank"
	// CloneTemplate copies the other columns from a random existing row
	CloneTemplate Template = "clone"
)

// Side records which side of the mean a value was placed
type Side string

const (
	Low  Side = "low"
	High Side = "high"
)

type Options struct {
	Estimator Estimator
	Placement Placement
	Template  Template
	// JitterMin and JitterMax bound the uniform factor applied to the spread
	// so repeated outliers differ. JitterMin must be at least 1
	JitterMin float64
	JitterMax float64
	// PreserveIntegers rounds values away from the mean when the column only
	// holds whole numbers
	PreserveIntegers bool
}

func DefaultOptions() Options {
	return Options{
		Estimator:        PopulationEstimator,
		Placement:        AppendPlacement,
		Template:         BlankTemplate,
		JitterMin:        1.0,
		JitterMax:        1.2,
		PreserveIntegers: true,
	}
}

func (o Options) validate() error {
	switch o.Estimator {
	case PopulationEstimator, SampleEstimator:
	default:
		return &InvalidParameterError{Parameter: "estimator", msg: string(o.Estimator) + " is not population or sample"}
	}

	switch o.Placement {
	case AppendPlacement, RandomPlacement:
	default:
		return &InvalidParameterError{Parameter: "placement", msg: string(o.Placement) + " is not append or random"}
	}

	switch o.Template {
	case BlankTemplate, CloneTemplate:
	default:
		return &InvalidParameterError{Parameter: "template", msg: string(o.Template) + " is not blank or clone"}
	}

	if math.IsNaN(o.JitterMin) || o.JitterMin < 1 {
		return &InvalidParameterError{Parameter: "jitter", msg: "minimum must be at least 1"}
	}

	if math.IsNaN(o.JitterMax) || math.IsInf(o.JitterMax, 0) || o.JitterMax < o.JitterMin {
		return &InvalidParameterError{Parameter: "jitter", msg: "maximum must be finite and not less than the minimum"}
	}

	return nil
}

// Spec is the immutable request of a single injection
type Spec struct {
	Count      int
	Column     string
	Multiplier float64
}

func (s Spec) Validate() error {
	if s.Count < 1 {
		return &InvalidParameterError{Parameter: "count", msg: "number of outliers must be at least 1"}
	}

	if math.IsNaN(s.Multiplier) || math.IsInf(s.Multiplier, 0) || s.Multiplier <= 0 {
		return &InvalidParameterError{Parameter: "multiplier", msg: "standard deviation multiplier must be positive"}
	}

	return nil
}

// InjectedValue is a synthetic value and the index of its row in the
// augmented dataset
type InjectedValue struct {
	Row   int
	Value float64
	Side  Side
}

// Injection describes what Generate did
type Injection struct {
	Spec      Spec
	Placement Placement
	Template  Template
	// Before summarises the column prior to injection
	Before Summary
	// After summarises the column of the augmented dataset
	After Summary
	// Spread is the standard deviation the values were generated from
	Spread float64
	// FallbackSpread is true when the column had no spread and
	// FallbackSpread was used instead
	FallbackSpread bool
	Values         []InjectedValue
}

// Thresholds returns the bounds every injected value lies beyond
func (i *Injection) Thresholds() (low, high float64) {
	return Thresholds(i.Before.Mean, i.Spread, i.Spec.Multiplier)
}

// Generator produces outliers from an injected random source so runs can be
// reproduced by seeding
type Generator struct {
	rnd     *rand.Rand
	sign    distuv.Bernoulli
	jitter  distuv.Uniform
	options Options
}

func NewGenerator(src rand.Source, options Options) (*Generator, error) {
	if err := options.validate(); err != nil {
		return nil, err
	}

	return &Generator{
		rnd:     rand.New(src),
		sign:    distuv.Bernoulli{P: 0.5, Src: src},
		jitter:  distuv.Uniform{Min: options.JitterMin, Max: options.JitterMax, Src: src},
		options: options,
	}, nil
}

// Generate returns a copy of ds holding spec.Count extra rows, each carrying a
// value at least spec.Multiplier standard deviations away from the column's
// mean. ds is never modified
func (g *Generator) Generate(ds *dataset.Dataset, spec Spec) (*dataset.Dataset, *Injection, error) {
	if err := spec.Validate(); err != nil {
		return nil, nil, err
	}

	values, err := ColumnValues(ds, spec.Column)

	if err != nil {
		return nil, nil, err
	}

	before, err := Summarise(values, g.options.Estimator)

	if err != nil {
		return nil, nil, err
	}

	if !before.finite() {
		return nil, nil, &InvalidParameterError{
			Parameter: "column",
			msg:       fmt.Sprintf("statistics of '%s' overflow, values are too large in magnitude", spec.Column),
		}
	}

	injection := &Injection{
		Spec:      spec,
		Placement: g.options.Placement,
		Template:  g.options.Template,
		Before:    before,
		Spread:    before.StdDev,
		Values:    make([]InjectedValue, 0, spec.Count),
	}

	if injection.Spread == 0 {
		injection.Spread = FallbackSpread
		injection.FallbackSpread = true
	}

	augmented := ds.Clone()

	for i := 0; i < spec.Count; i++ {
		value, side := g.next(before, injection.Spread, spec.Multiplier)

		if math.IsInf(value, 0) || math.IsNaN(value) {
			return nil, nil, &InvalidParameterError{
				Parameter: "multiplier",
				msg:       fmt.Sprintf("an outlier %g standard deviations from the mean of '%s' overflows", spec.Multiplier, spec.Column),
			}
		}

		row := g.newRow(ds)
		row[spec.Column] = dataset.FormatNumber(value)

		index := augmented.Len()

		if g.options.Placement == RandomPlacement {
			index = g.rnd.Intn(augmented.Len() + 1)
		}

		if err := augmented.InsertRow(index, row); err != nil {
			return nil, nil, err
		}

		for j := range injection.Values {
			if injection.Values[j].Row >= index {
				injection.Values[j].Row++
			}
		}

		injection.Values = append(injection.Values, InjectedValue{Row: index, Value: value, Side: side})
	}

	after, err := ColumnValues(augmented, spec.Column)

	if err != nil {
		return nil, nil, err
	}

	injection.After, err = Summarise(after, g.options.Estimator)

	if err != nil {
		return nil, nil, err
	}

	if !injection.After.finite() {
		return nil, nil, &InvalidParameterError{
			Parameter: "multiplier",
			msg:       fmt.Sprintf("statistics of '%s' overflow once the outliers are added", spec.Column),
		}
	}

	return augmented, injection, nil
}

// next draws a value mean + s*multiplier*spread*jitter with s = -1 or +1
func (g *Generator) next(summary Summary, spread, multiplier float64) (float64, Side) {
	side := Low
	sign := -1.0

	if g.sign.Rand() == 1 {
		side = High
		sign = 1.0
	}

	value := summary.Mean + sign*multiplier*spread*g.jitter.Rand()

	if g.options.PreserveIntegers && summary.Integral {
		if side == High {
			value = math.Ceil(value)
		} else {
			value = math.Floor(value)
		}
	}

	return value, side
}

// newRow builds the row a synthetic value is written into. Clone templates
// only draw from the original rows of ds
func (g *Generator) newRow(ds *dataset.Dataset) dataset.Row {
	if g.options.Template == CloneTemplate && ds.Len() > 0 {
		return ds.Rows[g.rnd.Intn(ds.Len())].Clone()
	}

	return ds.BlankRow()
}
