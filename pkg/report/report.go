// report records what an injection did so the synthetic rows can be audited
// or removed later
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jmespath/go-jmespath"
	"github.com/tim-beatham/outliermask/pkg/dataset"
	"github.com/tim-beatham/outliermask/pkg/lib"
	"github.com/tim-beatham/outliermask/pkg/outlier"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// QueryError: query error if the JMESPath expression is invalid
type QueryError struct {
	msg string
}

func (q *QueryError) Error() string {
	return q.msg
}

// Distribution: summary of the target column
type Distribution struct {
	N      int     `json:"n" yaml:"n"`
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"stdDev" yaml:"stdDev"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
}

// Value: a single injected value and its row in the output, zero based
// excluding the header
type Value struct {
	Row   int     `json:"row" yaml:"row"`
	Value float64 `json:"value" yaml:"value"`
	Side  string  `json:"side" yaml:"side"`
}

type Report struct {
	ID             string       `json:"id" yaml:"id"`
	CreatedAt      time.Time    `json:"createdAt" yaml:"createdAt"`
	Input          string       `json:"input" yaml:"input"`
	Output         string       `json:"output" yaml:"output"`
	Column         string       `json:"column" yaml:"column"`
	Count          int          `json:"count" yaml:"count"`
	Multiplier     float64      `json:"multiplier" yaml:"multiplier"`
	Estimator      string       `json:"estimator" yaml:"estimator"`
	Placement      string       `json:"placement" yaml:"placement"`
	Template       string       `json:"template" yaml:"template"`
	Spread         float64      `json:"spread" yaml:"spread"`
	FallbackSpread bool         `json:"fallbackSpread" yaml:"fallbackSpread"`
	LowThreshold   float64      `json:"lowThreshold" yaml:"lowThreshold"`
	HighThreshold  float64      `json:"highThreshold" yaml:"highThreshold"`
	Before         Distribution `json:"before" yaml:"before"`
	After          Distribution `json:"after" yaml:"after"`
	// GenuineBeyond counts the original values already on or beyond the thresholds
	GenuineBeyond int     `json:"genuineBeyond" yaml:"genuineBeyond"`
	Low           int     `json:"low" yaml:"low"`
	High          int     `json:"high" yaml:"high"`
	Values        []Value `json:"values" yaml:"values"`
}

// Params: where the data came from and went to, and how to stamp the report
type Params struct {
	Input       string
	Output      string
	IdGenerator lib.IdGenerator
	Now         func() time.Time
}

func distribution(s outlier.Summary) Distribution {
	return Distribution{N: s.N, Mean: s.Mean, StdDev: s.StdDev, Min: s.Min, Max: s.Max}
}

// New builds the report of injection, original being the dataset before injection
func New(params Params, original *dataset.Dataset, injection *outlier.Injection) (*Report, error) {
	idGenerator := params.IdGenerator

	if idGenerator == nil {
		idGenerator = &lib.UUIDGenerator{}
	}

	now := params.Now

	if now == nil {
		now = time.Now
	}

	id, err := idGenerator.GetId()

	if err != nil {
		return nil, err
	}

	values, err := outlier.ColumnValues(original, injection.Spec.Column)

	if err != nil {
		return nil, err
	}

	low, high := injection.Thresholds()

	isLow := func(v outlier.InjectedValue) bool {
		return v.Side == outlier.Low
	}

	lows := len(lib.Filter(injection.Values, isLow))

	return &Report{
		ID:             id,
		CreatedAt:      now().UTC(),
		Input:          params.Input,
		Output:         params.Output,
		Column:         injection.Spec.Column,
		Count:          injection.Spec.Count,
		Multiplier:     injection.Spec.Multiplier,
		Estimator:      string(injection.Before.Estimator),
		Placement:      string(injection.Placement),
		Template:       string(injection.Template),
		Spread:         injection.Spread,
		FallbackSpread: injection.FallbackSpread,
		LowThreshold:   low,
		HighThreshold:  high,
		Before:         distribution(injection.Before),
		After:          distribution(injection.After),
		GenuineBeyond:  outlier.CountBeyond(values, low, high),
		Low:            lows,
		High:           len(injection.Values) - lows,
		Values: lib.Map(injection.Values, func(v outlier.InjectedValue) Value {
			return Value{Row: v.Row, Value: v.Value, Side: string(v.Side)}
		}),
	}, nil
}

// Encode writes the report to w in the given format
func (r *Report) Encode(w io.Writer, format Format) error {
	switch format {
	case YAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)

		if err := encoder.Encode(r); err != nil {
			return err
		}

		return encoder.Close()
	case JSON, "":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(r)
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

// Save writes the report to path, replacing any existing file
func (r *Report) Save(path string, format Format) error {
	file, err := os.Create(path)

	if err != nil {
		return &dataset.IOError{Op: "save report", Path: path, Err: err}
	}

	if err := r.Encode(file, format); err != nil {
		file.Close()
		os.Remove(path)
		return &dataset.IOError{Op: "save report", Path: path, Err: err}
	}

	if err := file.Close(); err != nil {
		return &dataset.IOError{Op: "save report", Path: path, Err: err}
	}

	return nil
}

// Query evaluates a JMESPath expression against the JSON form of the report
// and returns the JSON encoded result
func (r *Report) Query(expression string) ([]byte, error) {
	encoded, err := json.Marshal(r)

	if err != nil {
		return nil, err
	}

	var document interface{}

	if err := json.Unmarshal(encoded, &document); err != nil {
		return nil, err
	}

	result, err := jmespath.Search(expression, document)

	if err != nil {
		return nil, &QueryError{msg: fmt.Sprintf("invalid query %q: %s", expression, err.Error())}
	}

	return json.Marshal(result)
}
