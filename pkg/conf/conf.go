// conf defines configuration file parsing for outliermask
package conf

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable read by LoadEnvironment
const EnvPrefix = "OUTLIERMASK"

type ConfigurationError struct {
	msg string
	err error
}

func (c *ConfigurationError) Error() string {
	if c.err != nil {
		return fmt.Sprintf("%s: %s", c.msg, c.err.Error())
	}

	return c.msg
}

func (c *ConfigurationError) Unwrap() error {
	return c.err
}

type LogLevel string

const (
	ERROR   LogLevel = "error"
	WARNING LogLevel = "warning"
	INFO    LogLevel = "info"
	DEBUG   LogLevel = "debug"
)

// InjectionConfiguration describes a single injection run. Contains pointer types only
// so we can tell if the attribute is set when merging layers
type InjectionConfiguration struct {
	// Input path of the dataset to read
	Input *string `yaml:"input" envconfig:"INPUT" validate:"required,min=1"`
	// Output path the augmented dataset is written to
	Output *string `yaml:"output" envconfig:"OUTPUT" validate:"required,min=1"`
	// Format overrides the format derived from the file extensions
	Format *string `yaml:"format" envconfig:"FORMAT" validate:"omitempty,oneof=csv xlsx"`
	// Column is the name of the numeric column to inject outliers into
	Column *string `yaml:"column" envconfig:"COLUMN" validate:"required,min=1"`
	// Count is the number of synthetic outliers to inject
	Count *int `yaml:"count" envconfig:"COUNT" validate:"required,gte=1"`
	// Multiplier is how many standard deviations away from the mean an outlier is placed
	Multiplier *float64 `yaml:"multiplier" envconfig:"MULTIPLIER" validate:"required,gt=0"`
	// Seed seeds the random source. A random seed is chosen when unset
	Seed *uint64 `yaml:"seed" envconfig:"SEED"`
	// Estimator is the standard deviation estimator, population or sample
	Estimator *string `yaml:"estimator" envconfig:"ESTIMATOR" validate:"required,oneof=population sample"`
	// Placement specifies whether new rows are appended or inserted at random positions
	Placement *string `yaml:"placement" envconfig:"PLACEMENT" validate:"required,oneof=append random"`
	// Template specifies how the other columns of a synthetic row are filled
	Template *string `yaml:"template" envconfig:"TEMPLATE" validate:"required,oneof=blank clone"`
	// JitterMin is the lower bound of the random factor applied to the spread
	JitterMin *float64 `yaml:"jitterMin" envconfig:"JITTER_MIN" validate:"required,gte=1"`
	// JitterMax is the upper bound of the random factor applied to the spread
	JitterMax *float64 `yaml:"jitterMax" envconfig:"JITTER_MAX" validate:"required,gte=1"`
	// PreserveIntegers rounds outliers away from the mean when the column only holds integers
	PreserveIntegers *bool `yaml:"preserveIntegers" envconfig:"PRESERVE_INTEGERS" validate:"required"`
	// Report is the path to write the injection report to. No report is written when empty
	Report *string `yaml:"report" envconfig:"REPORT"`
	// ReportFormat is the encoding of the report, json or yaml
	ReportFormat *string `yaml:"reportFormat" envconfig:"REPORT_FORMAT" validate:"required,oneof=json yaml"`
	// Query is a JMESPath expression evaluated against the report and printed
	Query *string `yaml:"query" envconfig:"QUERY"`
	// LogLevel is the verbosity of the logger
	LogLevel *LogLevel `yaml:"logLevel" envconfig:"LOG_LEVEL" validate:"required,oneof=error warning info debug"`
}

// DefaultConfiguration: the lowest precedence layer
func DefaultConfiguration() InjectionConfiguration {
	estimator := "population"
	placement := "append"
	template := "blank"
	jitterMin := 1.0
	jitterMax := 1.2
	preserveIntegers := true
	reportFormat := "json"
	logLevel := INFO

	return InjectionConfiguration{
		Estimator:        &estimator,
		Placement:        &placement,
		Template:         &template,
		JitterMin:        &jitterMin,
		JitterMax:        &jitterMax,
		PreserveIntegers: &preserveIntegers,
		ReportFormat:     &reportFormat,
		LogLevel:         &logLevel,
	}
}

// ValidateConfiguration: validates the merged configuration
func ValidateConfiguration(c *InjectionConfiguration) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	err := validate.Struct(c)

	if err != nil {
		return &ConfigurationError{msg: "invalid configuration", err: err}
	}

	for name, value := range map[string]float64{
		"multiplier": *c.Multiplier,
		"jitterMin":  *c.JitterMin,
		"jitterMax":  *c.JitterMax,
	} {
		if math.IsInf(value, 0) || math.IsNaN(value) {
			return &ConfigurationError{msg: fmt.Sprintf("%s must be finite", name)}
		}
	}

	if *c.JitterMax < *c.JitterMin {
		return &ConfigurationError{
			msg: fmt.Sprintf("jitterMax %g must not be less than jitterMin %g", *c.JitterMax, *c.JitterMin),
		}
	}

	return nil
}

// ParseConfiguration parses a YAML configuration file. The result is a layer and
// is only validated once merged
func ParseConfiguration(filePath string) (*InjectionConfiguration, error) {
	var conf InjectionConfiguration

	yamlBytes, err := os.ReadFile(filePath)

	if err != nil {
		return nil, err
	}

	err = yaml.Unmarshal(yamlBytes, &conf)

	if err != nil {
		return nil, &ConfigurationError{msg: fmt.Sprintf("could not parse %s", filePath), err: err}
	}

	return &conf, nil
}

// LoadEnvironment reads the OUTLIERMASK_* environment variables into a layer
func LoadEnvironment() (*InjectionConfiguration, error) {
	var conf InjectionConfiguration

	err := envconfig.Process(EnvPrefix, &conf)

	if err != nil {
		var parseErr *envconfig.ParseError

		if errors.As(err, &parseErr) {
			return nil, &ConfigurationError{msg: fmt.Sprintf("invalid value for %s", parseErr.KeyName), err: parseErr.Err}
		}

		return nil, &ConfigurationError{msg: "could not read environment", err: err}
	}

	return &conf, nil
}

// MergeConfiguration: merges the configuration in precedence where the last
// element in the list takes the most and the first takes the least
func MergeConfiguration(cfgs ...InjectionConfiguration) (InjectionConfiguration, error) {
	var result InjectionConfiguration

	for _, cfg := range cfgs {
		if cfg.Input != nil {
			result.Input = cfg.Input
		}

		if cfg.Output != nil {
			result.Output = cfg.Output
		}

		if cfg.Format != nil {
			result.Format = cfg.Format
		}

		if cfg.Column != nil {
			result.Column = cfg.Column
		}

		if cfg.Count != nil {
			result.Count = cfg.Count
		}

		if cfg.Multiplier != nil {
			result.Multiplier = cfg.Multiplier
		}

		if cfg.Seed != nil {
			result.Seed = cfg.Seed
		}

		if cfg.Estimator != nil {
			result.Estimator = cfg.Estimator
		}

		if cfg.Placement != nil {
			result.Placement = cfg.Placement
		}

		if cfg.Template != nil {
			result.Template = cfg.Template
		}

		if cfg.JitterMin != nil {
			result.JitterMin = cfg.JitterMin
		}

		if cfg.JitterMax != nil {
			result.JitterMax = cfg.JitterMax
		}

		if cfg.PreserveIntegers != nil {
			result.PreserveIntegers = cfg.PreserveIntegers
		}

		if cfg.Report != nil {
			result.Report = cfg.Report
		}

		if cfg.ReportFormat != nil {
			result.ReportFormat = cfg.ReportFormat
		}

		if cfg.Query != nil {
			result.Query = cfg.Query
		}

		if cfg.LogLevel != nil {
			result.LogLevel = cfg.LogLevel
		}
	}

	return result, ValidateConfiguration(&result)
}

// StringOrEmpty dereferences an optional string attribute
func StringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
