package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/akamensky/argparse"
	"github.com/jmespath/go-jmespath"
	"github.com/tim-beatham/outliermask/pkg/conf"
	"github.com/tim-beatham/outliermask/pkg/dataset"
	"github.com/tim-beatham/outliermask/pkg/lib"
	logging "github.com/tim-beatham/outliermask/pkg/log"
	"github.com/tim-beatham/outliermask/pkg/outlier"
	"github.com/tim-beatham/outliermask/pkg/report"
	"golang.org/x/exp/rand"
)

const (
	exitSuccess = 0
	exitRuntime = 1
	exitUsage   = 2
)

// usageError: the arguments themselves are wrong, as opposed to a failure
// while running
type usageError struct {
	msg string
}

func (u *usageError) Error() string {
	return u.msg
}

type cliArgs struct {
	help          *bool
	input         *string
	output        *string
	format        *string
	column        *string
	count         *string
	multiplier    *string
	seed          *string
	estimator     *string
	placement     *string
	template      *string
	keepFractions *bool
	config        *string
	report        *string
	reportFormat  *string
	query         *string
	logLevel      *string
}

func newParser() (*argparse.Parser, *cliArgs) {
	parser := argparse.NewParser("outliermask",
		"outliermask Inject synthetic outliers into a numeric column to mask genuine ones")
	parser.DisableHelp()

	args := &cliArgs{}

	args.help = parser.Flag("h", "help", &argparse.Options{
		Help: "Print help information",
	})

	args.input = parser.String("i", "input", &argparse.Options{
		Help: "Path of the CSV or XLSX dataset to read",
	})

	args.output = parser.String("o", "output", &argparse.Options{
		Help: "Path the augmented dataset is written to",
	})

	args.format = parser.Selector("F", "format", []string{"csv", "xlsx"}, &argparse.Options{
		Help: "Format of the input and output. Derived from the file extension when omitted",
	})

	args.column = parser.String("c", "column", &argparse.Options{
		Help: "Name of the numeric column to inject outliers into",
	})

	args.count = parser.String("n", "count", &argparse.Options{
		Help: "Number of outliers to inject",
	})

	args.multiplier = parser.String("m", "multiplier", &argparse.Options{
		Help: "Number of standard deviations from the mean each outlier is at least placed",
	})

	args.seed = parser.String("s", "seed", &argparse.Options{
		Help: "Seed of the random source. Runs with the same seed produce the same output",
	})

	args.estimator = parser.Selector("e", "estimator", []string{"population", "sample"}, &argparse.Options{
		Help: "Standard deviation estimator",
	})

	args.placement = parser.Selector("p", "placement", []string{"append", "random"}, &argparse.Options{
		Help: "Append outlier rows to the end or insert them at random positions",
	})

	args.template = parser.Selector("t", "template", []string{"blank", "clone"}, &argparse.Options{
		Help: "Leave the other columns of an outlier row empty or copy them from a random row",
	})

	args.keepFractions = parser.Flag("k", "keep-fractions", &argparse.Options{
		Help: "Do not round outliers of integer columns",
	})

	args.config = parser.String("f", "config", &argparse.Options{
		Help: "YAML configuration file. Flags take precedence over it",
	})

	args.report = parser.String("r", "report", &argparse.Options{
		Help: "Path to write the injection report to",
	})

	args.reportFormat = parser.Selector("R", "report-format", []string{"json", "yaml"}, &argparse.Options{
		Help: "Encoding of the injection report",
	})

	args.query = parser.String("q", "query", &argparse.Options{
		Help: "JMESPath expression evaluated against the report, the result is printed to stdout",
	})

	args.logLevel = parser.Selector("l", "log-level", []string{"error", "warning", "info", "debug"}, &argparse.Options{
		Help: "Log verbosity",
	})

	return parser, args
}

func optionalString(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}

	value := *s
	return &value
}

// configuration converts the flags into the highest precedence layer
func (a *cliArgs) configuration() (conf.InjectionConfiguration, error) {
	cfg := conf.InjectionConfiguration{
		Input:        optionalString(a.input),
		Output:       optionalString(a.output),
		Format:       optionalString(a.format),
		Column:       optionalString(a.column),
		Estimator:    optionalString(a.estimator),
		Placement:    optionalString(a.placement),
		Template:     optionalString(a.template),
		Report:       optionalString(a.report),
		ReportFormat: optionalString(a.reportFormat),
		Query:        optionalString(a.query),
	}

	if level := optionalString(a.logLevel); level != nil {
		logLevel := conf.LogLevel(*level)
		cfg.LogLevel = &logLevel
	}

	if *a.keepFractions {
		preserve := false
		cfg.PreserveIntegers = &preserve
	}

	if count := optionalString(a.count); count != nil {
		value, err := strconv.Atoi(*count)

		if err != nil {
			return cfg, &usageError{msg: fmt.Sprintf("count must be an integer, got %q", *count)}
		}

		cfg.Count = &value
	}

	if multiplier := optionalString(a.multiplier); multiplier != nil {
		value, err := strconv.ParseFloat(*multiplier, 64)

		if err != nil {
			return cfg, &usageError{msg: fmt.Sprintf("multiplier must be a number, got %q", *multiplier)}
		}

		cfg.Multiplier = &value
	}

	if seed := optionalString(a.seed); seed != nil {
		value, err := strconv.ParseUint(*seed, 10, 64)

		if err != nil {
			return cfg, &usageError{msg: fmt.Sprintf("seed must be a non-negative integer, got %q", *seed)}
		}

		cfg.Seed = &value
	}

	return cfg, nil
}

// loadConfiguration merges defaults, the configuration file, the environment
// and the flags in increasing precedence
func loadConfiguration(args *cliArgs) (*conf.InjectionConfiguration, error) {
	flags, err := args.configuration()

	if err != nil {
		return nil, err
	}

	layers := []conf.InjectionConfiguration{conf.DefaultConfiguration()}

	if path := optionalString(args.config); path != nil {
		file, err := conf.ParseConfiguration(*path)

		if err != nil {
			return nil, err
		}

		layers = append(layers, *file)
	}

	env, err := conf.LoadEnvironment()

	if err != nil {
		return nil, err
	}

	layers = append(layers, *env, flags)

	merged, err := conf.MergeConfiguration(layers...)

	if err != nil {
		return nil, &usageError{msg: err.Error()}
	}

	if query := conf.StringOrEmpty(merged.Query); query != "" {
		if _, err := jmespath.Compile(query); err != nil {
			return nil, &usageError{msg: fmt.Sprintf("invalid query %q: %s", query, err.Error())}
		}
	}

	return &merged, nil
}

func generatorOptions(cfg *conf.InjectionConfiguration) outlier.Options {
	return outlier.Options{
		Estimator:        outlier.Estimator(*cfg.Estimator),
		Placement:        outlier.Placement(*cfg.Placement),
		Template:         outlier.Template(*cfg.Template),
		JitterMin:        *cfg.JitterMin,
		JitterMax:        *cfg.JitterMax,
		PreserveIntegers: *cfg.PreserveIntegers,
	}
}

// inject runs a single injection described by cfg
func inject(cfg *conf.InjectionConfiguration, stdout io.Writer) error {
	seed := uint64(time.Now().UnixNano())
	var idGenerator lib.IdGenerator = &lib.UUIDGenerator{}

	if cfg.Seed != nil {
		seed = *cfg.Seed
		idGenerator = lib.NewSeededIdGenerator(seed)
	}

	logging.Log.WriteDebugf("using seed %d", seed)

	generator, err := outlier.NewGenerator(rand.NewSource(seed), generatorOptions(cfg))

	if err != nil {
		return err
	}

	format := dataset.Format(conf.StringOrEmpty(cfg.Format))

	ds, err := dataset.Load(*cfg.Input, format)

	if err != nil {
		return err
	}

	logging.Log.WriteDebugf("loaded %d rows from %s", ds.Len(), *cfg.Input)

	augmented, injection, err := generator.Generate(ds, outlier.Spec{
		Count:      *cfg.Count,
		Column:     *cfg.Column,
		Multiplier: *cfg.Multiplier,
	})

	if err != nil {
		return err
	}

	if injection.FallbackSpread {
		logging.Log.WriteWarnf("column '%s' has no spread, using a standard deviation of %g", *cfg.Column, outlier.FallbackSpread)
	}

	reportPath := conf.StringOrEmpty(cfg.Report)
	query := conf.StringOrEmpty(cfg.Query)

	var r *report.Report
	var result []byte

	if reportPath != "" || query != "" {
		r, err = report.New(report.Params{
			Input:       *cfg.Input,
			Output:      *cfg.Output,
			IdGenerator: idGenerator,
		}, ds, injection)

		if err != nil {
			return err
		}
	}

	if query != "" {
		result, err = r.Query(query)

		if err != nil {
			return err
		}
	}

	if err := dataset.Save(*cfg.Output, format, augmented); err != nil {
		return err
	}

	if reportPath != "" {
		if err := r.Save(reportPath, report.Format(*cfg.ReportFormat)); err != nil {
			if removeErr := os.Remove(*cfg.Output); removeErr != nil {
				logging.Log.WriteWarnf("could not remove %s: %s", *cfg.Output, removeErr.Error())
			}

			return err
		}

		logging.Log.WriteInfof("report %s written to %s", r.ID, reportPath)
	}

	logging.Log.WriteInfof("injected %d outliers into column '%s'", len(injection.Values), *cfg.Column)

	if query != "" {
		fmt.Fprintln(stdout, string(result))
	}

	return nil
}

// run executes the command line and returns the exit code
func run(osArgs []string, stdout, stderr io.Writer) int {
	logging.SetLogger(logging.NewLogrusLogger(conf.INFO, stderr))

	parser, args := newParser()

	if err := parser.Parse(osArgs); err != nil {
		fmt.Fprint(stderr, parser.Usage(err))
		return exitUsage
	}

	if *args.help {
		fmt.Fprint(stdout, parser.Usage(nil))
		return exitSuccess
	}

	cfg, err := loadConfiguration(args)

	if err != nil {
		logging.Log.WriteErrorf("%s", err.Error())

		var usageErr *usageError

		if errors.As(err, &usageErr) {
			return exitUsage
		}

		return exitRuntime
	}

	logging.SetLogger(logging.NewLogrusLogger(*cfg.LogLevel, stderr))

	if err := inject(cfg, stdout); err != nil {
		logging.Log.WriteErrorf("%s", err.Error())
		return exitRuntime
	}

	return exitSuccess
}

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}
