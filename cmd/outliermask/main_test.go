package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tim-beatham/outliermask/pkg/dataset"
	"github.com/tim-beatham/outliermask/pkg/report"
	"gopkg.in/yaml.v3"
)

const exampleCSV = "id,amount\na,1\nb,2\nc,3\nd,4\ne,5\n"

func writeInput(t *testing.T, contents string) (dir, input string) {
	t.Helper()

	dir = t.TempDir()
	input = filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(input, []byte(contents), 0644))

	return dir, input
}

func runArgs(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"outliermask"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestHelpExitsZero(t *testing.T) {
	code, stdout, _ := runArgs("--help")

	assert.Equal(t, exitSuccess, code)
	assert.Contains(t, stdout, "--column")
	assert.Contains(t, stdout, "--multiplier")
}

func TestUnknownFlagIsUsageError(t *testing.T) {
	code, _, stderr := runArgs("--bogus", "1")

	assert.Equal(t, exitUsage, code)
	assert.NotEmpty(t, stderr)
}

func TestMissingArgumentsIsUsageError(t *testing.T) {
	_, input := writeInput(t, exampleCSV)

	code, _, stderr := runArgs("-i", input, "-c", "amount", "-n", "2", "-m", "3")

	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "Output")
}

func TestBadNumbersAreUsageErrors(t *testing.T) {
	dir, input := writeInput(t, exampleCSV)
	output := filepath.Join(dir, "out.csv")

	cases := map[string][]string{
		"count not integer":   {"-n", "two", "-m", "3"},
		"count zero":          {"-n", "0", "-m", "3"},
		"multiplier invalid":  {"-n", "2", "-m", "x"},
		"multiplier negative": {"-n", "2", "-m", "-1.5"},
		"seed negative":       {"-n", "2", "-m", "3", "-s", "-4"},
	}

	for name, extra := range cases {
		t.Run(name, func(t *testing.T) {
			args := append([]string{"-i", input, "-o", output, "-c", "amount"}, extra...)
			code, _, _ := runArgs(args...)

			assert.Equal(t, exitUsage, code)
			assert.NoFileExists(t, output)
		})
	}
}

func TestInjectAppendsOutliers(t *testing.T) {
	dir, input := writeInput(t, exampleCSV)
	output := filepath.Join(dir, "out.csv")

	code, stdout, stderr := runArgs("-i", input, "-o", output, "-c", "amount",
		"-n", "2", "-m", "3", "-s", "42", "-q", "values[*].value")

	require.Equal(t, exitSuccess, code, stderr)
	assert.Contains(t, stderr, "injected 2 outliers into column 'amount'")

	ds, err := dataset.Load(output, "")
	require.NoError(t, err)
	require.Equal(t, 7, ds.Len())
	assert.Equal(t, []string{"id", "amount"}, ds.Header)

	var values []float64
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(stdout)), &values))
	require.Len(t, values, 2)

	for i, v := range values {
		assert.True(t, v <= -1.24 || v >= 7.24, "value %g is not an outlier", v)
		assert.Equal(t, dataset.FormatNumber(v), ds.Rows[5+i]["amount"])
		assert.Equal(t, "", ds.Rows[5+i]["id"])
	}
}

func TestSameSeedSameOutput(t *testing.T) {
	dir, input := writeInput(t, exampleCSV)
	first := filepath.Join(dir, "first.csv")
	second := filepath.Join(dir, "second.csv")

	for _, output := range []string{first, second} {
		code, _, stderr := runArgs("-i", input, "-o", output, "-c", "amount",
			"-n", "3", "-m", "2", "-s", "7", "-p", "random", "-t", "clone")
		require.Equal(t, exitSuccess, code, stderr)
	}

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)

	assert.Equal(t, string(a), string(b))
}

func TestRuntimeErrorsExitOne(t *testing.T) {
	dir, input := writeInput(t, exampleCSV)
	text, err := os.CreateTemp(dir, "*.csv")
	require.NoError(t, err)
	_, err = text.WriteString("name\nalice\nbob\n")
	require.NoError(t, err)
	require.NoError(t, text.Close())

	huge := filepath.Join(dir, "huge.csv")
	require.NoError(t, os.WriteFile(huge, []byte("amount\n1e200\n-1e200\n3\n"), 0644))

	output := filepath.Join(dir, "out.csv")

	cases := map[string][]string{
		"missing column":     {"-i", input, "-c", "price"},
		"non numeric column": {"-i", text.Name(), "-c", "name"},
		"missing input":      {"-i", filepath.Join(dir, "absent.csv"), "-c", "amount"},
		"query type error":   {"-i", input, "-c", "amount", "-q", "abs(column)"},
		"report unwritable":  {"-i", input, "-c", "amount", "-r", filepath.Join(dir, "missing", "report.json")},
		"huge values":        {"-i", huge, "-c", "amount"},
	}

	for name, extra := range cases {
		t.Run(name, func(t *testing.T) {
			args := append([]string{"-o", output, "-n", "1", "-m", "2"}, extra...)
			code, _, stderr := runArgs(args...)

			assert.Equal(t, exitRuntime, code)
			assert.Contains(t, stderr, "level=error")
			assert.NoFileExists(t, output)
		})
	}
}

func TestInvalidQueryIsUsageError(t *testing.T) {
	dir, input := writeInput(t, exampleCSV)
	output := filepath.Join(dir, "out.csv")

	code, _, stderr := runArgs("-i", input, "-o", output, "-c", "amount", "-n", "1", "-m", "2", "-q", "values[")

	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "invalid query")
	assert.NoFileExists(t, output)
}

func TestInfiniteMultiplierIsUsageError(t *testing.T) {
	dir, input := writeInput(t, exampleCSV)
	output := filepath.Join(dir, "out.csv")

	code, _, _ := runArgs("-i", input, "-o", output, "-c", "amount", "-n", "1", "-m", "inf")

	assert.Equal(t, exitUsage, code)
	assert.NoFileExists(t, output)
}

func TestErrorMessageKeepsPercentSigns(t *testing.T) {
	dir, _ := writeInput(t, exampleCSV)
	missing := filepath.Join(dir, "100%done.csv")

	code, _, stderr := runArgs("-i", missing, "-o", filepath.Join(dir, "out.csv"), "-c", "amount", "-n", "1", "-m", "2")

	assert.Equal(t, exitRuntime, code)
	assert.Contains(t, stderr, "100%done.csv")
	assert.NotContains(t, stderr, "%!")
}

func TestConfigurationFileAndFlagPrecedence(t *testing.T) {
	dir, input := writeInput(t, exampleCSV)
	output := filepath.Join(dir, "out.csv")
	reportPath := filepath.Join(dir, "report.yaml")
	config := filepath.Join(dir, "config.yaml")

	contents := "input: " + input + "\n" +
		"output: " + output + "\n" +
		"column: amount\n" +
		"count: 5\n" +
		"multiplier: 2\n" +
		"seed: 3\n" +
		"reportFormat: yaml\n"

	require.NoError(t, os.WriteFile(config, []byte(contents), 0644))

	code, _, stderr := runArgs("-f", config, "-n", "1", "-r", reportPath)
	require.Equal(t, exitSuccess, code, stderr)

	ds, err := dataset.Load(output, "")
	require.NoError(t, err)
	assert.Equal(t, 6, ds.Len())

	reportBytes, err := os.ReadFile(reportPath)
	require.NoError(t, err)

	var decoded report.Report
	require.NoError(t, yaml.Unmarshal(reportBytes, &decoded))
	assert.Equal(t, 1, decoded.Count)
	assert.Equal(t, 2.0, decoded.Multiplier)
	assert.Equal(t, input, decoded.Input)
	assert.Len(t, decoded.Values, 1)
}

func TestMissingConfigurationFileExitsOne(t *testing.T) {
	code, _, _ := runArgs("-f", filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Equal(t, exitRuntime, code)
}

func TestEnvironmentLayer(t *testing.T) {
	dir, input := writeInput(t, exampleCSV)
	output := filepath.Join(dir, "out.csv")

	t.Setenv("OUTLIERMASK_COLUMN", "amount")
	t.Setenv("OUTLIERMASK_COUNT", "4")
	t.Setenv("OUTLIERMASK_MULTIPLIER", "1.5")

	code, stdout, stderr := runArgs("-i", input, "-o", output, "-q", "count")
	require.Equal(t, exitSuccess, code, stderr)
	assert.Equal(t, "4", strings.TrimSpace(stdout))
}

func TestXLSXOutput(t *testing.T) {
	dir, input := writeInput(t, exampleCSV)
	output := filepath.Join(dir, "out.xlsx")

	code, _, stderr := runArgs("-i", input, "-o", output, "-c", "amount", "-n", "2", "-m", "3", "-s", "1")
	require.Equal(t, exitSuccess, code, stderr)

	ds, err := dataset.Load(output, "")
	require.NoError(t, err)
	assert.Equal(t, 7, ds.Len())
}
