package main

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/squareup/rowstore/errors"
	"github.com/squareup/rowstore/rowdef"
	"github.com/stretchr/testify/require"
)

const testDef = "7:id BIGINT, name VARCHAR(32), score DOUBLE"

func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "rowtool")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = os.RemoveAll(dir)
	})
	return dir
}

func runTool(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	err := run(args, out)
	return out.String(), err
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	cfgFile := filepath.Join(dir, "rowtool.hcl")
	hcl := fmt.Sprintf("storage-type = \"pebble\"\ndata-dir = %q\nlog-level = \"warn\"\n", filepath.Join(dir, "data"))
	require.NoError(t, ioutil.WriteFile(cfgFile, []byte(hcl), 0o600))
	return cfgFile
}

func TestEncodeAndDump(t *testing.T) {
	dir := tempDir(t)
	input := filepath.Join(dir, "rows.json")
	records := filepath.Join(dir, "rows.dat")
	lines := `[1, "alice", 1.5]

[2, null, 2.5]
[3, "", null]
`
	require.NoError(t, ioutil.WriteFile(input, []byte(lines), 0o600))

	out, err := runTool(t, "encode", "--def", testDef, "--input", input, "--out", records)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "wrote 3 records"))

	out, err = runTool(t, "dump", "--def", testDef, records)
	require.NoError(t, err)
	dumped := strings.Split(strings.TrimSpace(out), "\n")
	require.Equal(t, 3, len(dumped))
	require.True(t, strings.HasPrefix(dumped[0], "0: "))
	require.Contains(t, dumped[0], "alice")
	require.Contains(t, dumped[1], "null")
}

func TestDumpUnknownRowDef(t *testing.T) {
	dir := tempDir(t)
	input := filepath.Join(dir, "rows.json")
	records := filepath.Join(dir, "rows.dat")
	require.NoError(t, ioutil.WriteFile(input, []byte("[1, \"a\", 1]\n"), 0o600))
	_, err := runTool(t, "encode", "--def", testDef, "--input", input, "--out", records)
	require.NoError(t, err)

	_, err = runTool(t, "dump", "--def", "8:id BIGINT", records)
	require.Error(t, err)
	require.True(t, errors.HasCode(err, errors.UnknownRowDef))
}

func TestDumpCorruptFile(t *testing.T) {
	dir := tempDir(t)
	records := filepath.Join(dir, "rows.dat")
	require.NoError(t, ioutil.WriteFile(records, []byte("definitely not a record file"), 0o600))
	_, err := runTool(t, "dump", "--def", testDef, records)
	require.Error(t, err)
	require.True(t, errors.HasCode(err, errors.CorruptRowData))
}

func TestPutGetScanDelete(t *testing.T) {
	dir := tempDir(t)
	cfgFile := writeConfig(t, dir)

	_, err := runTool(t, "--config", cfgFile, "put", "--def", testDef, "1", `[1, "alice", 1.5]`)
	require.NoError(t, err)
	_, err = runTool(t, "--config", cfgFile, "put", "--def", testDef, "2", `[2, "bob", null]`)
	require.NoError(t, err)

	out, err := runTool(t, "--config", cfgFile, "get", "--def", testDef, "1")
	require.NoError(t, err)
	require.Contains(t, out, "alice")

	out, err = runTool(t, "--config", cfgFile, "scan", "--def", testDef)
	require.NoError(t, err)
	scanned := strings.Split(strings.TrimSpace(out), "\n")
	require.Equal(t, 2, len(scanned))
	require.True(t, strings.HasPrefix(scanned[1], "2: "))

	_, err = runTool(t, "--config", cfgFile, "delete", "--def", testDef, "1")
	require.NoError(t, err)
	out, err = runTool(t, "--config", cfgFile, "get", "--def", testDef, "1")
	require.NoError(t, err)
	require.Equal(t, "row 1 not found\n", out)
}

func TestPutInvalidValues(t *testing.T) {
	dir := tempDir(t)
	cfgFile := writeConfig(t, dir)
	_, err := runTool(t, "--config", cfgFile, "put", "--def", testDef, "1", `[1, "alice"]`)
	require.Error(t, err)
	require.True(t, errors.HasCode(err, errors.WrongNumberOfValues))

	_, err = runTool(t, "--config", cfgFile, "put", "--def", testDef, "1", `[1, 2, 3]`)
	require.Error(t, err)
	require.True(t, errors.HasCode(err, errors.ValueOutOfRange))
}

func TestPebbleRequiresDataDir(t *testing.T) {
	_, err := runTool(t, "get", "--def", testDef, "1")
	require.Error(t, err)
	require.True(t, errors.HasCode(err, errors.InvalidConfiguration))
}

func TestParseRowDefFlag(t *testing.T) {
	rd, err := parseRowDefFlag(testDef)
	require.NoError(t, err)
	require.Equal(t, int32(7), rd.ID())
	require.Equal(t, 3, rd.FieldCount())

	for _, def := range []string{"id BIGINT", "x:id BIGINT", "0:id BIGINT", "-3:id BIGINT"} {
		_, err := parseRowDefFlag(def)
		require.Error(t, err, def)
		require.True(t, errors.HasCode(err, errors.InvalidDescriptor), def)
	}
}

func TestParseValues(t *testing.T) {
	rd, err := rowdef.ParseRowDef(1, "a TINYINT, b UBIGINT, c FLOAT, d VARBINARY(4)")
	require.NoError(t, err)
	values, err := parseValues(rd, `[-3, 18446744073709551615, 0.5, "ab"]`)
	require.NoError(t, err)
	require.Equal(t, []interface{}{int64(-3), uint64(18446744073709551615), 0.5, "ab"}, values)

	_, err = parseValues(rd, `[1.5, 1, 1, "ab"]`)
	require.True(t, errors.HasCode(err, errors.ValueOutOfRange))
	_, err = parseValues(rd, `{"a": 1}`)
	require.True(t, errors.HasCode(err, errors.ValueOutOfRange))

	for _, row := range []string{`[1, 1, 1, "a"] trailing junk`, `[1, 1, 1, "a"] [2, 2, 2, "b"]`, `[1, 1, 1, "a"]]`} {
		_, err = parseValues(rd, row)
		require.True(t, errors.HasCode(err, errors.ValueOutOfRange), row)
	}
	_, err = parseValues(rd, "  [1, 1, 1, \"a\"]  \n")
	require.NoError(t, err)
}
