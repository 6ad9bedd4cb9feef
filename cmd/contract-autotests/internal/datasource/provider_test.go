package datasource

import (
	"fmt"
	"math/big"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gotest.tools/v3/fs"
)

func writeWorkbook(t *testing.T, path, sheet string, rows map[int][]interface{}) {
	f := excelize.NewFile()
	defer f.Close()
	if sheet != DefaultSheet {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	for index, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, index)
		require.NoError(t, err)
		row := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
}

func TestExcelRows(t *testing.T) {
	dir := fs.NewDir(t, "data", fs.WithDir("evm"))
	writeWorkbook(t, filepath.Join(dir.Path(), "evm", "test.xlsx"), DefaultSheet, map[int][]interface{}{
		1: {"Case", "Record", "Amount", "ENABLED"},
		2: {"first", "2-businessNo1-bizId1", 10, "y"},
		// row 3 left blank
		4: {"second", "3-businessNo2", "0x20"},
		5: {"disabled", "4-businessNo3", 1, "false"},
	})

	rows, err := NewProvider(dir.Path()).Rows(Source{File: "test.xlsx", SourcePrefix: "evm"})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 2, rows[0].Index())
	assert.Equal(t, "first", rows[0].String("case", ""))
	assert.Equal(t, "2-businessNo1-bizId1", rows[0].String("RECORD", ""))
	amount, err := rows[0].Int("amount", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(10), amount)

	assert.Equal(t, 4, rows[1].Index())
	big32, err := rows[1].BigInt("amount", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(32), big32.Int64())
	assert.Equal(t, "fallback", rows[1].String("enabled", "fallback"))
}

func TestExcelNamedSheet(t *testing.T) {
	dir := fs.NewDir(t, "data")
	writeWorkbook(t, filepath.Join(dir.Path(), "cases.xlsx"), "Tokens", map[int][]interface{}{
		1: {"symbol"},
		2: {"VID"},
	})
	provider := NewProvider(dir.Path())

	rows, err := provider.Rows(Source{File: "cases.xlsx", Sheet: "Tokens"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "VID", rows[0].String("symbol", ""))

	_, err = provider.Rows(Source{File: "cases.xlsx", Sheet: "Missing"})
	assert.Error(t, err)
}

func TestCSVRows(t *testing.T) {
	dir := fs.NewDir(t, "data", fs.WithFile("invoke.csv",
		"\ufeffMethod, Args ,Expect,enabled\n"+
			"store,42,,1\n"+
			"\n"+
			"retrieve,,42\n"+
			"greet,\"'hello world' 7\",,0\n"))

	rows, err := NewProvider(dir.Path()).Rows(Source{File: "invoke.csv"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "store", rows[0].String("method", ""))
	assert.Equal(t, 2, rows[0].Index())
	// the blank line still counts
	assert.Equal(t, 4, rows[1].Index())
	assert.Equal(t, "42", rows[1].String("expect", ""))
	assert.False(t, rows[1].Has("args"))
	assert.Equal(t, map[string]string{"method": "retrieve", "expect": "42"}, rows[1].Values())
}

func TestRowsErrors(t *testing.T) {
	dir := fs.NewDir(t, "data",
		fs.WithFile("dup.csv", "a,A\n1,2\n"),
		fs.WithFile("enabled.csv", "a,enabled\n1,maybe\n"),
	)
	provider := NewProvider(dir.Path())

	_, err := provider.Rows(Source{File: "dup.csv"})
	assert.EqualError(t, err, `duplicate column "a"`)

	_, err = provider.Rows(Source{File: "enabled.csv"})
	assert.EqualError(t, err, `row 2: column enabled: invalid boolean "maybe"`)

	_, err = provider.Rows(Source{File: "test.xls"})
	assert.EqualError(t, err, "test.xls: legacy .xls workbooks are not supported, save it as .xlsx")

	_, err = provider.Rows(Source{File: "missing.csv"})
	assert.ErrorContains(t, err, "could not read")

	_, err = provider.Rows(Source{File: "x.csv", Type: "parquet"})
	assert.EqualError(t, err, `x.csv: unknown source type "parquet"`)
}

func TestRowAccessors(t *testing.T) {
	row := NewRow(3, map[string]string{
		"Args":   `store "two words" 0x10`,
		"Flag":   "yes",
		"Number": "abc",
		"Quote":  `"unterminated`,
	})
	assert.Equal(t, 3, row.Index())

	args, err := row.Args("args")
	require.NoError(t, err)
	assert.Equal(t, []string{"store", "two words", "0x10"}, args)

	args, err = row.Args("none")
	require.NoError(t, err)
	assert.Nil(t, args)

	_, err = row.Args("quote")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "column quote: "), err.Error())
	assert.Contains(t, fmt.Sprintf("%+v", err), "row.go")

	flag, err := row.Bool("flag", false)
	require.NoError(t, err)
	assert.True(t, flag)
	flag, err = row.Bool("missing", true)
	require.NoError(t, err)
	assert.True(t, flag)

	_, err = row.Int("number", 0)
	assert.EqualError(t, err, `column number: invalid integer "abc"`)
	_, err = row.BigInt("number", nil)
	assert.EqualError(t, err, `column number: invalid integer "abc"`)
	def := big.NewInt(9)
	n, err := row.BigInt("missing", def)
	require.NoError(t, err)
	assert.Same(t, def, n)
}

func TestSourceDefaults(t *testing.T) {
	s := Source{File: "test.xlsx", SourcePrefix: "evm"}.WithDefaults()
	assert.Equal(t, TypeExcel, s.Type)
	assert.Equal(t, DefaultSheet, s.Sheet)
	assert.Equal(t, filepath.Join("data", "evm", "test.xlsx"), s.Path("data"))
	assert.Equal(t, "evm/test.xlsx#Sheet1", s.String())

	s = Source{File: "rows.CSV"}.WithDefaults()
	assert.Equal(t, TypeCSV, s.Type)
	assert.Equal(t, "rows.CSV", s.String())
	assert.Equal(t, "", Source{}.String())
}

func TestRowWithDefaults(t *testing.T) {
	dir := fs.NewDir(t, "data", fs.WithFile("rows.csv", "method,args,expect\nstore,42\nretrieve,,0\n"))
	rows, err := NewProvider(dir.Path()).Rows(Source{File: "rows.csv"})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	defaults := map[string]string{"Artifact": "SimpleStorage", "expect": "1", "method": "ignored"}
	first := rows[0].WithDefaults(defaults)
	assert.Equal(t, "SimpleStorage", first.String("artifact", ""))
	assert.Equal(t, "store", first.String("method", ""))
	assert.Equal(t, "1", first.String("expect", ""))
	assert.Equal(t, 2, first.Index())

	second := rows[1].WithDefaults(defaults)
	assert.Equal(t, "0", second.String("expect", ""))
	assert.Equal(t, "", second.String("args", ""))

	// the source rows are left alone
	assert.False(t, rows[0].Has("artifact"))
	assert.False(t, rows[0].Has("expect"))
	assert.Equal(t, rows[0], rows[0].WithDefaults(nil))
}

func TestShortRowWithDefaults(t *testing.T) {
	// trailing empty cells are missing from both readers
	dir := fs.NewDir(t, "data", fs.WithDir("evm", fs.WithFile("short.csv",
		"artifact,method,args,mode,expect\n"+
			"SimpleStorage,retrieve\n"+
			"SimpleStorage,store,7\n")))
	writeWorkbook(t, filepath.Join(dir.Path(), "evm", "short.xlsx"), DefaultSheet, map[int][]interface{}{
		1: {"artifact", "method", "args", "mode"},
		2: {"SimpleStorage", "retrieve"},
	})
	provider := NewProvider(dir.Path())
	defaults := map[string]string{"mode": "call", "owner": "0x01"}

	for _, file := range []string{"short.xlsx", "short.csv"} {
		rows, err := provider.Rows(Source{File: file, SourcePrefix: "evm"})
		require.NoError(t, err, file)
		require.NotEmpty(t, rows, file)

		row := rows[0].WithDefaults(defaults)
		assert.Equal(t, "retrieve", row.String("method", ""), file)
		assert.Equal(t, "call", row.String("mode", ""), file)
		assert.Equal(t, "0x01", row.String("owner", ""), file)
		assert.False(t, row.Has("args"), file)
		args, err := row.Args("args")
		require.NoError(t, err, file)
		assert.Empty(t, args, file)
		assert.Equal(t, 2, row.Index(), file)
	}

	rows, err := provider.Rows(Source{File: "short.csv", SourcePrefix: "evm"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	row := rows[1].WithDefaults(map[string]string{"expect": "7"})
	assert.Equal(t, []string{"7"}, mustArgs(t, row, "args"))
	assert.Equal(t, "7", row.String("expect", ""))
	assert.False(t, row.Has("mode"))
}

func mustArgs(t *testing.T, row Row, column string) []string {
	args, err := row.Args(column)
	require.NoError(t, err)
	return args
}
