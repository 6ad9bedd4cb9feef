package suite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/fs"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/datasource"
)

const manifest = `
name: contracts
author: qa
cases:
  - name: VIDToken
    case: evm.VIDToken
    source:
      file: test.xlsx
      source_prefix: evm
      author: qcxiao
      show_name: complexcontracts.EVMVIDTokenTest
  - name: OrderDao
    case: csdc.OrderDao
    show_name: OrderDaoTest
    author: hudenian
    params:
      biz_id: "2"
  - name: Storage
    case: generic.Invoke
    source:
      file: storage.csv
    params:
      artifact: SimpleStorage
`

func knownKinds(kinds ...string) func(string) bool {
	return func(kind string) bool {
		for _, k := range kinds {
			if k == kind {
				return true
			}
		}
		return false
	}
}

func TestParse(t *testing.T) {
	s, err := Parse(strings.NewReader(manifest))
	require.NoError(t, err)
	require.Len(t, s.Cases, 3)

	token := s.Cases[0]
	assert.Equal(t, "qcxiao", token.Author)
	assert.Equal(t, "complexcontracts.EVMVIDTokenTest", token.ShowName)
	assert.Equal(t, datasource.TypeExcel, token.Source.Type)
	assert.Equal(t, datasource.DefaultSheet, token.Source.Sheet)

	dao := s.Cases[1]
	assert.Equal(t, "hudenian", dao.Author)
	assert.Nil(t, dao.Source)
	assert.Equal(t, map[string]string{"biz_id": "2"}, dao.Params)

	storage := s.Cases[2]
	assert.Equal(t, "qa", storage.Author)
	assert.Equal(t, "Storage", storage.ShowName)
	assert.Equal(t, datasource.TypeCSV, storage.Source.Type)

	assert.NoError(t, s.Validate(knownKinds("evm.VIDToken", "csdc.OrderDao", "generic.Invoke")))
}

func TestLoad(t *testing.T) {
	dir := fs.NewDir(t, "suite",
		fs.WithFile("suite.yaml", manifest),
		fs.WithFile("typo.yaml", "name: x\ncasses: []\n"),
		fs.WithFile("empty.yaml", ""),
	)

	s, err := Load(dir.Join("suite.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "contracts", s.Name)

	_, err = Load(dir.Join("typo.yaml"))
	assert.ErrorContains(t, err, "field casses not found")

	_, err = Load(dir.Join("empty.yaml"))
	assert.ErrorContains(t, err, "empty suite")

	_, err = Load(dir.Join("missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	all := knownKinds("evm.VIDToken", "generic.Invoke")

	assert.EqualError(t, (&Suite{Name: "none"}).Validate(all), "suite none has no cases")

	s := &Suite{Cases: []Entry{{Name: "a", Kind: "evm.VIDToken"}, {Name: "a", Kind: "evm.VIDToken"}}}
	assert.EqualError(t, s.Validate(all), "duplicate case name a")

	s = &Suite{Cases: []Entry{{Name: "a", Kind: "evm.Nope"}}}
	assert.EqualError(t, s.Validate(all), `case a: unknown case "evm.Nope"`)

	s = &Suite{Cases: []Entry{{Kind: "evm.VIDToken"}}}
	assert.EqualError(t, s.Validate(all), "case 0 has no name")

	s = &Suite{Cases: []Entry{{Name: "a", Kind: "generic.Invoke", Source: &datasource.Source{File: "test.xls", Type: datasource.TypeExcel, Sheet: "Sheet1"}}}}
	assert.EqualError(t, s.Validate(all), "case a: test.xls: legacy .xls workbooks are not supported, save it as .xlsx")
}

func TestFilter(t *testing.T) {
	s, err := Parse(strings.NewReader(manifest))
	require.NoError(t, err)

	filtered, err := s.Filter(nil)
	require.NoError(t, err)
	assert.Len(t, filtered.Cases, 3)

	filtered, err = s.Filter([]string{"evm.*", "Storage"})
	require.NoError(t, err)
	require.Len(t, filtered.Cases, 2)
	assert.Equal(t, "VIDToken", filtered.Cases[0].Name)
	assert.Equal(t, "Storage", filtered.Cases[1].Name)

	filtered, err = s.Filter([]string{"nothing*"})
	require.NoError(t, err)
	assert.Empty(t, filtered.Cases)

	_, err = s.Filter([]string{"[unclosed"})
	assert.ErrorContains(t, err, `invalid case pattern "[unclosed"`)
}
