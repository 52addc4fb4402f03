package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"fleet-report-builder/internal/model"
)

func TestParseTable(t *testing.T) {
	testCases := []struct {
		name    string
		body    string
		columns []string
		rows    [][]string
	}{
		{
			name:    "array of objects",
			body:    `[{"label":"Van","hours":12.5},{"label":"Truck","active":true}]`,
			columns: []string{"active", "hours", "label"},
			rows:    [][]string{{"", "12.5", "Van"}, {"true", "", "Truck"}},
		},
		{
			name:    "list envelope",
			body:    `{"success":true,"list":[{"id":1}]}`,
			columns: []string{"id"},
			rows:    [][]string{{"1"}},
		},
		{
			name:    "data envelope with nested value",
			body:    `{"data":[{"pos":{"lat":1}}]}`,
			columns: []string{"pos"},
			rows:    [][]string{{`{"lat":1}`}},
		},
		{
			name:    "single object",
			body:    `{"total":3}`,
			columns: []string{"total"},
			rows:    [][]string{{"3"}},
		},
		{
			name:    "scalars",
			body:    `["a","b"]`,
			columns: []string{"value"},
			rows:    [][]string{{"a"}, {"b"}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			table, err := ParseTable("T", []byte(tc.body))
			require.NoError(t, err)
			assert.Equal(t, "T", table.Title)
			assert.Equal(t, tc.columns, table.Columns)
			assert.Equal(t, tc.rows, table.Rows)
		})
	}
}

func TestParseTable_Invalid(t *testing.T) {
	for _, body := range []string{`{"list":{}}`, `"text"`, `{broken`, ``} {
		_, err := ParseTable("T", []byte(body))
		assert.Error(t, err, body)
	}
}

func TestRenderer_XLSX(t *testing.T) {
	out, err := NewRenderer().Render("Stale GPS", []byte(`[{"label":"Van","days":3}]`), model.FormatXLSX)
	require.NoError(t, err)

	file, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer file.Close()

	title, err := file.GetCellValue(sheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Stale GPS", title)

	header, _ := file.GetCellValue(sheetName, "B3")
	assert.Equal(t, "label", header)
	value, _ := file.GetCellValue(sheetName, "B4")
	assert.Equal(t, "Van", value)
}

func TestRenderer_PDF(t *testing.T) {
	out, err := NewRenderer().Render("Check-ins", []byte(`[{"label":"Café","n":1}]`), model.FormatPDF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	empty, err := NewRenderer().Render("Nothing", []byte(`[]`), model.FormatPDF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(empty, []byte("%PDF")))
}

func TestRenderer_XLSXCellTooLong(t *testing.T) {
	table := Table{
		Title:   "Notes",
		Columns: []string{"note"},
		Rows:    [][]string{{strings.Repeat("x", excelize.TotalCellChars+1)}},
	}

	_, err := NewRenderer().XLSX(table)
	assert.Error(t, err)
}
