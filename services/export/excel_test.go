package exportsvc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWorkbook(t *testing.T) {
	wb, err := NewWorkbook()
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()

	require.NoError(t, wb.AddSheet("Publishers", []string{"Code", "Total"}, [][]interface{}{
		{"PUB-1", 100},
		{},
		{"Total", 100},
	}))
	require.NoError(t, wb.AddSheet("Empty", []string{"Code"}, nil))

	buf := new(bytes.Buffer)
	require.NoError(t, wb.Write(buf))

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"Publishers", "Empty"}, f.GetSheetList())

	rows, err := f.GetRows("Publishers")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Code", "Total"}, rows[0])
	assert.Equal(t, []string{"PUB-1", "100"}, rows[1])
	assert.Empty(t, rows[2])
	assert.Equal(t, []string{"Total", "100"}, rows[3])
}

func TestWorkbook_duplicateSheet(t *testing.T) {
	wb, err := NewWorkbook()
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()

	require.NoError(t, wb.AddSheet("Bills", nil, nil))
	// excelize returns the existing sheet for an already used name
	require.NoError(t, wb.AddSheet("Bills", nil, [][]interface{}{{"x"}}))
}
