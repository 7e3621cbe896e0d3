package export

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/zero-paper-user/internal/entity"
)

func TestReceiptsXLSX(t *testing.T) {
	recs := []entity.Receipt{
		{Date: "2023-12-25T14:30:00.000Z", Category: "medical", ProductName: "Ibuprofen", StoreName: "Apotheke", Price: 12.5, Currency: "EUR"},
		{Date: "not a date", Category: "business", ProductName: "Desk", StoreName: "Office", Price: 199, Currency: "USD", ValidUptoDate: "2025-01-01"},
	}

	b, err := ReceiptsXLSX(recs, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NotEmpty(t, b)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, headers, rows[0])
	assert.Equal(t, "2023-12-25", rows[1][0])
	assert.Equal(t, "Ibuprofen", rows[1][2])
	assert.Equal(t, "not a date", rows[2][0])
	assert.Equal(t, "2025-01-01", rows[2][7])

	raw, err := f.GetCellValue(SheetName, "F2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "12.5", raw)
}

func TestReceiptsXLSXEmpty(t *testing.T) {
	b, err := ReceiptsXLSX(nil, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
