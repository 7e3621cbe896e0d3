package receipts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/zero-paper-user/internal/common"
)

func validDoc() map[string]any {
	return map[string]any{
		"uid":         "u-1",
		"price":       "12.50",
		"productName": "Ibuprofen",
		"category":    "medical",
		"date":        "25.12.2023 14:30",
		"storeName":   "Apotheke",
		"currency":    "EUR",
		"extra":       "kept",
	}
}

func TestPrepareCreate(t *testing.T) {
	doc := validDoc()
	out, err := PrepareCreate(doc)
	require.NoError(t, err)

	assert.Equal(t, 12.5, out["price"])
	assert.Equal(t, "2023-12-25T14:30:00.000Z", out["date"])
	assert.Equal(t, "kept", out["extra"])
	// input is not modified
	assert.Equal(t, "12.50", doc["price"])
}

func TestPrepareCreateMissingFields(t *testing.T) {
	doc := validDoc()
	delete(doc, "uid")
	doc["storeName"] = "  "

	_, err := PrepareCreate(doc)
	var invalid *InvalidReceiptError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, []string{"uid", "storeName"}, invalid.Fields)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestPrepareCreateBadPrice(t *testing.T) {
	doc := validDoc()
	doc["price"] = "free"

	_, err := PrepareCreate(doc)
	var invalid *InvalidReceiptError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, []string{"price"}, invalid.Fields)
}

func TestPrepareCreateBadDate(t *testing.T) {
	doc := validDoc()
	doc["validUptoDate"] = "31.02.2024"

	_, err := PrepareCreate(doc)
	var invalid *InvalidReceiptError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, []string{"validUptoDate"}, invalid.Fields)
}

func TestPrepareCreateSchemaTypes(t *testing.T) {
	doc := validDoc()
	doc["productName"] = 42.0

	_, err := PrepareCreate(doc)
	var invalid *InvalidReceiptError
	require.True(t, errors.As(err, &invalid))
	assert.Contains(t, invalid.Fields, "productName")
}

func TestPrepareCreateDropsBlankOptionalDates(t *testing.T) {
	doc := validDoc()
	doc["refundableUptoDate"] = ""

	out, err := PrepareCreate(doc)
	require.NoError(t, err)
	_, ok := out["refundableUptoDate"]
	assert.False(t, ok)
}

func TestPrepareCreateNil(t *testing.T) {
	_, err := PrepareCreate(nil)
	assert.Error(t, err)
}
