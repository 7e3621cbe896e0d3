package receipts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/zero-paper-user/internal/entity"
)

func TestSummarize(t *testing.T) {
	list := []entity.Receipt{
		{Category: "Pharmacy", Price: 10.10, Currency: "eur", Date: "2024-01-05T10:00:00.000Z", StoreName: "Apotheke"},
		{Category: "medical", Price: 0.20, Currency: "EUR", Date: "2024-01-20T10:00:00.000Z", StoreName: "Apotheke"},
		{Category: "business", Price: 99, Currency: "USD", Date: "2024-02-01T10:00:00.000Z", StoreName: "Staples"},
		{Category: "weird", Price: 1, Currency: "", Date: "", StoreName: ""},
	}

	s := Summarize(list)
	assert.Equal(t, 4, s.Count)

	require.Len(t, s.Totals, 2)
	assert.Equal(t, "EUR", s.Totals[0].Currency)
	assert.Equal(t, "11.3", s.Totals[0].Total.String())
	assert.Equal(t, 3, s.Totals[0].Count)
	assert.Equal(t, "USD", s.Totals[1].Currency)
	assert.Equal(t, "99", s.Totals[1].Total.String())

	require.Len(t, s.Averages, 2)
	assert.Equal(t, "3.77", s.Averages[0].Total.String())

	cats := map[string]string{}
	for _, b := range s.ByCategory {
		cats[b.Key+"/"+b.Currency] = b.Total.String()
	}
	assert.Equal(t, "10.3", cats["medical/EUR"])
	assert.Equal(t, "99", cats["business/USD"])
	assert.Equal(t, "1", cats["other/EUR"])

	months := map[string]int{}
	for _, b := range s.ByMonth {
		months[b.Key] += b.Count
	}
	assert.Equal(t, 2, months["2024-01"])
	assert.Equal(t, 1, months["2024-02"])
	assert.Equal(t, 1, months["unknown"])

	require.NotEmpty(t, s.TopStores)
	assert.Equal(t, "Staples", s.TopStores[0].Key)
	assert.Equal(t, "Apotheke", s.TopStores[1].Key)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.Count)
	assert.Empty(t, s.Totals)
	assert.Empty(t, s.TopStores)
}
