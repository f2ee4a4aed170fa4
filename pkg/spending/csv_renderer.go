package spending

import (
	"bytes"
	"encoding/csv"

	"github.com/adamkim-dev/tripsaver/internal/utils"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type Renderer interface {
	Render(entries []DailySpendingLog) (string, error)
}

type CsvRendererImpl struct{}

func NewCsvRenderer() *CsvRendererImpl {
	return &CsvRendererImpl{}
}

// Render writes one row per logged day followed by a total row. Dates use the
// ISO layout so spreadsheets sort them correctly.
func (c *CsvRendererImpl) Render(entries []DailySpendingLog) (string, error) {
	data := make([][]string, 0, len(entries)+2)
	data = append(data, []string{"Date", "Amount spent"})

	total := decimal.Zero
	for _, e := range entries {
		amount := decimal.NewFromFloat(e.AmountSpent)
		total = total.Add(amount)
		data = append(data, []string{e.Date.Format(utils.DateLayout), amount.StringFixed(2)})
	}
	data = append(data, []string{"Total", total.StringFixed(2)})

	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	if err := writer.WriteAll(data); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return "", err
	}
	return b.String(), nil
}
