package history

import (
	"io"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
)

// csvRow is the exported shape of a record. Full payloads are not exported.
type csvRow struct {
	ID      string `csv:"id"`
	Date    string `csv:"date"`
	Symbol  string `csv:"symbol"`
	Tier    string `csv:"tier"`
	Cost    string `csv:"cost"`
	Verdict string `csv:"verdict"`
	Status  string `csv:"status"`
	Results bool   `csv:"has_results"`
}

// WriteCSV writes records as CSV with a header row.
func WriteCSV(w io.Writer, records []Record) error {
	rows := make([]csvRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, csvRow{
			ID:      r.ID,
			Date:    r.Date.Format(time.RFC3339),
			Symbol:  r.Symbol,
			Tier:    r.Tier,
			Cost:    strconv.FormatFloat(r.Cost, 'f', 2, 64),
			Verdict: r.Verdict,
			Status:  r.Status,
			Results: r.HasResults(),
		})
	}
	return gocsv.Marshal(&rows, w)
}
