package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"floatflow/models"
)

// PrintSummary echoes the report to w: a count line followed by up to
// maxRows formatted rows.
func PrintSummary(w io.Writer, rows []models.FloatRecord, cutoff int64, maxRows int) {
	fmt.Fprintf(w, "\nFound %d tickers with float <= %s\n", len(rows), groupDigits(cutoff))

	if len(rows) == 0 {
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Symbol", "Float", "Short Name", "Exchange", "Market Cap"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for i, r := range rows {
		if maxRows > 0 && i >= maxRows {
			break
		}
		table.Append([]string{
			r.Symbol,
			groupDigits(r.FloatValue()),
			derefString(r.ShortName),
			derefString(r.Exchange),
			formatMarketCap(r.MarketCap),
		})
	}

	table.Render()
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatMarketCap(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// groupDigits renders n with thousands separators, e.g. 10000000 ->
// "10,000,000".
func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}

	out := make([]byte, 0, len(s)+len(s)/3)
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}

	if neg {
		return "-" + string(out)
	}
	return string(out)
}
