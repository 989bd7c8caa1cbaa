package report

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"floatflow/models"
)

// WriteCSV serializes the report rows to path with the header
// symbol,float,shortName,exchange,marketCap. An empty report still gets a
// header row.
func WriteCSV(rows []models.FloatRecord, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return fmt.Errorf("write report file: %w", err)
	}

	return nil
}
