package report

import (
	"bytes"
	"fmt"
	"os"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"floatflow/models"
)

// parquetRow mirrors the CSV schema. Optional fields flatten to their zero
// value; float is always present because only filtered rows are written.
type parquetRow struct {
	Symbol    string  `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	Float     int64   `parquet:"name=float, type=INT64"`
	ShortName string  `parquet:"name=shortName, type=BYTE_ARRAY, convertedtype=UTF8"`
	Exchange  string  `parquet:"name=exchange, type=BYTE_ARRAY, convertedtype=UTF8"`
	MarketCap float64 `parquet:"name=marketCap, type=DOUBLE"`
}

// memoryFile implements source.ParquetFile for in-memory writing.
type memoryFile struct {
	buffer *bytes.Buffer
}

func newMemoryFile() *memoryFile {
	return &memoryFile{buffer: &bytes.Buffer{}}
}

func (mf *memoryFile) Create(name string) (source.ParquetFile, error) {
	return mf, nil
}

func (mf *memoryFile) Open(name string) (source.ParquetFile, error) {
	return mf, nil
}

func (mf *memoryFile) Seek(offset int64, whence int) (int64, error) {
	// Write-only usage; report the current end of the buffer.
	return int64(mf.buffer.Len()), nil
}

func (mf *memoryFile) Read(b []byte) (int, error) {
	return mf.buffer.Read(b)
}

func (mf *memoryFile) Write(b []byte) (int, error) {
	return mf.buffer.Write(b)
}

func (mf *memoryFile) Close() error {
	return nil
}

func (mf *memoryFile) Bytes() []byte {
	return mf.buffer.Bytes()
}

// MarshalParquet encodes the report rows as a snappy-compressed parquet
// payload.
func MarshalParquet(rows []models.FloatRecord) ([]byte, error) {
	mf := newMemoryFile()

	pw, err := writer.NewParquetWriter(mf, new(parquetRow), 2)
	if err != nil {
		return nil, fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, r := range rows {
		row := parquetRow{
			Symbol: r.Symbol,
			Float:  r.FloatValue(),
		}
		if r.ShortName != nil {
			row.ShortName = *r.ShortName
		}
		if r.Exchange != nil {
			row.Exchange = *r.Exchange
		}
		if r.MarketCap != nil {
			row.MarketCap = *r.MarketCap
		}
		if err := pw.Write(row); err != nil {
			return nil, fmt.Errorf("write parquet row: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("finalize parquet payload: %w", err)
	}

	return mf.Bytes(), nil
}

// WriteParquet writes the parquet copy of the report to path.
func WriteParquet(rows []models.FloatRecord, path string) error {
	data, err := MarshalParquet(rows)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write parquet file: %w", err)
	}
	return nil
}
