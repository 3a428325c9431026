package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/aluiziolira/pricescout/models"
)

// CSVHeader is the column order shared by CSV export and ImportCSV.
var CSVHeader = []string{
	"productName", "platform", "price", "originalPrice", "discount",
	"inStock", "rating", "reviews", "url", "category",
}

// OutputWriter receives exported products.
type OutputWriter interface {
	Write(products []models.PlatformProduct) error
	Close() error
	Validate() error
}

// CSVWriter writes products in the import CSV format.
type CSVWriter struct {
	file   *os.File
	out    io.Writer
	writer *csv.Writer
	rows   int
	mu     sync.Mutex
}

// NewCSVWriter creates filename and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	cw, err := newCSVWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	cw.file = f
	return cw, nil
}

// NewCSVStreamWriter writes CSV to w. Close does not close w.
func NewCSVStreamWriter(w io.Writer) (*CSVWriter, error) {
	return newCSVWriter(w)
}

func newCSVWriter(w io.Writer) (*CSVWriter, error) {
	writer := csv.NewWriter(w)
	if err := writer.Write(CSVHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv header: %w", err)
	}
	return &CSVWriter{out: w, writer: writer}, nil
}

// Write appends one row per product.
func (cw *CSVWriter) Write(products []models.PlatformProduct) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for i := range products {
		if err := cw.writer.Write(csvRecord(&products[i])); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
		cw.rows++
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle, if any.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	if cw.file == nil {
		return nil
	}
	return cw.file.Close()
}

// Validate ensures at least one product row was written.
func (cw *CSVWriter) Validate() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.rows == 0 {
		return fmt.Errorf("csv output has no records")
	}
	return nil
}

func csvRecord(p *models.PlatformProduct) []string {
	return []string{
		p.ProductName,
		p.Platform,
		formatFloat(p.Price),
		formatOptional(p.OriginalPrice),
		formatOptional(p.Discount),
		strconv.FormatBool(p.InStock),
		formatFloat(p.Rating),
		strconv.Itoa(p.Reviews),
		p.URL,
		p.Category,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

// JSONWriter writes newline-delimited JSON products.
type JSONWriter struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	rows    int
	mu      sync.Mutex
}

// NewJSONWriter creates filename for JSON Lines output.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	return &JSONWriter{
		file:    f,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Write appends products in JSONL format.
func (jw *JSONWriter) Write(products []models.PlatformProduct) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for i := range products {
		if err := jw.encoder.Encode(&products[i]); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
		jw.rows++
	}

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// Validate ensures the JSON file has data.
func (jw *JSONWriter) Validate() error {
	info, err := jw.file.Stat()
	if err != nil {
		return fmt.Errorf("stat json file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("json file is empty")
	}
	return nil
}

// WriteDatabase writes db to w as JSON indented by two spaces.
func WriteDatabase(w io.Writer, db models.ProductDatabase) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(db); err != nil {
		return fmt.Errorf("encode database: %w", err)
	}
	return nil
}

// ExportDatabase writes db to filename via WriteDatabase.
func ExportDatabase(filename string, db models.ProductDatabase) error {
	if err := ensureDir(filename); err != nil {
		return err
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := WriteDatabase(f, db); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
