package pipeline

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/aluiziolira/pricescout/models"
	"github.com/aluiziolira/pricescout/storage"
)

func exportFixture() []models.PlatformProduct {
	return []models.PlatformProduct{
		{
			ID: "a", ProductName: "iPhone 15", Platform: "Amazon", Price: 74999,
			OriginalPrice: models.Float(79999), Discount: models.Float(6),
			InStock: true, Rating: 4.6, Reviews: 1200, URL: "https://a.example/1", Category: "smartphones",
		},
		{
			ID: "b", ProductName: "Desk Lamp, LED", Platform: "Flipkart", Price: 899.5,
			Rating: 4.1, Reviews: 3, URL: "https://f.example/2", Category: "home",
		},
	}
}

func TestCSVWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "products.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	if err := writer.Validate(); err == nil {
		t.Fatal("expected validation error before any rows")
	}
	if err := writer.Write(exportFixture()); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records=%d, want 3", len(records))
	}
	if !reflect.DeepEqual(records[0], CSVHeader) {
		t.Fatalf("unexpected header: %v", records[0])
	}
	want := []string{"iPhone 15", "Amazon", "74999", "79999", "6", "true", "4.6", "1200", "https://a.example/1", "smartphones"}
	if !reflect.DeepEqual(records[1], want) {
		t.Fatalf("row = %v, want %v", records[1], want)
	}
	if records[2][3] != "" || records[2][4] != "" || records[2][2] != "899.5" {
		t.Fatalf("optional columns = %v", records[2])
	}
}

func TestCSVExportRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	writer, err := NewCSVStreamWriter(&buf)
	if err != nil {
		t.Fatalf("create writer: %v", err)
	}
	if err := writer.Write(exportFixture()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	store := storage.NewProductStore(storage.NewMemoryBackend())
	result, err := newTestIngester(store, nil).ImportCSV(&buf)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Accepted != 2 {
		t.Fatalf("accepted = %d, want 2", result.Accepted)
	}

	lamp := store.Get("Desk Lamp, LED")
	if len(lamp) != 1 {
		t.Fatalf("lamp bucket = %+v", lamp)
	}
	if lamp[0].Price != 899.5 || lamp[0].InStock || lamp[0].OriginalPrice != nil || lamp[0].Category != "home" {
		t.Fatalf("lamp = %+v", lamp[0])
	}
}

func TestJSONWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	if err := writer.Write(exportFixture()); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var p models.PlatformProduct
		if err := json.Unmarshal(scanner.Bytes(), &p); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		names = append(names, p.ProductName)
	}
	if want := []string{"iPhone 15", "Desk Lamp, LED"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
}

func TestDualWriter(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "out.csv")
	jsonPath := filepath.Join(dir, "out.jsonl")

	writer, err := NewDualWriter(csvPath, jsonPath)
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}
	if err := writer.Write(exportFixture()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	for _, path := range []string{csvPath, jsonPath} {
		info, err := os.Stat(path)
		if err != nil || info.Size() == 0 {
			t.Errorf("%s missing or empty: %v", path, err)
		}
	}
}

func TestWriteDatabase(t *testing.T) {
	db := models.ProductDatabase{"iphone15": exportFixture()[:1]}

	var buf bytes.Buffer
	if err := WriteDatabase(&buf, db); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "{\n  \"iphone15\": [") {
		t.Fatalf("unexpected indentation: %q", buf.String())
	}

	path := filepath.Join(t.TempDir(), "db.json")
	if err := ExportDatabase(path, db); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var decoded models.ProductDatabase
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Entries() != 1 {
		t.Fatalf("entries = %d, want 1", decoded.Entries())
	}
}
