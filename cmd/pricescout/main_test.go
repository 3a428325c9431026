package main

import (
	"path/filepath"
	"testing"

	"github.com/aluiziolira/pricescout/config"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.StorageDriver = config.DriverMemory
	cfg.DelayEnabled = false
	a, err := newApp(cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { closeApp(a) })
	return a
}

func TestImportData(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		data     string
		accepted int
		wantErr  bool
	}{
		{name: "text", format: "text", data: "Amazon Desk lamp LED price: 1200 in stock\n", accepted: 1},
		{name: "json", format: "json", data: `[{"productName":"Desk lamp","platform":"Flipkart","price":1199,"rating":4.1,"reviews":20,"inStock":true}]`, accepted: 1},
		{name: "csv", format: "csv", data: "Desk lamp,Meesho,999,,,true,4.0,12,https://meesho.com/lamp\n", accepted: 1},
		{name: "unknown format", format: "xml", data: "<x/>", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestApp(t)
			result, err := importData(a.ingester, tt.format, []byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("import: %v", err)
			}
			if result.Accepted != tt.accepted {
				t.Fatalf("expected %d accepted, got %+v", tt.accepted, result)
			}
		})
	}
}

func TestCreateWriter(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name     string
		format   string
		filename string
		wantErr  bool
	}{
		{name: "csv to stdout", format: "csv"},
		{name: "jsonl needs file", format: "jsonl", wantErr: true},
		{name: "jsonl file", format: "jsonl", filename: filepath.Join(dir, "out.jsonl")},
		{name: "dual file", format: "dual", filename: filepath.Join(dir, "out.csv")},
		{name: "unknown", format: "xml", filename: filepath.Join(dir, "out.xml"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := createWriter(tt.format, tt.filename)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("create writer: %v", err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}
		})
	}
}

func TestNewAppWiresResolver(t *testing.T) {
	a := newTestApp(t)
	if _, err := a.ingester.LoadSample(); err != nil {
		t.Fatalf("load sample: %v", err)
	}
	res, err := a.resolver.Resolve(t.Context(), "coffee maker")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.Pricing.Prices) != 5 {
		t.Fatalf("expected 5 platform prices, got %d", len(res.Pricing.Prices))
	}
	if got := a.history.List(); len(got) != 1 || got[0] != "coffee maker" {
		t.Fatalf("unexpected history %v", got)
	}
}
