package turnlog

import (
	"encoding/json"
	"path/filepath"
	"testing"
)

type rec struct {
	Tick uint64 `json:"tick"`
	Hash string `json:"hash"`
}

func TestWriter_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "test01")
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	for i := uint64(0); i < 20; i++ {
		if err := w.Write(rec{Tick: i, Hash: "h"}); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	path := filepath.Join(dir, "turns-test01.jsonl.zst")
	var got []rec
	err = ReadAll(path, func(raw []byte) error {
		var r rec
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		got = append(got, r)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 20 {
		t.Fatalf("read %d records, want 20", len(got))
	}
	for i, r := range got {
		if r.Tick != uint64(i) {
			t.Fatalf("record %d has tick %d", i, r.Tick)
		}
	}
}

func TestListFiles_FiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	for _, run := range []string{"b", "a"} {
		w, err := NewWriter(dir, run)
		if err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
	}

	files, err := ListFiles(dir)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("found %d files, want 2", len(files))
	}
	if filepath.Base(files[0]) != "turns-a.jsonl.zst" || filepath.Base(files[1]) != "turns-b.jsonl.zst" {
		t.Fatalf("files = %v", files)
	}
}
