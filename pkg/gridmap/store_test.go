package gridmap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileGivesFreshGrid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "room_map.json")

	g, err := Load(path, 20, 20)
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if g.Width() != 20 || g.Height() != 20 || g.Count(Unvisited) != 400 {
		t.Errorf("Load on missing file returned %dx%d grid with %d unvisited cells", g.Width(), g.Height(), g.Count(Unvisited))
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	zero := New(20, 20)
	walked := New(20, 20)
	for y := 10; y < 20; y++ {
		walked.Mark(Point{10, y}, Visited)
	}
	walked.Mark(Point{0, 0}, Visited)
	walked.Mark(Point{19, 19}, Visited)
	odd := New(3, 7)
	odd.Mark(Point{2, 6}, Visited)

	for i, g := range []*Grid{zero, walked, odd} {
		path := filepath.Join(dir, "map.json")
		if err := Save(g, path); err != nil {
			t.Fatalf("case %d: Save: %v", i, err)
		}
		back, err := Load(path, 20, 20)
		if err != nil {
			t.Fatalf("case %d: Load: %v", i, err)
		}
		if !back.Equal(g) {
			t.Errorf("case %d: round-trip changed the grid", i)
		}
	}
}

func TestSave_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.json")

	first := New(5, 5)
	first.Mark(Point{1, 1}, Visited)
	if err := Save(first, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	second := New(5, 5)
	if err := Save(second, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	back, err := Load(path, 5, 5)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !back.Equal(second) {
		t.Error("second save did not replace the first")
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want only the map file", len(entries))
	}
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, 20, 20); err == nil {
		t.Error("Load on corrupt file returned nil error")
	}
}

func TestSave_UnwritableDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "map.json")
	if err := Save(New(2, 2), path); err == nil {
		t.Error("Save into a missing directory returned nil error")
	}
}

func TestSaver_WritesLatestSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.json")
	s := NewSaver(path)

	g := New(4, 4)
	s.Save(g)
	g.Mark(Point{2, 2}, Visited)
	s.Save(g)
	// Mutating after Save must not leak into the queued snapshot
	g.Mark(Point{3, 3}, Visited)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Run(ctx)

	if err := s.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	back, err := Load(path, 4, 4)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := New(4, 4)
	want.Mark(Point{2, 2}, Visited)
	if !back.Equal(want) {
		t.Errorf("saver wrote %v, want latest snapshot %v", back.Cells, want.Cells)
	}
}

func TestSaver_FailureIsReported(t *testing.T) {
	s := NewSaver(filepath.Join(t.TempDir(), "missing", "map.json"))
	s.Save(New(2, 2))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Run(ctx)

	if s.Err() == nil {
		t.Error("Err() = nil after writing into a missing directory")
	}
	if s.Saves() != 0 {
		t.Errorf("Saves() = %d, want 0", s.Saves())
	}
}
