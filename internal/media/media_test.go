package media

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AntonKrinichnyi/trainstation/internal/apperr"
	"github.com/AntonKrinichnyi/trainstation/internal/db"
	"github.com/AntonKrinichnyi/trainstation/internal/models"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestDetectImage(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantExt string
	}{
		{"png", pngHeader, ".png"},
		{"jpeg", []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01"), ".jpg"},
		{"gif", []byte("GIF89a\x01\x00\x01\x00"), ".gif"},
		{"text", []byte("definitely not an image"), ""},
		{"pdf", []byte("%PDF-1.7\n"), ""},
		{"empty", nil, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ext, err := DetectImage(tc.data)
			if tc.wantExt == "" {
				var ae *apperr.Error
				if !errors.As(err, &ae) || len(ae.Fields["image"]) == 0 {
					t.Fatalf("error = %v, want validation on image", err)
				}
				return
			}
			if err != nil || ext != tc.wantExt {
				t.Errorf("DetectImage = %q, %v, want %q", ext, err, tc.wantExt)
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Hyundai Rotem":     "hyundai-rotem",
		"  Intercity+ 742 ": "intercity-742",
		"Тарпан":            "тарпан",
		"---":               "",
		"a__b":              "a-b",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTrainImageName(t *testing.T) {
	a := TrainImageName("Hyundai Rotem", ".png")
	b := TrainImageName("Hyundai Rotem", ".png")
	if a == b {
		t.Error("names should be unique")
	}
	if !strings.HasPrefix(a, "trains/hyundai-rotem-") || !strings.HasSuffix(a, ".png") {
		t.Errorf("name = %q", a)
	}
	if got := TrainImageName("!!!", ".jpg"); !strings.HasPrefix(got, "trains/train-") {
		t.Errorf("fallback name = %q", got)
	}
}

func TestLocalStore(t *testing.T) {
	s := &LocalStore{Dir: t.TempDir(), BaseURL: "/media/"}

	if err := s.Save("trains/a.png", bytes.NewReader(pngHeader)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(s.Dir, "trains", "a.png"))
	if err != nil || !bytes.Equal(data, pngHeader) {
		t.Fatalf("stored file = %v, %v", data, err)
	}
	if got := s.URL("trains/a.png"); got != "/media/trains/a.png" {
		t.Errorf("URL = %q", got)
	}
	if got := s.URL(""); got != "" {
		t.Errorf("URL(empty) = %q", got)
	}

	if err := s.Save("../../escape.png", bytes.NewReader(pngHeader)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Dir, "escape.png")); err != nil {
		t.Errorf("traversal path should be confined to the store: %v", err)
	}

	files, err := s.List(TrainDir)
	if err != nil || len(files) != 1 || files[0] != "trains/a.png" {
		t.Errorf("List = %v, %v", files, err)
	}

	if err := s.Remove("trains/a.png"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove("trains/a.png"); err != nil {
		t.Errorf("Remove missing file = %v, want nil", err)
	}
}

func TestSweep_RemovesOrphans(t *testing.T) {
	gdb, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatal(err)
	}
	tt := models.TrainType{Name: "Regional"}
	gdb.Create(&tt)
	gdb.Create(&models.Train{Name: "Kept", CargoNum: 1, PlacesInCargo: 1, TrainTypeID: tt.ID, Image: "trains/kept.png"})
	gdb.Create(&models.Train{Name: "Bare", CargoNum: 1, PlacesInCargo: 1, TrainTypeID: tt.ID})

	s := &LocalStore{Dir: t.TempDir(), BaseURL: "/media/"}
	old := time.Now().Add(-2 * SweepGrace)
	for _, n := range []string{"trains/kept.png", "trains/orphan1.png", "trains/orphan2.jpg", "trains/fresh.png"} {
		if err := s.Save(n, bytes.NewReader(pngHeader)); err != nil {
			t.Fatal(err)
		}
		if n == "trains/fresh.png" {
			continue
		}
		if err := os.Chtimes(filepath.Join(s.Dir, filepath.FromSlash(n)), old, old); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := Sweep(gdb, s)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	files, _ := s.List(TrainDir)
	want := map[string]bool{"trains/kept.png": true, "trains/fresh.png": true}
	if len(files) != len(want) {
		t.Errorf("remaining = %v", files)
	}
	for _, f := range files {
		if !want[f] {
			t.Errorf("unexpected remaining file %s", f)
		}
	}

	empty := &LocalStore{Dir: filepath.Join(t.TempDir(), "missing")}
	if n, err := Sweep(gdb, empty); err != nil || n != 0 {
		t.Errorf("Sweep on missing dir = %d, %v", n, err)
	}
}
