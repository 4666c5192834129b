package archive

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/flate"

	"github.com/varnalabs/apitestgen/internal/engineerr"
	"github.com/varnalabs/apitestgen/internal/model"
)

func sampleProject(t *testing.T) *model.Project {
	t.Helper()
	var files []model.File
	for _, fc := range [][2]string{
		{"pom.xml", "<project/>"},
		{"testng.xml", "<suite name=\"ünïcode ✓\"/>"},
		{"src/test/java/com/automation/tests/tests/UsersApiTest.java", strings.Repeat("class UsersApiTest {}\n", 200)},
		{"empty.txt", ""},
	} {
		f, err := model.NewFile(fc[0], fc[1])
		if err != nil {
			t.Fatalf("file: %v", err)
		}
		files = append(files, f)
	}
	p, err := model.NewProject("pets-tests", files)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	return p
}

func TestArchive_RoundTrip(t *testing.T) {
	t.Parallel()
	p := sampleProject(t)
	data, err := New(nil).Archive(p, "trace")
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	entries, err := ReadEntries(data)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var want []Entry
	for _, f := range p.Files() {
		want = append(want, Entry{Name: "pets-tests/" + f.RelativePath(), Content: f.Content()})
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Fatalf("entries (-want +got):\n%s", diff)
	}
}

func TestArchive_IsDeterministic(t *testing.T) {
	t.Parallel()
	a := New(nil)
	first, err := a.Archive(sampleProject(t), "one")
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	second, err := a.Archive(sampleProject(t), "two")
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("identical projects produced different archives")
	}
}

func TestArchive_Levels(t *testing.T) {
	t.Parallel()
	p := sampleProject(t)
	stored, err := New(nil, WithLevel(flate.NoCompression)).Archive(p, "")
	if err != nil {
		t.Fatalf("no compression: %v", err)
	}
	best, err := New(nil, WithLevel(flate.BestCompression)).Archive(p, "")
	if err != nil {
		t.Fatalf("best compression: %v", err)
	}
	if len(best) >= len(stored) {
		t.Fatalf("best compression (%d bytes) should beat none (%d bytes)", len(best), len(stored))
	}
	if _, err := New(nil, WithLevel(42)).Archive(p, ""); !errors.Is(err, engineerr.ErrArchive) {
		t.Fatalf("invalid level should be an ArchiveFailure, got %v", err)
	}
}

type failingWriter struct{ after int }

func (w *failingWriter) Write(b []byte) (int, error) {
	if w.after <= 0 {
		return 0, errors.New("disk full")
	}
	w.after--
	return len(b), nil
}

func TestWrite_SinkFailure(t *testing.T) {
	t.Parallel()
	err := New(nil).Write(&failingWriter{}, sampleProject(t), "")
	if !errors.Is(err, engineerr.ErrArchive) {
		t.Fatalf("expected ArchiveFailure, got %v", err)
	}
}

func TestReadEntries_Garbage(t *testing.T) {
	t.Parallel()
	if _, err := ReadEntries([]byte("not a zip")); !errors.Is(err, engineerr.ErrArchive) {
		t.Fatalf("expected ArchiveFailure, got %v", err)
	}
}
