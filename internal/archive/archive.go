// Package archive packages a generated project as a single ZIP archive.
//
// Output is deterministic: entries follow the project's file order and carry a
// fixed modification time, so identical projects produce identical bytes.
package archive

import (
	"bytes"
	"io"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/varnalabs/apitestgen/internal/diag"
	"github.com/varnalabs/apitestgen/internal/engineerr"
	"github.com/varnalabs/apitestgen/internal/model"
)

// ModTime is stamped on every entry; it is the earliest time the ZIP format can hold.
var ModTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Archiver writes projects as ZIP archives. It is safe for concurrent use.
type Archiver struct {
	level int
	log   *diag.Logger
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithLevel sets the deflate level (flate.HuffmanOnly to flate.BestCompression).
func WithLevel(level int) Option { return func(a *Archiver) { a.level = level } }

// New returns an Archiver using the default compression level.
func New(log *diag.Logger, opts ...Option) *Archiver {
	if log == nil {
		log = diag.Discard()
	}
	a := &Archiver{level: flate.DefaultCompression, log: log}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// EntryName is the archive path of f inside p.
func EntryName(p *model.Project, f model.File) string {
	return p.Name() + "/" + f.RelativePath()
}

// Archive returns the archive bytes for p.
func (a *Archiver) Archive(p *model.Project, correlationID string) ([]byte, error) {
	var buf bytes.Buffer
	if err := a.Write(&buf, p, correlationID); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams the archive for p to w. Any failure is an ArchiveFailure.
func (a *Archiver) Write(w io.Writer, p *model.Project, correlationID string) error {
	log := a.log.With(correlationID)
	if p == nil {
		return engineerr.Archive(nil, "archive: no project")
	}
	zw := zip.NewWriter(w)
	level := a.level
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	seen := make(map[string]struct{}, p.FileCount())
	for _, f := range p.Files() {
		name := EntryName(p, f)
		if _, dup := seen[name]; dup {
			_ = zw.Close()
			return engineerr.Archive(nil, "archive: duplicate entry %s", name)
		}
		seen[name] = struct{}{}

		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: ModTime}
		hdr.SetMode(0o644)
		ew, err := zw.CreateHeader(hdr)
		if err != nil {
			_ = zw.Close()
			return engineerr.Archive(err, "archive: create entry %s: %v", name, err)
		}
		if _, err := io.WriteString(ew, f.Content()); err != nil {
			_ = zw.Close()
			return engineerr.Archive(err, "archive: write entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return engineerr.Archive(err, "archive: finalize: %v", err)
	}
	log.Debugf("archived %d entries for %q", p.FileCount(), p.Name())
	return nil
}

// Entry is one file read back from an archive.
type Entry struct {
	Name    string
	Content string
}

// ReadEntries lists the entries of data in archive order.
func ReadEntries(data []byte) ([]Entry, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, engineerr.Archive(err, "archive: open: %v", err)
	}
	out := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, engineerr.Archive(err, "archive: open entry %s: %v", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, engineerr.Archive(err, "archive: read entry %s: %v", f.Name, err)
		}
		out = append(out, Entry{Name: f.Name, Content: string(b)})
	}
	return out, nil
}
