package payload

import (
	"archive/tar"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// countingWriter tracks how many payload bytes have been written so the
// trailer can record the payload length.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Writer appends a setupkit payload to out, which is expected to already
// contain the stub executable. Entries must be added in final order: the
// plan first, then one blob per plan file entry.
type Writer struct {
	cw     *countingWriter
	tw     *tar.Writer
	closed bool
}

// NewWriter starts a payload after whatever has already been written to out.
func NewWriter(out io.Writer) *Writer {
	cw := &countingWriter{w: out}
	return &Writer{cw: cw, tw: tar.NewWriter(cw)}
}

// WritePlan writes the install plan as the leading tar entry.
func (w *Writer) WritePlan(p *Plan) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode install plan: %w", err)
	}
	hdr := &tar.Header{
		Name:    PlanPath,
		Mode:    0o644,
		Size:    int64(len(data)),
		ModTime: time.Unix(0, 0).UTC(),
	}
	if err := w.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write plan header: %w", err)
	}
	if _, err := w.tw.Write(data); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	return nil
}

// AddBlob writes the gzip-compressed content for one plan file entry. The
// tar header carries the compressed size; the uncompressed size and mode
// live in the plan.
func (w *Writer) AddBlob(entry FileEntry, blob []byte) error {
	hdr := &tar.Header{
		Name:    entry.Target,
		Mode:    int64(entry.Mode.Perm()),
		Size:    int64(len(blob)),
		ModTime: entry.ModTime.UTC(),
	}
	if err := w.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header for %s: %w", entry.Target, err)
	}
	if _, err := w.tw.Write(blob); err != nil {
		return fmt.Errorf("write blob for %s: %w", entry.Target, err)
	}
	return nil
}

// Close finishes the tar stream and writes the trailer. The Writer must not
// be used afterwards.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.tw.Close(); err != nil {
		return fmt.Errorf("close payload archive: %w", err)
	}
	if _, err := w.cw.w.Write(encodeTrailer(w.cw.n)); err != nil {
		return fmt.Errorf("write payload trailer: %w", err)
	}
	return nil
}
