package payload

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// Archive is an opened installer artifact: the stub with its appended
// payload.
type Archive struct {
	f     *os.File
	start int64 // payload offset within the file
	size  int64 // payload length in bytes

	// Plan is the embedded install plan, decoded on Open.
	Plan *Plan
}

// Open locates the payload trailer at the end of the file and decodes the
// install plan. It returns ErrNoPayload when the file carries no setupkit
// payload, which is how a bare stub distinguishes itself from a built
// installer.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}

	a, err := open(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return a, nil
}

func open(f *os.File) (*Archive, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}
	if info.Size() < int64(trailerSize) {
		return nil, ErrNoPayload
	}

	buf := make([]byte, trailerSize)
	if _, err := f.ReadAt(buf, info.Size()-int64(trailerSize)); err != nil {
		return nil, fmt.Errorf("read trailer: %w", err)
	}
	length, err := decodeTrailer(buf)
	if err != nil {
		return nil, err
	}

	start := info.Size() - int64(trailerSize) - length
	if start < 0 {
		return nil, fmt.Errorf("%w: payload length exceeds file size", ErrCorrupt)
	}

	a := &Archive{f: f, start: start, size: length}
	if err := a.readPlan(); err != nil {
		return nil, err
	}
	return a, nil
}

// readPlan decodes the leading plan entry.
func (a *Archive) readPlan() error {
	tr := tar.NewReader(a.section())
	hdr, err := tr.Next()
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}
	if hdr.Name != PlanPath {
		return ErrPlanMissing
	}

	var plan Plan
	if err := json.NewDecoder(tr).Decode(&plan); err != nil {
		return fmt.Errorf("decode install plan: %w", err)
	}
	a.Plan = &plan
	return nil
}

// section returns a fresh reader over the raw payload bytes.
func (a *Archive) section() io.Reader {
	return io.NewSectionReader(a.f, a.start, a.size)
}

// Walk streams every file entry in payload order. The reader passed to fn
// yields the uncompressed file content and is only valid for the duration
// of the call. Walk stops at the first error returned by fn.
func (a *Archive) Walk(fn func(entry FileEntry, r io.Reader) error) error {
	byTarget := make(map[string]FileEntry, len(a.Plan.Files))
	for _, entry := range a.Plan.Files {
		byTarget[entry.Target] = entry
	}

	tr := tar.NewReader(a.section())
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read payload: %w", err)
		}
		if hdr.Name == PlanPath {
			continue
		}

		entry, ok := byTarget[hdr.Name]
		if !ok {
			return fmt.Errorf("%w: entry %q not in plan", ErrCorrupt, hdr.Name)
		}

		gz, err := gzip.NewReader(tr)
		if err != nil {
			return fmt.Errorf("%w: bad blob for %s: %v", ErrCorrupt, hdr.Name, err)
		}
		if err := fn(entry, gz); err != nil {
			_ = gz.Close()
			return err
		}
		if err := gz.Close(); err != nil {
			return fmt.Errorf("%w: bad blob for %s: %v", ErrCorrupt, hdr.Name, err)
		}
	}
}

// Close releases the underlying file.
func (a *Archive) Close() error {
	return a.f.Close()
}
