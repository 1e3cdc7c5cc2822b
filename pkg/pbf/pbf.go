// Package pbf reads OSM PBF file headers to tell a real extract from a truncated or
// mislabelled download.
package pbf

import (
	"fmt"
	"os"

	"github.com/qedus/osmpbf"
)

// Summary is the part of an OSMHeader block worth logging.
type Summary struct {
	WritingProgram   string
	Source           string
	RequiredFeatures []string
	HasBoundingBox   bool
	Left, Right      float64
	Top, Bottom      float64
}

// Inspect decodes the header block of the PBF file at path.
func Inspect(path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	d := osmpbf.NewDecoder(f)
	if err := d.Start(1); err != nil {
		return nil, fmt.Errorf("failed to start PBF decoder for %s: %w", path, err)
	}

	h, err := d.Header()
	if err != nil {
		return nil, fmt.Errorf("failed to read PBF header of %s: %w", path, err)
	}

	s := &Summary{
		WritingProgram:   h.WritingProgram,
		Source:           h.Source,
		RequiredFeatures: h.RequiredFeatures,
	}
	if h.BoundingBox != nil {
		s.HasBoundingBox = true
		s.Left, s.Right = h.BoundingBox.Left, h.BoundingBox.Right
		s.Top, s.Bottom = h.BoundingBox.Top, h.BoundingBox.Bottom
	}
	return s, nil
}

// Verify returns an error when path is not a readable OSM PBF file.
func Verify(path string) error {
	_, err := Inspect(path)
	return err
}
