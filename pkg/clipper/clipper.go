// Package clipper cuts per-province extracts out of a national extract with an
// external clipping tool.
package clipper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dtnitsch/osm-extracts/models"
	"github.com/dtnitsch/osm-extracts/pkg/metrics"
	"github.com/dtnitsch/osm-extracts/pkg/storage"
)

// ExtractSuffix is appended to every extract file name.
const ExtractSuffix = "-latest.osm.pbf"

// Outcome is the result of one Clip call.
type Outcome string

const (
	OutcomeSkipped Outcome = "skipped"
	OutcomeClipped Outcome = "clipped"
	OutcomeFailed  Outcome = "failed"
)

// Invocation describes one run of the clipping tool.
type Invocation struct {
	Source                 string
	Polygon                string
	Output                 string
	ClipIncompleteEntities bool
	Granularity            int
}

// OsmosisArgs renders the invocation as osmosis command-line arguments.
func (inv Invocation) OsmosisArgs() []string {
	return []string{
		"--read-pbf", "file=" + inv.Source,
		"--bp", "clipIncompleteEntities=" + strconv.FormatBool(inv.ClipIncompleteEntities), "file=" + inv.Polygon,
		"--write-pbf", "granularity=" + strconv.Itoa(inv.Granularity), "file=" + inv.Output,
	}
}

// ToolRunner runs the clipping tool. A non-nil error means the output is unusable.
type ToolRunner interface {
	Run(ctx context.Context, inv Invocation) error
}

// OsmosisRunner runs the osmosis binary.
type OsmosisRunner struct {
	Path   string    // defaults to "osmosis" on PATH
	Stdout io.Writer // defaults to os.Stderr
	Stderr io.Writer // defaults to os.Stderr
}

func (r OsmosisRunner) Run(ctx context.Context, inv Invocation) error {
	path := r.Path
	if path == "" {
		path = models.DefaultOsmosisPath
	}
	cmd := exec.CommandContext(ctx, path, inv.OsmosisArgs()...)
	cmd.Stdout = r.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stderr
	}
	cmd.Stderr = r.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w", path, err)
	}
	return nil
}

// Journal receives a record of every clip.
type Journal interface {
	RecordClip(ctx context.Context, rec models.ClipRecord) error
}

// Clipper writes the province polygon to a scratch file and hands it to the runner.
type Clipper struct {
	Runner      ToolRunner
	WorkDir     string // scratch directory for .poly files; defaults to os.TempDir()
	Granularity int    // defaults to models.DefaultGranularity
	Logger      *slog.Logger

	// Optional.
	Metrics *metrics.Metrics
	Journal Journal

	storage   storage.Storage
	writeFile func(path string, data []byte) error // nil means storage.SaveFile
}

func (c *Clipper) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

// OutputPath is where Clip writes the extract of name inside outputDir.
func OutputPath(outputDir, name string) string {
	return filepath.Join(outputDir, name+ExtractSuffix)
}

// Clip cuts province out of nationalPath into outputDir, which is named after the
// country. A province without a polygon is skipped. A tool failure is reported as
// OutcomeFailed with a nil error; filesystem failures are recorded as OutcomeFailed
// and returned.
func (c *Clipper) Clip(ctx context.Context, nationalPath string, province models.ProvinceRecord, outputDir string) (Outcome, error) {
	name := models.ProvinceFileName(province)
	logger := c.logger().With("osm_id", province.ID, "province", name)
	rec := models.ClipRecord{Country: filepath.Base(outputDir), ProvinceID: province.ID.String(), ProvinceName: name}

	if !province.HasPolygon() {
		logger.Info("No polygon data, skipping province")
		rec.Outcome = string(OutcomeSkipped)
		c.finish(ctx, rec)
		return OutcomeSkipped, nil
	}

	fail := func(err error) (Outcome, error) {
		rec.Outcome = string(OutcomeFailed)
		rec.Error = err.Error()
		c.finish(ctx, rec)
		return OutcomeFailed, err
	}

	if err := c.storage.EnsureDir(outputDir); err != nil {
		return fail(err)
	}

	workDir := c.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	polyPath := filepath.Join(workDir, name+".poly")
	// Removed even when the write fails part way.
	defer func() {
		if err := os.Remove(polyPath); err != nil && !os.IsNotExist(err) {
			logger.Warn("Failed to remove polygon file", "path", polyPath, "error", err)
		}
	}()
	if err := c.savePolygon(polyPath, []byte(*province.Polygon)); err != nil {
		return fail(fmt.Errorf("failed to write polygon for %s: %w", name, err))
	}

	granularity := c.Granularity
	if granularity <= 0 {
		granularity = models.DefaultGranularity
	}
	inv := Invocation{
		Source:                 nationalPath,
		Polygon:                polyPath,
		Output:                 OutputPath(outputDir, name),
		ClipIncompleteEntities: true,
		Granularity:            granularity,
	}
	rec.OutputPath = inv.Output

	logger.Info("Clipping province", "from", inv.Source, "to", inv.Output)
	start := time.Now()
	err := c.Runner.Run(ctx, inv)
	rec.Duration = time.Since(start)
	if err != nil {
		logger.Error("Failed to clip province", "path", inv.Output, "error", err)
		rec.Outcome = string(OutcomeFailed)
		rec.Error = err.Error()
		c.finish(ctx, rec)
		return OutcomeFailed, nil
	}

	rec.Outcome = string(OutcomeClipped)
	c.finish(ctx, rec)
	return OutcomeClipped, nil
}

func (c *Clipper) savePolygon(path string, data []byte) error {
	if c.writeFile != nil {
		return c.writeFile(path, data)
	}
	return c.storage.SaveFile(path, data)
}

func (c *Clipper) finish(ctx context.Context, rec models.ClipRecord) {
	c.Metrics.ObserveClip(rec.Outcome)
	if c.Journal == nil {
		return
	}
	if err := c.Journal.RecordClip(ctx, rec); err != nil {
		c.logger().Warn("Failed to record clip", "osm_id", rec.ProvinceID, "error", err)
	}
}
