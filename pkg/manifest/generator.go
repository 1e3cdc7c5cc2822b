package manifest

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dtnitsch/osm-extracts/models"
	"github.com/dtnitsch/osm-extracts/pkg/storage"
	"gopkg.in/yaml.v3"
)

// FileName is the manifest written at the root of the output directory.
const FileName = "manifest.yaml"

// Generate builds the manifest of runID from its clip records, in clip order.
// Sizes come from the files on disk; a missing output file is left at zero.
func Generate(runID int64, clips []models.ClipRecord, s *storage.Storage) *ClipManifest {
	m := &ClipManifest{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		RunID:       runID,
		Total:       len(clips),
		Extracts:    make([]ExtractSummary, 0, len(clips)),
	}

	for _, rec := range clips {
		summary := ExtractSummary{
			Country:      rec.Country,
			ProvinceID:   rec.ProvinceID,
			Province:     rec.ProvinceName,
			Outcome:      rec.Outcome,
			DurationMS:   rec.Duration.Milliseconds(),
			ErrorMessage: rec.Error,
		}

		switch rec.Outcome {
		case "clipped":
			m.Clipped++
			summary.FilePath = rec.OutputPath
			if stats, err := s.GetFileStats(rec.OutputPath); err == nil {
				summary.SizeBytes = stats.SizeBytes
			}
		case "skipped":
			m.Skipped++
		default:
			m.Failed++
		}

		m.Extracts = append(m.Extracts, summary)
	}
	return m
}

// Write saves m as YAML in outputDir and returns the file path.
func Write(outputDir string, m *ClipManifest, s *storage.Storage) (string, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("error marshalling manifest: %w", err)
	}

	path := filepath.Join(outputDir, FileName)
	if err := s.SaveFile(path, data); err != nil {
		return "", fmt.Errorf("error saving manifest: %w", err)
	}
	return path, nil
}
