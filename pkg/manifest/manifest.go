package manifest

// ClipManifest summarizes one clip run: every province extract it touched, its
// outcome and, when written, the file size.
type ClipManifest struct {
	GeneratedAt string           `yaml:"generated_at"`
	RunID       int64            `yaml:"run_id"`
	Total       int              `yaml:"total"`
	Clipped     int              `yaml:"clipped"`
	Failed      int              `yaml:"failed"`
	Skipped     int              `yaml:"skipped"`
	Extracts    []ExtractSummary `yaml:"extracts"`
}

// ExtractSummary is one province line of the manifest.
type ExtractSummary struct {
	Country      string `yaml:"country"`
	ProvinceID   string `yaml:"province_id"`
	Province     string `yaml:"province"`
	Outcome      string `yaml:"outcome"` // clipped, failed or skipped
	FilePath     string `yaml:"file_path,omitempty"`
	SizeBytes    int64  `yaml:"size_bytes,omitempty"`
	DurationMS   int64  `yaml:"duration_ms,omitempty"`
	ErrorMessage string `yaml:"error_message,omitempty"`
}
