package dataset

// Config holds configuration for the dataset file and its mirrors.
type Config struct {
	// OutputPath is the primary dataset file.
	OutputPath string `mapstructure:"output_path" default:"pokefuta.ndjson"`
	// Format is the layout written to OutputPath (ndjson, array).
	Format string `mapstructure:"format" default:"ndjson"`
	// MirrorPath receives an active-only copy when set.
	MirrorPath string `mapstructure:"mirror_path" default:""`
	// MirrorObject is the object key of the active-only copy uploaded to storage.
	// Empty disables the upload.
	MirrorObject string `mapstructure:"mirror_object" default:""`
}
