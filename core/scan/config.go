package scan

// Config holds the scan window settings.
type Config struct {
	// Source selects the source adapter by name.
	Source string `mapstructure:"source" default:"pokefuta"`
	// Min is the lowest ID probed.
	Min int `mapstructure:"min" default:"1"`
	// Max is the highest ID probed. Zero means Min+Lookahead-1 when resuming.
	Max int `mapstructure:"max" default:"1500"`
	// Resume starts right after the highest ID already in the dataset.
	Resume bool `mapstructure:"resume" default:"false"`
	// Lookahead bounds an open-ended resumed scan.
	Lookahead int `mapstructure:"lookahead" default:"200"`
	// NewLimit stops the scan after this many discoveries. Zero disables it.
	NewLimit int `mapstructure:"new_limit" default:"0"`
}
