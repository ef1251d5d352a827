package excel

// ReaderConfig controls how actor files are read
type ReaderConfig struct {
	Sheet           string `json:"sheet"`
	MarkerSeparator string `json:"marker_separator"`
	// SkipInvalid drops rows that fail to parse instead of failing the read
	SkipInvalid bool `json:"skip_invalid"`
	// DataPath locates the actor array inside a JSON export, e.g. "data.actors".
	// Empty means the document itself, or its "actors" field when it is an object.
	DataPath string `json:"data_path"`
}

// DefaultReaderConfig returns the defaults used by NewFileSource
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		Sheet:           "Sheet1",
		MarkerSeparator: ";",
	}
}
