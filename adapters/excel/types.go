package excel

// RawRowData represents one spreadsheet row as header -> cell text
type RawRowData map[string]string

// SheetData represents a tabular actor export
type SheetData struct {
	Headers []string     // Column headers
	Rows    []RawRowData // Data rows
}

// Column names recognised in actor exports. Driver columns use the driver
// names themselves (Safety, Connection, ...).
const (
	ColumnActorID             = "actor_id"
	ColumnDriverDistribution  = "driver_distribution"
	ColumnContradiction       = "contradiction_score"
	ColumnSuperposition       = "superposition_detected"
	ColumnCoherence           = "coherence"
	ColumnIdentityMarkers     = "identity_markers"
	ColumnSignalCount         = "signal_count"
	ColumnProfileCompleteness = "profile_completeness"
	ColumnDataQuality         = "data_quality_score"
)
