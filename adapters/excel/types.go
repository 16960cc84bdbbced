package excel

// RawRowData represents a row of raw sheet data as column-name/value pairs
type RawRowData map[string]string

// TableData represents a whole table read from a workbook sheet or CSV file
type TableData struct {
	Headers []string     // Column headers
	Rows    []RawRowData // Data rows
}

// Sheet names of the results workbook
const (
	SheetResults = "results"
	SheetTiming  = "timing"
	SheetRun     = "run"
)
