package listing

// Record is one compiler error found in a listing.
type Record struct {
	Code    string // decimal digits as printed after '$'
	Column  int    // 0-based column in the source line, may be negative
	Line    int    // 1-based source line from the LINE directive
	Message string // single-spaced message text, may be empty
}

// Malformed describes a block that had codes but could not be turned into records.
type Malformed struct {
	Line   int // 1-based listing line where the block started
	Codes  []string
	Reason string
}

// Result is the outcome of Analyze.
type Result struct {
	Records []Record
	Skipped []Malformed
}

// Empty reports whether no record was extracted.
func (r Result) Empty() bool {
	return len(r.Records) == 0
}
