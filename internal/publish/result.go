package publish

// Status is the outcome class of one processed note.
type Status string

const (
	// StatusSuccess means the note was published (or would be, in dry-run).
	StatusSuccess Status = "success"
	// StatusSkipped means the note was already published; nothing changed.
	StatusSkipped Status = "skipped"
	// StatusFailed means a pipeline stage failed for this note.
	StatusFailed Status = "failed"
)

// Result is the unit returned to the caller for each note.
type Result struct {
	NotePath string
	Status   Status
	Slug     string
	Title    string
	Err      error
}

// Failed reports whether any result in the set ended in failure.
func Failed(results []Result) bool {
	for _, r := range results {
		if r.Status == StatusFailed {
			return true
		}
	}
	return false
}
