package fs

// CommitStats is returned alongside an error from a commit operation, so
// tests can assert Testable Property 3 (commit conservation) without
// reaching into private node state.
type CommitStats struct {
	BytesWritten     int64
	EntriesChanged   int
	TempFilesCreated int
}

// Add accumulates another CommitStats into s, used when a commit chain
// propagates through several node levels.
func (s *CommitStats) Add(other CommitStats) {
	s.BytesWritten += other.BytesWritten
	s.EntriesChanged += other.EntriesChanged
	s.TempFilesCreated += other.TempFilesCreated
}

// WorkerResult is the per-pass summary every C6-C8 worker returns, per
// SPEC_FULL.md's supplemented per-pass statistics.
type WorkerResult struct {
	Added       int
	Skipped     int
	Overwritten int
	Failed      int

	WasCancelled bool
}

// Total returns the sum of all per-item counters, which Testable Property
// 10 requires equal len(input) for any non-cancelled pass.
func (r WorkerResult) Total() int {
	return r.Added + r.Skipped + r.Overwritten + r.Failed
}
