package diag

// Sink is the §6 "Diagnostics" collaborator: `Diagnostics.report(decl,
// code, message)` and `Diagnostics.fatalExit()`. The resolver never
// prints or logs directly — every problem flows through a Sink supplied
// by the host compiler (spec.md §6 "The only stable external artifact is
// the diagnostic stream").
type Sink interface {
	// Report records a diagnostic. It does not stop processing by
	// itself — the caller decides whether to continue based on
	// diag.Kind.Fatal().
	Report(d *Diagnostic)
}

// CollectingSink is a Sink that simply appends every reported
// Diagnostic, for use by the top-level driver and by tests. It is not
// safe for concurrent use, consistent with spec.md §5's "single-threaded
// cooperative" resolver.
type CollectingSink struct {
	Diagnostics []*Diagnostic
}

var _ Sink = (*CollectingSink)(nil)

// Report implements Sink.
func (s *CollectingSink) Report(d *Diagnostic) {
	s.Diagnostics = append(s.Diagnostics, d)
}

// HasFatal reports whether any collected diagnostic is of a fatal kind.
func (s *CollectingSink) HasFatal() bool {
	for _, d := range s.Diagnostics {
		if d.Kind.Fatal() {
			return true
		}
	}
	return false
}

// FatalError is the sentinel returned by a sealing/building operation
// when a fatal Diagnostic has been reported and processing of the
// current compilation unit must stop (spec.md §5 "Cancellation": "A
// diagnostic classified as fatal calls an exitProcessing() sentinel that
// aborts the entire compilation of the current unit"). It wraps the
// Diagnostic that triggered the abort.
type FatalError struct {
	Diagnostic *Diagnostic
}

func (e *FatalError) Error() string {
	return e.Diagnostic.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Diagnostic
}

// Fatal reports d to sink and returns a *FatalError wrapping it. Callers
// in bindinggraph use this as their "exitProcessing()"
// escape: return Fatal(sink, d) immediately unwinds to the outer driver
// without emitting a partial result, matching spec.md §7's "no partial
// graph result is ever emitted" guarantee.
func Fatal(sink Sink, d *Diagnostic) error {
	sink.Report(d)
	return &FatalError{Diagnostic: d}
}

// Report reports d to sink without aborting, for non-fatal kinds
// (DuplicateBinding) that "may accumulate before the final exit".
func Report(sink Sink, d *Diagnostic) {
	sink.Report(d)
}
