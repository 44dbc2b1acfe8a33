package fs

// Reason identifies why a worker is invoking the callback, as a
// string-backed enum in the style of rclone's fs.EntryType/hash.Type so log
// output is self-describing without a stringer generator.
type Reason string

// Callback reasons, per spec.md §4.1.
const (
	ReasonProgress             Reason = "progress"
	ReasonQueryCancel          Reason = "query-cancel"
	ReasonResourceForkIgnored  Reason = "resource-fork-ignored"
	ReasonFileNameExists       Reason = "file-name-exists"
	ReasonPathTooLong          Reason = "path-too-long"
	ReasonAttrFailure          Reason = "attr-failure"
	ReasonOverwriteFailure     Reason = "overwrite-failure"
	ReasonConversionFailure    Reason = "conversion-failure"
	ReasonFailure              Reason = "failure"
)

// Result is a callback's response, also a string-backed enum.
type Result string

// Recognized results.
const (
	ResultContinue  Result = "continue"
	ResultCancel    Result = "cancel"
	ResultSkip      Result = "skip"
	ResultOverwrite Result = "overwrite"
)

// acceptedResults enumerates which Results a given Reason recognizes; an
// unrecognized response is treated as ResultCancel (spec.md §7).
var acceptedResults = map[Reason]map[Result]bool{
	ReasonQueryCancel:      {ResultContinue: true, ResultCancel: true},
	ReasonFileNameExists:   {ResultOverwrite: true, ResultSkip: true, ResultCancel: true},
	ReasonPathTooLong:      {ResultSkip: true, ResultCancel: true},
	ReasonResourceForkIgnored: {ResultContinue: true, ResultSkip: true, ResultCancel: true},
	ReasonAttrFailure:      {ResultContinue: true, ResultCancel: true},
	ReasonOverwriteFailure: {ResultSkip: true, ResultCancel: true},
	ReasonConversionFailure: {ResultSkip: true, ResultCancel: true},
	ReasonFailure:          {ResultSkip: true, ResultCancel: true},
	ReasonProgress:         {ResultContinue: true, ResultCancel: true},
}

// Normalize maps an unrecognized result for reason down to ResultCancel,
// per spec.md §7's propagation policy.
func Normalize(reason Reason, result Result) Result {
	if accepted, ok := acceptedResults[reason]; ok && accepted[result] {
		return result
	}
	return ResultCancel
}

// DOSTextConversionMode describes whether/how the high bit of text bytes is
// adjusted when copying to or from a DOS 3.x text file (spec.md §4.8).
type DOSTextConversionMode int

// Conversion modes.
const (
	DOSTextNone DOSTextConversionMode = iota
	DOSTextSetHighBit
	DOSTextClearHighBit
)

// Facts is the single payload passed to every callback invocation
// (spec.md §4.1's CallbackFacts).
type Facts struct {
	Reason Reason

	OrigPath      string
	OrigSeparator PathSeparator
	NewPath       string
	NewSeparator  PathSeparator

	Fork Fork

	// ProgressPercent is in [0, 99]; 100 is never emitted, per spec.md §6.
	ProgressPercent int

	DOSTextMode DOSTextConversionMode
	ConverterTag string

	FailureMessage string
}

// Func is the single polymorphic callback type every long-running worker
// accepts.
type Func func(Facts) Result

// NopFunc always answers ResultContinue/ResultOverwrite as appropriate,
// useful for tests and headless batch use where no interactive decision is
// possible; FileNameExists defaults to ResultOverwrite so a NopFunc caller
// gets "last requested entry wins" rather than silently stalling.
func NopFunc(f Facts) Result {
	switch f.Reason {
	case ReasonFileNameExists:
		return ResultOverwrite
	case ReasonQueryCancel, ReasonProgress:
		return ResultContinue
	default:
		return ResultContinue
	}
}
