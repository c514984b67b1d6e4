package engine

import "fmt"

// Kind classifies the failure modes the storage engine can surface. Callers
// that need to branch on the failure (the REPL layer, mostly) should use
// errors.As to recover an *Error and switch on Kind rather than matching
// message strings.
type Kind int

const (
	// KindIOError wraps an underlying filesystem failure.
	KindIOError Kind = iota
	// KindNotFound covers a missing manifest (create_if_missing=false) or a
	// data/index file the manifest references but that is absent on disk.
	KindNotFound
	// KindCorruptManifest means the manifest document failed to parse or was
	// missing required fields.
	KindCorruptManifest
	// KindCorruptRecord means a record header, key, or value payload could
	// not be decoded.
	KindCorruptRecord
	// KindCorruptIndex means a sparse index was empty or truncated mid-entry.
	KindCorruptIndex
	// KindCorruptTable means an Exact bracketing lookup landed on a record
	// whose key disagreed with the index entry that pointed at it.
	KindCorruptTable
	// KindVersionMismatch means the on-disk manifest was written by an
	// incompatible engine version. Fatal.
	KindVersionMismatch
	// KindInvariantViolation means bounds() computed neither a lower nor an
	// upper bracket, which cannot happen against a well-formed sparse index.
	// Fatal.
	KindInvariantViolation
)

func (k Kind) String() string {
	switch k {
	case KindIOError:
		return "io_error"
	case KindNotFound:
		return "not_found"
	case KindCorruptManifest:
		return "corrupt_manifest"
	case KindCorruptRecord:
		return "corrupt_record"
	case KindCorruptIndex:
		return "corrupt_index"
	case KindCorruptTable:
		return "corrupt_table"
	case KindVersionMismatch:
		return "version_mismatch"
	case KindInvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

// Error is the error type returned by every exported engine operation that
// can fail for a reason the caller might want to branch on.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s (%s): %v", e.Op, e.Kind, e.Path, e.Err)
		}
		return fmt.Sprintf("%s: %s (%s)", e.Op, e.Kind, e.Path)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// IsFatal reports whether err indicates a programmer or on-disk-schema error
// the engine cannot recover from. Fatal errors should not be retried.
func IsFatal(err error) bool {
	var e *Error
	if !asError(err, &e) {
		return false
	}
	switch e.Kind {
	case KindVersionMismatch, KindCorruptTable, KindInvariantViolation:
		return true
	default:
		return false
	}
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func newErr(op string, kind Kind, path string, err error) *Error {
	return &Error{Op: op, Kind: kind, Path: path, Err: err}
}
