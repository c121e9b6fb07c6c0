package gpt

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies the ways a GPT disk or command-line request can be
// unusable, mirroring the taxonomy a validator or mutator can produce.
type Kind int

// The kinds a caller of this package may need to branch on.
const (
	// KindNone means no error.
	KindNone Kind = iota
	// KindNotGpt means neither the primary nor the backup header carries
	// the "EFI PART" signature. Not an error for a pure print path.
	KindNotGpt
	// KindUnexpected means the header passed signature/revision/size
	// checks but violated some other structural invariant.
	KindUnexpected
	// KindCorrupt means the header's own CRC did not match its contents.
	KindCorrupt
	// KindCorruptPtable means the partition array's CRC did not match.
	KindCorruptPtable
	// KindCorruptBackup means the primary validated but the backup did not.
	KindCorruptBackup
	// KindIO means a read, write, or seek against the backing device failed.
	KindIO
	// KindBadUUID means a textual UUID could not be parsed.
	KindBadUUID
	// KindLabelTooLong means an encoded label overflowed the 36-code-unit slot.
	KindLabelTooLong
	// KindNoFit means the free-space planner found no gap matching a request.
	KindNoFit
	// KindParse means some other user-supplied value failed to parse.
	KindParse
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotGpt:
		return "not-gpt"
	case KindUnexpected:
		return "unexpected"
	case KindCorrupt:
		return "corrupt"
	case KindCorruptPtable:
		return "corrupt-ptable"
	case KindCorruptBackup:
		return "corrupt-backup"
	case KindIO:
		return "io-error"
	case KindBadUUID:
		return "bad-uuid"
	case KindLabelTooLong:
		return "label-too-long"
	case KindNoFit:
		return "no-fit"
	case KindParse:
		return "parse-error"
	default:
		return "unknown"
	}
}

// Error is the error type returned by every operation in this package that
// can fail. It carries a Kind so callers can branch on taxonomy without
// string matching, while still composing with errors.Is/As through the
// wrapped cause.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.err
}

// Is reports whether target is an *Error with the same Kind, letting
// callers write errors.Is(err, gpt.ErrCorrupt) style checks via a sentinel.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && other.Kind == e.Kind
}

// Sentinels for errors.Is(err, gpt.ErrXxx) style matching at call sites.
var (
	ErrNotGpt         = &Error{Kind: KindNotGpt}
	ErrUnexpected     = &Error{Kind: KindUnexpected}
	ErrCorrupt        = &Error{Kind: KindCorrupt}
	ErrCorruptPtable  = &Error{Kind: KindCorruptPtable}
	ErrCorruptBackup  = &Error{Kind: KindCorruptBackup}
	ErrIO             = &Error{Kind: KindIO}
	ErrBadUUID        = &Error{Kind: KindBadUUID}
	ErrLabelTooLong   = &Error{Kind: KindLabelTooLong}
	ErrNoFit          = &Error{Kind: KindNoFit}
	ErrParse          = &Error{Kind: KindParse}
)

func newErr(kind Kind, msg string) error {
	return errors.WithStack(&Error{Kind: kind, msg: msg})
}

func wrapErr(kind Kind, msg string, cause error) error {
	if cause == nil {
		return newErr(kind, msg)
	}
	return errors.WithStack(&Error{Kind: kind, msg: msg, err: cause})
}

// KindOf extracts the Kind from err, or KindNone if err is nil and
// KindUnexpected if err is a foreign error type.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}
