// Package ngerrors implements the structured error taxonomy shared by every
// gitgraft package: a single Error type carrying a code, a category, free-form
// context, and an optional wrapped cause.
package ngerrors

import (
	"errors"
	"strings"
)

// comparableError is an error that can be compared for errors.Is equality by
// something other than pointer identity. errors.Is falls back to this method
// when the target implements it, which is how *Error values compare equal
// across independently constructed instances that share a Code.
type comparableError interface {
	error
	Is(target error) bool
}

// Category groups error Codes by how a caller should react to them.
type Category string

const (
	UserActionable Category = "user_actionable"
	Retriable      Category = "retriable"
	Fatal          Category = "fatal"
)

// Code enumerates the specific error conditions recognized across gitgraft.
type Code string

const (
	// UserActionable codes.
	AuthRequired     Code = "AuthRequired"
	AuthExpired      Code = "AuthExpired"
	AuthInvalid      Code = "AuthInvalid"
	NotFastForward   Code = "NotFastForward"
	MergeConflict    Code = "MergeConflict"
	RepoNotFound     Code = "RepoNotFound"
	RepoAlreadyExist Code = "RepoAlreadyExists"
	QuotaExceeded    Code = "QuotaExceeded"
	PermissionDenied Code = "PermissionDenied"
	RefLocked        Code = "RefLocked"
	InvalidRefspec   Code = "InvalidRefspec"
	InvalidInput     Code = "InvalidInput"
	Unresolvable     Code = "Unresolvable"
	RequiresNetwork  Code = "RequiresNetwork"
	NotCloned        Code = "NotCloned"
	DirtyWorkingTree Code = "DirtyWorkingTree"
	ShallowRefusal   Code = "ShallowRefusal"
	NeedsSync        Code = "NeedsSync"
	NoChanges        Code = "NoChanges"
	Unsupported      Code = "Unsupported"

	// Retriable codes.
	NetworkError    Code = "NetworkError"
	Timeout         Code = "Timeout"
	RelayTimeout    Code = "RelayTimeout"
	RelayError      Code = "RelayError"
	ServerError5xx  Code = "ServerError5xx"
	TemporaryFail   Code = "TemporaryFailure"
	RateLimited     Code = "RateLimited"

	// Fatal codes.
	CorruptPack      Code = "CorruptPack"
	CorruptObject    Code = "CorruptObject"
	FsError          Code = "FsError"
	OperationAborted Code = "OperationAborted"
	UnknownError     Code = "UnknownError"
)

// Error is the concrete error type every gitgraft operation returns. It
// satisfies comparableError so errors.Is compares by code rather than by
// pointer identity.
type Error struct {
	Code     Code
	Category Category
	Context  string
	Cause    error
}

var _ comparableError = &Error{}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Context != "" {
		b.WriteString(": ")
		b.WriteString(e.Context)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Is implements comparableError: two *Error values are equal for errors.Is
// purposes iff they carry the same Code, regardless of Context or Cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New constructs an Error of the given code/category with no cause.
func New(code Code, category Category, context string) *Error {
	return &Error{Code: code, Category: category, Context: context}
}

var categoryByCode = map[Code]Category{
	AuthRequired:     UserActionable,
	AuthExpired:      UserActionable,
	AuthInvalid:      UserActionable,
	NotFastForward:   UserActionable,
	MergeConflict:    UserActionable,
	RepoNotFound:     UserActionable,
	RepoAlreadyExist: UserActionable,
	QuotaExceeded:    UserActionable,
	PermissionDenied: UserActionable,
	RefLocked:        UserActionable,
	InvalidRefspec:   UserActionable,
	InvalidInput:     UserActionable,
	Unresolvable:     UserActionable,
	RequiresNetwork:  UserActionable,
	NotCloned:        UserActionable,
	DirtyWorkingTree: UserActionable,
	ShallowRefusal:   UserActionable,
	NeedsSync:        UserActionable,
	NoChanges:        UserActionable,
	Unsupported:      UserActionable,

	NetworkError:   Retriable,
	Timeout:        Retriable,
	RelayTimeout:   Retriable,
	RelayError:     Retriable,
	ServerError5xx: Retriable,
	TemporaryFail:  Retriable,
	RateLimited:    Retriable,

	CorruptPack:      Fatal,
	CorruptObject:    Fatal,
	FsError:          Fatal,
	OperationAborted: Fatal,
	UnknownError:     Fatal,
}

// classifyRule is one pattern/code pair, checked in order against the
// lower-cased message of the underlying error.
type classifyRule struct {
	code     Code
	patterns []string
}

// rules are evaluated top to bottom; the first matching pattern wins. Order
// matters: more specific phrases (e.g. "not a fast-forward") must precede
// generic ones (e.g. "network").
var rules = []classifyRule{
	{AuthRequired, []string{"401", "unauthorized"}},
	{PermissionDenied, []string{"403", "forbidden", "permission denied"}},
	{NotFastForward, []string{"not a fast-forward", "non-fast-forward"}},
	{MergeConflict, []string{"merge conflict", "conflict"}},
	{RepoNotFound, []string{"404", "not found"}},
	{RateLimited, []string{"429", "rate limit"}},
	{ServerError5xx, []string{"500", "502", "503", "504", "internal server error"}},
	{Timeout, []string{"timed out", "timeout"}},
	{NetworkError, []string{"econnrefused", "econnreset", "econn", "network", "failed to fetch", "dns", "tls"}},
	{CorruptPack, []string{"corrupt", "bad object"}},
	{QuotaExceeded, []string{"enospc", "disk full"}},
	{FsError, []string{"enoent", "eacces", "eio"}},
	{OperationAborted, []string{"aborted", "canceled", "cancelled"}},
}

// Wrap classifies the underlying error's message against the §7 pattern
// table and returns a new *Error carrying the matched code, its category,
// the supplied context, and cause set to err. A nil err returns nil. If err
// already is (or wraps) an *Error, that *Error is returned unchanged and
// context is not applied.
func Wrap(err error, context string) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}
	msg := strings.ToLower(err.Error())
	code := UnknownError
	for _, r := range rules {
		for _, p := range r.patterns {
			if strings.Contains(msg, p) {
				code = r.code
				goto matched
			}
		}
	}
matched:
	return &Error{
		Code:     code,
		Category: categoryByCode[code],
		Context:  context,
		Cause:    err,
	}
}

// ExitCode implements the §6 CLI exit-code contract for any caller that
// builds a command-line surface on top of gitgraft.
func (e *Error) ExitCode() int {
	switch e.Code {
	case OperationAborted:
		return 130
	case CorruptPack, CorruptObject, FsError, UnknownError:
		return 4
	}
	switch e.Category {
	case Retriable:
		return 3
	case UserActionable:
		return 2
	default:
		return 4
	}
}
