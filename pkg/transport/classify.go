package transport

import "github.com/gitgraft/gitgraft/pkg/ngerrors"

// retriable reports whether err should be treated as retriable by
// read-with-fallback: everything except the explicit non-retriable codes
// (auth/permission) is retriable, matching the spec's "default: retriable".
func retriable(err error) bool {
	wrapped := ngerrors.Wrap(err, "")
	switch wrapped.Code {
	case ngerrors.AuthRequired, ngerrors.AuthExpired, ngerrors.AuthInvalid, ngerrors.PermissionDenied:
		return false
	default:
		return true
	}
}
