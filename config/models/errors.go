package models

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can choose a response without
// inspecting message text.
type Kind string

const (
	KindDirectoryUnavailable Kind = "directory_unavailable"
	KindNotFound             Kind = "not_found"
	KindMalformedJSON        Kind = "malformed_json"
	KindInvalidStructure     Kind = "invalid_structure"
	KindMissingCredential    Kind = "missing_credential"
	KindUnknownConfig        Kind = "unknown_config"
	KindAlreadyActive        Kind = "already_active"
	KindArchiveFailure       Kind = "archive_failure"
	KindSourceMissing        Kind = "source_missing"
	KindConfigInvalid        Kind = "config_invalid"
	KindAlreadyExists        Kind = "already_exists"
	KindCannotDeleteActive   Kind = "cannot_delete_active"
	KindCannotDeleteDefault  Kind = "cannot_delete_default"
	KindReadFailure          Kind = "read_failure"
	KindWriteFailure         Kind = "write_failure"
	KindMissingRequiredField Kind = "missing_required_field"
	KindInvalidInput         Kind = "invalid_input"
)

// Error carries a Kind plus the operation and file or id it concerns.
type Error struct {
	Kind Kind
	Op   string
	Name string
	Err  error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Name != "" {
		msg += " " + fmt.Sprintf("%q", e.Name)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so the sentinels below work with
// errors.Is regardless of Op and Name.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Name == "" && t.Err == nil
}

// E builds an *Error.
func E(kind Kind, op, name string, err error) *Error {
	return &Error{Kind: kind, Op: op, Name: name, Err: err}
}

// KindOf returns the outermost Kind in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

var (
	ErrDirectoryUnavailable = &Error{Kind: KindDirectoryUnavailable}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrMalformedJSON        = &Error{Kind: KindMalformedJSON}
	ErrInvalidStructure     = &Error{Kind: KindInvalidStructure}
	ErrMissingCredential    = &Error{Kind: KindMissingCredential}
	ErrUnknownConfig        = &Error{Kind: KindUnknownConfig}
	ErrAlreadyActive        = &Error{Kind: KindAlreadyActive}
	ErrArchiveFailure       = &Error{Kind: KindArchiveFailure}
	ErrSourceMissing        = &Error{Kind: KindSourceMissing}
	ErrConfigInvalid        = &Error{Kind: KindConfigInvalid}
	ErrAlreadyExists        = &Error{Kind: KindAlreadyExists}
	ErrCannotDeleteActive   = &Error{Kind: KindCannotDeleteActive}
	ErrCannotDeleteDefault  = &Error{Kind: KindCannotDeleteDefault}
	ErrReadFailure          = &Error{Kind: KindReadFailure}
	ErrWriteFailure         = &Error{Kind: KindWriteFailure}
	ErrMissingRequiredField = &Error{Kind: KindMissingRequiredField}
	ErrInvalidInput         = &Error{Kind: KindInvalidInput}
)
