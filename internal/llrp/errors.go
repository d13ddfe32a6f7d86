// SPDX-License-Identifier: AGPL-3.0-or-later
// llrpclient - LLRP client for the Zebra FX9600 reader family
// Copyright (C) 2023-2026 Jacob McSwain
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package llrp

import "fmt"

// ErrorKind is a stable, comparable tag for the class of failure an Error
// represents. Callers should branch on Kind, not on the formatted message.
type ErrorKind string

// Error kinds produced by this package and by internal/session.
const (
	ErrKindFrameLengthInvalid  ErrorKind = "frame_length_invalid"
	ErrKindFrameTooShort       ErrorKind = "frame_too_short"
	ErrKindParameterMalformed  ErrorKind = "parameter_malformed"
	ErrKindTagRecordMalformed  ErrorKind = "tag_record_malformed"
	ErrKindStatusNonSuccess    ErrorKind = "status_non_success"
	ErrKindUnexpectedMessage   ErrorKind = "unexpected_message"
	ErrKindConnectFailed       ErrorKind = "connect_failed"
	ErrKindReadTimeout         ErrorKind = "read_timeout"
	ErrKindConnectionClosed    ErrorKind = "connection_closed"
	ErrKindCapabilitiesMissing ErrorKind = "capabilities_missing"
)

// Error is the typed error this package and internal/session return for
// protocol-level failures: a stable Kind a caller can switch on, plus a
// free-form Detail for logs.
type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Is reports whether target is an *Error with the same Kind, so callers can
// use errors.Is(err, &llrp.Error{Kind: llrp.ErrKindFrameTooShort}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind ErrorKind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

func newErrorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
