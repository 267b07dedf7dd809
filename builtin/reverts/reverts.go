// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
)

// Kind groups revert errors by the layer that rejected the request.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthorization
	KindState
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindState:
		return "state"
	case KindExternal:
		return "external"
	default:
		return "unknown"
	}
}

// ErrRevert aborts the whole request. Code is stable and machine readable.
type ErrRevert struct {
	kind    Kind
	code    string
	message string
}

func New(kind Kind, code, message string) *ErrRevert {
	return &ErrRevert{
		kind:    kind,
		code:    code,
		message: message,
	}
}

func (e *ErrRevert) Error() string {
	return e.message
}

func (e *ErrRevert) Kind() Kind {
	return e.kind
}

func (e *ErrRevert) Code() string {
	return e.code
}

func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	return errors.As(e, &ve)
}

// KindOf returns the kind of the first revert error in the chain.
func KindOf(err error) Kind {
	var ve *ErrRevert
	if errors.As(err, &ve) {
		return ve.kind
	}
	return KindUnknown
}

// CodeOf returns the code of the first revert error in the chain, or empty.
func CodeOf(err error) string {
	var ve *ErrRevert
	if errors.As(err, &ve) {
		return ve.code
	}
	return ""
}

type causedErr struct {
	revert *ErrRevert
	cause  error
}

// WithCause returns an error classified as revert that keeps cause in its chain.
// errors.Is matches both revert and the sentinels of cause; KindOf and CodeOf
// report revert.
func WithCause(revert *ErrRevert, cause error) error {
	if cause == nil {
		return revert
	}
	return &causedErr{revert: revert, cause: cause}
}

func (e *causedErr) Error() string {
	return e.revert.Error() + ": " + e.cause.Error()
}

func (e *causedErr) Is(target error) bool {
	return target == error(e.revert)
}

func (e *causedErr) As(target any) bool {
	if t, ok := target.(**ErrRevert); ok {
		*t = e.revert
		return true
	}
	return false
}

func (e *causedErr) Unwrap() error {
	return e.cause
}
