package apperr

import (
	"errors"
	"fmt"
)

// Kind mengelompokkan semua kegagalan yang bisa dikembalikan oleh store
// dan kolaborator eksternal. Pemanggil wajib branch pada Kind,
// bukan pada tipe error konkret.
type Kind int

const (
	KindDuplicate Kind = iota
	KindNotAuthorized
	KindNotFound
	KindPersistence
	KindValidation
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindDuplicate:
		return "duplicate_entity"
	case KindNotAuthorized:
		return "not_authorized"
	case KindNotFound:
		return "not_found"
	case KindPersistence:
		return "persistence_failure"
	case KindValidation:
		return "validation_failure"
	case KindExternal:
		return "external_service_failure"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind   Kind
	Entity string // entitas atau operasi yang terlibat, untuk pesan & log
	Err    error  // penyebab asli, tidak pernah ditampilkan ke end user
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Entity, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Entity)
}

func (e *Error) Unwrap() error { return e.Err }

func Duplicate(entity string) *Error {
	return &Error{Kind: KindDuplicate, Entity: entity}
}

func NotAuthorized(op string) *Error {
	return &Error{Kind: KindNotAuthorized, Entity: op}
}

func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Entity: entity}
}

func Persistence(op string, err error) *Error {
	return &Error{Kind: KindPersistence, Entity: op, Err: err}
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Entity: msg}
}

func External(op string, err error) *Error {
	return &Error{Kind: KindExternal, Entity: op, Err: err}
}

// Is mengembalikan true jika err (atau salah satu wrap-nya)
// adalah *Error dengan Kind yang diminta.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
