package services

import (
	"errors"
	"fmt"
	"time"

	"citymap-backend-go/internal/models"
)

type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindForbidden         ErrorKind = "forbidden"
	KindQuotaExceeded     ErrorKind = "quota_exceeded"
	KindDuplicate         ErrorKind = "duplicate"
	KindNotFound          ErrorKind = "not_found"
	KindInvalidTransition ErrorKind = "invalid_transition"
	KindInternal          ErrorKind = "internal"
)

// ServiceError is the only error type returned from Engine operations.
type ServiceError struct {
	Kind    ErrorKind
	Status  int
	Message string

	ExistingPointID string
	QuotaClass      models.QuotaClass
	BannedUntil     *time.Time
	Permanent       bool
	Restriction     RestrictionCategory
}

func (e ServiceError) Error() string {
	return e.Message
}

// ErrRecordNotFound is returned by Store implementations for missing rows.
var ErrRecordNotFound = errors.New("record not found")

func ErrValidation(msg string) error {
	return ServiceError{Kind: KindValidation, Status: 400, Message: msg}
}

func ErrForbidden(msg string) error {
	return ServiceError{Kind: KindForbidden, Status: 403, Message: msg}
}

func ErrBanned(decision GuardDecision) error {
	err := ServiceError{Kind: KindForbidden, Status: 403, Permanent: decision.Permanent, BannedUntil: decision.Until}
	if decision.Permanent {
		err.Message = "Account is permanently banned"
	} else if decision.Until != nil {
		err.Message = "Account is banned until " + decision.Until.UTC().Format(time.RFC3339)
	}
	return err
}

func ErrRestricted(category RestrictionCategory) error {
	return ServiceError{
		Kind:        KindForbidden,
		Status:      403,
		Message:     fmt.Sprintf("Action %q is restricted for this account", category),
		Restriction: category,
	}
}

func ErrQuotaExceeded(class models.QuotaClass) error {
	return ServiceError{Kind: KindQuotaExceeded, Status: 429, Message: "Daily limit reached", QuotaClass: class}
}

func ErrPhotoQuotaExceeded() error {
	return ServiceError{Kind: KindQuotaExceeded, Status: 429, Message: "Monthly photo limit reached"}
}

func ErrDuplicate(existingID string) error {
	return ServiceError{
		Kind:            KindDuplicate,
		Status:          409,
		Message:         "A similar point already exists nearby",
		ExistingPointID: existingID,
	}
}

func ErrNotFound(msg string) error {
	return ServiceError{Kind: KindNotFound, Status: 404, Message: msg}
}

func ErrInvalidTransition(msg string) error {
	return ServiceError{Kind: KindInvalidTransition, Status: 409, Message: msg}
}

func ErrInternal() error {
	return ServiceError{Kind: KindInternal, Status: 500, Message: "Internal server error"}
}

// KindOf reports the kind of err, or KindInternal for foreign errors.
// KindOf returns the kind of err, or an empty kind for nil.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var serr ServiceError
	if errors.As(err, &serr) {
		return serr.Kind
	}
	return KindInternal
}

func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
