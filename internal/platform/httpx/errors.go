package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// Sentinel errors for domain layer. Domain packages attach them with
// Classify so RespondError can pick the status.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrConflict     = errors.New("state conflict")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
)

type classifiedError struct {
	msg   string
	class error
}

func (e *classifiedError) Error() string { return e.msg }
func (e *classifiedError) Unwrap() error { return e.class }

// Classify returns a new error with message msg that matches class under
// errors.Is.
func Classify(class error, msg string) error {
	return &classifiedError{msg: msg, class: class}
}

// KindedError is implemented by domain errors that carry a stable kind and
// structured detail for clients.
type KindedError interface {
	error
	ErrorKind() string
	ErrorDetail() any
}

// FieldError describes a single invalid request field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var kinded KindedError
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		RespondValidation(w, verrs)
	case errors.Is(err, ErrMalformedBody):
		Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
	case errors.As(err, &kinded):
		WriteProblem(w, ProblemDetail{
			Title:  "Request Rejected",
			Status: StatusFor(err),
			Detail: kinded.Error(),
			Kind:   kinded.ErrorKind(),
			Errors: kinded.ErrorDetail(),
		})
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
	case errors.Is(err, ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// StatusFor returns the HTTP status for a kinded error. Kinded errors that
// also wrap ErrNotFound or ErrDuplicate keep those statuses.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// RespondValidation writes validator failures as a 400 problem listing the fields.
func RespondValidation(w http.ResponseWriter, verrs validator.ValidationErrors) {
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Namespace(), Rule: fe.Tag()})
	}
	WriteProblem(w, ProblemDetail{
		Title:  "Validation Failed",
		Status: http.StatusBadRequest,
		Detail: "request failed validation",
		Kind:   "ValidationFailed",
		Errors: fields,
	})
}
