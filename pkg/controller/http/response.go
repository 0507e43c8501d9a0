package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/usecase"
	"github.com/secmon-lab/collectdesk/pkg/utils/errutil"
)

const maxJSONBodySize = 1 << 20

var validate = newValidator()

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with proper error handling
func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		errutil.Handle(ctx, err, "failed to encode JSON response")
	}
}

var badRequestErrors = []error{
	model.ErrValidation,
	model.ErrInvalidValue,
	usecase.ErrInvalidActionType,
	usecase.ErrEmptyDescription,
	usecase.ErrInvalidAmount,
	usecase.ErrInvalidStatus,
	usecase.ErrInvalidExportFormat,
	usecase.ErrInvalidReference,
	usecase.ErrEmptyMessage,
}

// statusOf maps an error to the HTTP status it is reported with
func statusOf(err error) int {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest
	}
	var merr *http.MaxBytesError
	if errors.As(err, &merr) {
		return http.StatusRequestEntityTooLarge
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}

	switch {
	case errors.Is(err, usecase.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, usecase.ErrAccessDenied), errors.Is(err, usecase.ErrNotAssignedAgent):
		return http.StatusForbidden
	case errors.Is(err, usecase.ErrCaseNotFound),
		errors.Is(err, usecase.ErrConversationNotFound),
		errors.Is(err, interfaces.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err with the status derived from it. Validation
// failures get a readable message instead of the wrapped error chain.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		err = goerr.New(validationMessage(verrs), goerr.V("cause", err.Error()))
	}
	errutil.HandleHTTP(r.Context(), w, err, status)
}

func validationMessage(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email address")
		case "oneof":
			msgs = append(msgs, field+" must be one of: "+fe.Param())
		case "len":
			msgs = append(msgs, fmt.Sprintf("%s must be %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

// decodeJSON reads a bounded JSON body into v and validates its tags
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return goerr.Wrap(model.NewValidationError("body"), "request body is empty")
		}
		var merr *http.MaxBytesError
		if errors.As(err, &merr) {
			return goerr.Wrap(err, "request body too large")
		}
		return goerr.Wrap(model.ErrInvalidValue, "malformed JSON body", goerr.V("reason", err.Error()))
	}
	return validateStruct(v)
}

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return goerr.Wrap(err, "request validation failed")
	}
	return nil
}
