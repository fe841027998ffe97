package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	candidatedomain "github.com/smallbiznis/pricewatch/internal/candidate/domain"
	catalogdomain "github.com/smallbiznis/pricewatch/internal/catalog/domain"
	fallbackdomain "github.com/smallbiznis/pricewatch/internal/fallback/domain"
	offerdomain "github.com/smallbiznis/pricewatch/internal/offer/domain"
	pricehistorydomain "github.com/smallbiznis/pricewatch/internal/pricehistory/domain"
	snapshotdomain "github.com/smallbiznis/pricewatch/internal/snapshot/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	// Status carries the observation outcome when an ingest call is rejected.
	Status string       `json:"status,omitempty"`
	Error  errorPayload `json:"error"`
}

var (
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// validationSentinels are domain errors that describe a bad request.
var validationSentinels = []error{
	ErrInvalidRequest,

	catalogdomain.ErrInvalidID,
	catalogdomain.ErrInvalidName,
	catalogdomain.ErrInvalidChain,
	catalogdomain.ErrInvalidIdentifier,
	catalogdomain.ErrInvalidCoordinates,

	pricehistorydomain.ErrInvalidProduct,
	pricehistorydomain.ErrInvalidStore,
	pricehistorydomain.ErrInvalidPrice,
	pricehistorydomain.ErrInvalidCurrency,
	pricehistorydomain.ErrInvalidSource,

	snapshotdomain.ErrInvalidProduct,
	snapshotdomain.ErrInvalidStore,
	snapshotdomain.ErrInvalidObservation,

	fallbackdomain.ErrInvalidStore,
	fallbackdomain.ErrInvalidSourceStore,
	fallbackdomain.ErrSelfReference,
	fallbackdomain.ErrInvalidProduct,

	offerdomain.ErrInvalidProduct,
	offerdomain.ErrInvalidCurrency,

	candidatedomain.ErrInvalidSource,
	candidatedomain.ErrInvalidExternalID,
	candidatedomain.ErrInvalidName,
	candidatedomain.ErrInvalidPrice,
	candidatedomain.ErrInvalidCurrency,
	candidatedomain.ErrInvalidStatus,
	candidatedomain.ErrInvalidID,
	candidatedomain.ErrInvalidPageToken,
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{
			Status: c.GetString("observation_outcome"),
			Error:  payload,
		})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case errors.Is(err, candidatedomain.ErrNoOnlineStore):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "unprocessable",
			Message: "no online store for candidate source",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger the same type and code the client sees.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	return matchedValidationSentinel(err) != nil
}

func matchedValidationSentinel(err error) error {
	for _, sentinel := range validationSentinels {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return nil
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, catalogdomain.ErrOnlineStoreExists),
		errors.Is(err, catalogdomain.ErrIdentifierOwned),
		errors.Is(err, candidatedomain.ErrIdentifierConflict),
		errors.Is(err, candidatedomain.ErrIdentifierClaimed),
		errors.Is(err, candidatedomain.ErrNotStaged):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, catalogdomain.ErrOnlineStoreExists):
		return "chain already has an online store"
	case errors.Is(err, catalogdomain.ErrIdentifierOwned):
		return "identifier belongs to another product"
	case errors.Is(err, candidatedomain.ErrIdentifierConflict):
		return "identifier is attached to more than one product"
	case errors.Is(err, candidatedomain.ErrIdentifierClaimed):
		return "identifier was claimed by a concurrent adoption"
	case errors.Is(err, candidatedomain.ErrNotStaged):
		return "candidate is not staged"
	default:
		return "conflict"
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, catalogdomain.ErrNotFound),
		errors.Is(err, snapshotdomain.ErrNotFound),
		errors.Is(err, fallbackdomain.ErrNotFound),
		errors.Is(err, candidatedomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if sentinel := matchedValidationSentinel(err); sentinel != nil {
		return sentinel.Error()
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if code == "fallback_self_reference" {
		return "source_store_id"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "fallback_self_reference":
		return "store cannot fall back to itself"
	default:
		return "invalid value"
	}
}
