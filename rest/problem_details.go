// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/z5labs/rampart"
	"github.com/z5labs/rampart/rest/validation"
)

// ProblemDetail represents an RFC 7807 Problem Details error response.
//
// RFC 7807 defines a standard format for HTTP API error responses.
// Embed this struct in your custom error types to add extension fields.
//
// Example:
//
//	type OutOfStockError struct {
//	    rest.ProblemDetail
//	    ProductID string `json:"product_id"`
//	}
//
//	return nil, OutOfStockError{
//	    ProblemDetail: rest.ProblemDetail{
//	        Type:   "https://api.example.com/problems/out-of-stock",
//	        Title:  "Out of Stock",
//	        Status: http.StatusConflict,
//	        Detail: "The product can not be ordered right now",
//	    },
//	    ProductID: "pencil",
//	}
//
// Reference: https://www.rfc-editor.org/rfc/rfc7807
type ProblemDetail struct {
	// Type is a URI reference that identifies the problem type.
	// When dereferenced, it should provide human-readable documentation.
	// Defaults to "about:blank" when the problem has no specific type.
	Type string `json:"type"`

	// Title is a short, human-readable summary of the problem type.
	// It SHOULD NOT change from occurrence to occurrence of the problem,
	// except for purposes of localization.
	Title string `json:"title"`

	// Status is the HTTP status code for this occurrence of the problem.
	Status int `json:"status"`

	// Detail is a human-readable explanation specific to this occurrence
	// of the problem. Unlike Title, Detail can vary for different occurrences.
	Detail string `json:"detail,omitempty"`

	// Instance is a URI reference that identifies the specific occurrence
	// of the problem. It may or may not yield further information if dereferenced.
	Instance string `json:"instance,omitempty"`
}

// Error implements the error interface.
// Returns the Detail field if present, otherwise returns the Title.
// This allows ProblemDetail to be used directly as a Go error.
func (p ProblemDetail) Error() string {
	if p.Detail != "" {
		return p.Detail
	}
	return p.Title
}

type problemDetailMarker interface {
	statusCode() int
}

func (p ProblemDetail) statusCode() int {
	return p.Status
}

// ProblemDetailsErrorHandler is an [ErrorHandler] writing RFC 7807
// application/problem+json responses.
//
// Errors embedding [ProblemDetail] are written as they are, extension fields
// included. Errors of this package are classified by their cause, so a
// failed request body validation becomes a 422 invalid-request-body problem
// whose detail lists every violation. Anything else becomes a 500 problem.
//
// Only problems describing the client's own request carry a detail taken
// from the error. Every other detail is "An internal server error occurred."
//
// Example:
//
//	rest.Operation(
//	    http.MethodPost,
//	    rest.BasePath("/products"),
//	    rest.HandleJson(createProduct),
//	    rest.OnError(rest.NewProblemDetailsErrorHandler(
//	        rest.WithDefaultType("https://api.example.com/problems/"),
//	    )),
//	)
type ProblemDetailsErrorHandler struct {
	config problemDetailsConfig
	log    *slog.Logger
}

type problemDetailsConfig struct {
	defaultType string
	violations  bool
}

// ProblemDetailsOption configures a [ProblemDetailsErrorHandler].
type ProblemDetailsOption func(*problemDetailsConfig)

// WithDefaultType sets the base URI problem types are appended to, e.g.
// "https://api.example.com/problems/". With the default, "about:blank",
// every problem has the type "about:blank".
func WithDefaultType(uri string) ProblemDetailsOption {
	return func(c *problemDetailsConfig) {
		c.defaultType = uri
	}
}

// WithViolations adds a violations member to invalid-request-body
// problems, listing each violation with a JSON Pointer to the offending
// value.
func WithViolations() ProblemDetailsOption {
	return func(c *problemDetailsConfig) {
		c.violations = true
	}
}

// NewProblemDetailsErrorHandler initializes a [ProblemDetailsErrorHandler].
func NewProblemDetailsErrorHandler(opts ...ProblemDetailsOption) *ProblemDetailsErrorHandler {
	cfg := problemDetailsConfig{
		defaultType: "about:blank",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &ProblemDetailsErrorHandler{
		config: cfg,
		log:    rampart.Logger("github.com/z5labs/rampart/rest"),
	}
}

// ViolationDetail is one entry of the violations member added by
// [WithViolations].
type ViolationDetail struct {
	// Pointer is the JSON Pointer of the offending value, "" for the root.
	Pointer string `json:"pointer"`
	Keyword string `json:"keyword"`
	Message string `json:"message"`
}

type invalidRequestBodyProblem struct {
	ProblemDetail
	Violations []ViolationDetail `json:"violations"`
}

const internalErrorDetail = "An internal server error occurred."

// OnError implements the [ErrorHandler] interface.
func (h *ProblemDetailsErrorHandler) OnError(ctx context.Context, w http.ResponseWriter, err error) {
	h.log.ErrorContext(ctx, "sending error response", slog.Any("error", err))

	var body any
	status := http.StatusInternalServerError

	var custom problemDetailMarker
	if errors.As(err, &custom) {
		body = custom
		status = custom.statusCode()
	} else {
		pd, violations := h.classify(err)
		status = pd.Status
		body = pd
		if violations != nil {
			body = invalidRequestBodyProblem{ProblemDetail: pd, Violations: violations}
		}
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)

	encodeErr := json.NewEncoder(w).Encode(body)
	if encodeErr != nil {
		h.log.ErrorContext(ctx, "failed to encode problem details", slog.Any("error", encodeErr))
	}
}

// classify maps errors of this package onto problems. The returned
// violations are only set for invalid request bodies when enabled.
func (h *ProblemDetailsErrorHandler) classify(err error) (ProblemDetail, []ViolationDetail) {
	pd := ProblemDetail{
		Type:   h.config.defaultType,
		Title:  "Internal Server Error",
		Status: http.StatusInternalServerError,
		Detail: internalErrorDetail,
	}

	var (
		badRequest    BadRequestError
		unprocessable UnprocessableEntityError
		tooLarge      RequestTooLargeError
		invalidSpec   InvalidSpecError
	)
	switch {
	case errors.As(err, &badRequest):
		pd.Status = http.StatusBadRequest
		pd.Type, pd.Title = h.badRequestProblem(badRequest.Cause)
		if validation.KindOf(badRequest.Cause) == validation.KindMissingRequiredBody {
			pd.Detail = badRequest.Cause.Error()
		}
	case errors.As(err, &unprocessable):
		pd.Status = http.StatusUnprocessableEntity
		pd.Type = h.typeURI("invalid-request-body")
		pd.Title = "Invalid Request Body"
		pd.Detail = unprocessable.Detail()

		var invalid *validation.InvalidRequestBodyError
		if h.config.violations && errors.As(unprocessable.Cause, &invalid) {
			return pd, violationDetails(invalid.Violations)
		}
	case errors.As(err, &tooLarge):
		pd.Status = http.StatusRequestEntityTooLarge
		pd.Type = h.typeURI("request-too-large")
		pd.Title = "Request Entity Too Large"
		pd.Detail = tooLarge.Error()
	case errors.As(err, &invalidSpec):
		pd.Type = h.typeURI("invalid-api-specification")
	case isHttpResponseWriter(err):
		pd.Type = h.typeURI("internal-error")
	}
	return pd, nil
}

func (h *ProblemDetailsErrorHandler) badRequestProblem(cause error) (typ, title string) {
	var (
		missingParam       MissingRequiredParameterError
		invalidParam       InvalidParameterValueError
		invalidContentType InvalidContentTypeError
		invalidJSON        InvalidJSONError
	)
	switch {
	case validation.KindOf(cause) == validation.KindMissingRequiredBody:
		return h.typeURI("missing-request-body"), "Missing Request Body"
	case errors.As(cause, &missingParam):
		return h.typeURI("missing-required-parameter"), "Missing Required Parameter"
	case errors.As(cause, &invalidParam):
		return h.typeURI("invalid-parameter-value"), "Invalid Parameter Value"
	case errors.As(cause, &invalidContentType):
		return h.typeURI("invalid-content-type"), "Invalid Content Type"
	case errors.As(cause, &invalidJSON):
		return h.typeURI("invalid-json"), "Invalid JSON"
	default:
		return h.typeURI("bad-request"), "Bad Request"
	}
}

func isHttpResponseWriter(err error) bool {
	var hrw HttpResponseWriter
	return errors.As(err, &hrw)
}

// typeURI appends problemType to the configured base URI. An about:blank
// base stays about:blank.
func (h *ProblemDetailsErrorHandler) typeURI(problemType string) string {
	if h.config.defaultType == "about:blank" {
		return "about:blank"
	}
	return h.config.defaultType + problemType
}

func violationDetails(vs []validation.Violation) []ViolationDetail {
	details := make([]ViolationDetail, 0, len(vs))
	for _, v := range vs {
		details = append(details, ViolationDetail{
			Pointer: jsonPointer(v.InstanceLocation),
			Keyword: v.Keyword,
			Message: v.Message,
		})
	}
	return details
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func jsonPointer(tokens []string) string {
	var sb strings.Builder
	for _, tok := range tokens {
		sb.WriteByte('/')
		pointerEscaper.WriteString(&sb, tok)
	}
	return sb.String()
}
