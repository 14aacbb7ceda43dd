package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/AntonKrinichnyi/trainstation/internal/apperr"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Detail string              `json:"detail"`
	Errors map[string][]string `json:"errors,omitempty"`
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// abortWithError writes err as a JSON error response. Unclassified errors
// are logged and reported without detail.
func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("api: %s %s [%s]: %v", c.Request.Method, c.Request.URL.Path, c.GetString(requestIDKey), err)
		c.AbortWithStatusJSON(status, errorBody{Detail: "Internal server error."})
		return
	}

	body := errorBody{Detail: err.Error()}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		body.Errors = ae.Fields
		switch {
		case ae.Detail != "":
			body.Detail = ae.Detail
		default:
			body.Detail = ae.Kind.Error()
		}
	}
	c.AbortWithStatusJSON(status, body)
}

var registerTagName sync.Once

// useJSONFieldNames makes validator report fields by their JSON names.
func useJSONFieldNames() {
	registerTagName.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// bindError converts a gin binding failure into a validation error.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := apperr.Invalid()
		for _, fe := range verrs {
			out.Add(fieldPath(fe), ruleMessage(fe))
		}
		return out
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return apperr.Validation("body", "request body is empty")
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return apperr.Validation(typeErr.Field, fmt.Sprintf("expected %s", typeErr.Type.String()))
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return apperr.Validation("body", "malformed JSON")
	}
	return apperr.Validation("body", err.Error())
}

// fieldPath strips the request struct name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	}
	return fmt.Sprintf("failed the %q rule", fe.Tag())
}
