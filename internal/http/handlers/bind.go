package handlers

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/amevide998/lms/internal/apperr"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// BindJSON binds the request body into out. On failure it records a
// validation error for the boundary translator and reports false.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	err := ctx.ShouldBindJSON(out)

	if err != nil {
		Fail(ctx, apperr.Wrap(apperr.KindValidation, bindMessage(err), err))

		return false
	}

	return true
}

func bindMessage(err error) string {
	var validatorErrors validator.ValidationErrors

	if errors.As(err, &validatorErrors) && len(validatorErrors) > 0 {
		fe := validatorErrors[0]
		return strings.ToLower(fe.Field()) + " " + validationMessage(fe.Tag(), fe.Param())
	}

	var syntaxError *json.SyntaxError

	if errors.As(err, &syntaxError) {
		return "invalid json syntax"
	}

	var typeError *json.UnmarshalTypeError

	if errors.As(err, &typeError) {
		field := strings.TrimSpace(typeError.Field)
		if field == "" {
			field = "body"
		}
		return field + " must be of type " + typeError.Type.String()
	}

	return "invalid request body"
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param + " characters"
	case "max":
		return "must be at most " + param + " characters"
	default:
		if param != "" {
			return "failed " + rule + " validation (" + param + ")"
		}
		return "failed " + rule + " validation"
	}
}
