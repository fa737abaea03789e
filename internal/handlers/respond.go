// Package handlers holds the response conventions shared by the route handlers.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

// FieldError is one entry of the "errors" array on a validation failure.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// Error aborts with {"message": msg}.
func Error(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}

// Internal logs err server-side and answers 500 with a generic message.
func Internal(c *gin.Context, err error, msg string) {
	log.WithError(err).WithFields(log.Fields{
		"method": c.Request.Method,
		"route":  c.FullPath(),
	}).Error("❌ " + msg)
	_ = c.Error(err)
	Error(c, http.StatusInternalServerError, msg)
}

// BindJSON decodes and validates the body. On failure it has already written a 400.
func BindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		ValidationError(c, err)
		return false
	}
	return true
}

// ValidationError answers 400, listing field errors when the validator produced them.
func ValidationError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{Path: fieldPath(fe), Message: fieldMessage(fe)})
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"message": "Validation failed",
			"errors":  fields,
		})
		return
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		Error(c, http.StatusBadRequest, "Request body is required")
	case errors.As(err, &typeErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"message": "Validation failed",
			"errors":  []FieldError{{Path: typeErr.Field, Message: "Expected " + typeErr.Type.String()}},
		})
	case errors.As(err, &syntaxErr):
		Error(c, http.StatusBadRequest, "Malformed JSON body")
	default:
		Error(c, http.StatusBadRequest, "Invalid request body")
	}
}

// fieldPath drops the root struct name: "CheckoutRequest.items[0].quantity" -> "items[0].quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Required"
	case "email":
		return "Invalid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must contain at least %s characters", fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Must contain at least %s item(s)", fe.Param())
		}
		return "Must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must contain at most %s characters", fe.Param())
		}
		return "Must be at most " + fe.Param()
	case "gt":
		return "Must be greater than " + fe.Param()
	case "oneof":
		return "Must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "datetime":
		return "Must be a date formatted as " + fe.Param()
	default:
		return "Invalid value"
	}
}
