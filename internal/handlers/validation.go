package handlers

import (
	stdErrors "errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/charlesng35/authcore/pkg/errors"
	"github.com/charlesng35/authcore/pkg/logger"
	"github.com/charlesng35/authcore/pkg/response"
	appValidator "github.com/charlesng35/authcore/pkg/validator"
)

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// When validation fails, an error response is automatically written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload").WithInternal(err))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, validationError(err))
		return false
	}

	return true
}

// respondError writes err to the client. Infrastructure failures are logged before being
// rendered as a generic 500.
func respondError(c *gin.Context, err error) {
	if appErrors.KindOf(err) == appErrors.KindInfrastructure {
		logger.WithModule("handlers").Error("request failed",
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
	}
	response.Error(c, err)
}

// validationError joins every failure into the message and keys each one by its JSON field.
func validationError(err error) *appErrors.AppError {
	var failures appValidator.ValidationErrors
	if !stdErrors.As(err, &failures) || len(failures) == 0 {
		return appErrors.NewBadRequest("invalid request payload")
	}

	messages := make([]string, 0, len(failures))
	fields := make(map[string]string, len(failures))
	for _, failure := range failures {
		msg := failureMessage(failure)
		messages = append(messages, msg)
		if _, seen := fields[failure.Field]; !seen {
			fields[failure.Field] = msg
		}
	}
	return appErrors.NewBadRequest(strings.Join(messages, "; ")).WithFields(fields)
}

func failureMessage(failure appValidator.ValidationError) string {
	field := prettifyFieldName(failure.Field)
	switch failure.Tag {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, failure.Param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, failure.Param)
	case "passwordbytes":
		return fmt.Sprintf("%s must be at most %d bytes", field, appValidator.MaxPasswordBytes)
	case "notblank":
		return field + " must not be blank"
	case "opaquetoken":
		return field + " is malformed"
	case "":
		return field + " is invalid"
	}
	if failure.Param != "" {
		return fmt.Sprintf("%s failed validation: %s=%s", field, failure.Tag, failure.Param)
	}
	return fmt.Sprintf("%s failed validation: %s", field, failure.Tag)
}

func prettifyFieldName(name string) string {
	if name == "" {
		return "field"
	}
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ToLower(name)
}
