package app

import (
	"errors"
	"fmt"
	"strings"

	"linkup/internal/middleware"
	"linkup/internal/service"
	"linkup/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// principal builds the caller identity from what the auth middleware stored.
func principal(c *gin.Context) service.Principal {
	userID, email := middleware.CurrentUser(c)
	return service.Principal{UserID: userID, Email: email}
}

// respondError maps service error kinds to status codes. Anything
// unrecognised is logged and answered with an opaque 500.
func respondError(c *gin.Context, err error) {
	message := err.Error()
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		message = svcErr.Message
	}

	switch {
	case errors.Is(err, service.ErrValidation):
		util.BadRequest(c, message)
	case errors.Is(err, service.ErrUnauthorized):
		util.Unauthorized(c, message)
	case errors.Is(err, service.ErrNotFound):
		util.NotFound(c, message)
	case errors.Is(err, service.ErrConflict):
		util.Conflict(c, message)
	default:
		userID, _ := middleware.CurrentUser(c)
		logrus.WithError(err).WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"user_id": userID,
		}).Error("Request failed")
		util.InternalError(c)
	}
}

// bindingMessage turns binding failures into a client-readable sentence.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request body"
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := toSnake(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "uuid":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid id", field))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, fe.Param()))
		case "min", "max":
			msgs = append(msgs, fmt.Sprintf("%s is out of range", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(msgs, "; ")
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
