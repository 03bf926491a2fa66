package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/apperr"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/logger"
)

// ErrorCodeHeader repeats the error code of a failed request.
const ErrorCodeHeader = "X-Error-Code"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var statusByCode = map[string]int{
	apperr.EInvalid:                http.StatusBadRequest,
	apperr.EUnauthorized:           http.StatusUnauthorized,
	apperr.EForbidden:              http.StatusForbidden,
	apperr.ENotFound:               http.StatusNotFound,
	apperr.EConflict:               http.StatusConflict,
	apperr.EInvalidStateTransition: http.StatusConflict,
	apperr.EInternal:               http.StatusInternalServerError,
}

var codeByStatus = map[int]string{
	http.StatusBadRequest:       apperr.EInvalid,
	http.StatusUnauthorized:     apperr.EUnauthorized,
	http.StatusForbidden:        apperr.EForbidden,
	http.StatusNotFound:         apperr.ENotFound,
	http.StatusMethodNotAllowed: apperr.ENotFound,
	http.StatusConflict:         apperr.EConflict,
}

// HTTPErrorHandler renders every error returned by a handler or middleware
// as {code, message}.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, message := classify(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		logger.FromEcho(c).Error("Request failed", zap.Error(err), zap.String("code", code))
	}

	c.Response().Header().Set(ErrorCodeHeader, code)
	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, ErrorResponse{Code: code, Message: message})
	}
	if writeErr != nil {
		logger.FromEcho(c).Error("Failed to write error response", zap.Error(writeErr))
	}
}

func classify(err error) (code, message string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		mapped, ok := codeByStatus[he.Code]
		if !ok {
			return apperr.EInternal, apperr.ErrorMessage(err)
		}
		return mapped, fmt.Sprint(he.Message)
	}
	return apperr.ErrorCode(err), apperr.ErrorMessage(err)
}
