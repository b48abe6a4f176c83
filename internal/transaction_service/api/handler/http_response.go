package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/transfer-antifraud-saga/internal/domain/shared"
	"github.com/transfer-antifraud-saga/internal/platform/middleware"
)

const (
	codeBadRequest     = "BAD_REQUEST"
	codeNotFound       = "NOT_FOUND"
	codeInternalError  = "INTERNAL_SERVER_ERROR"
	internalErrMessage = "An internal server error occurred"
)

// Response represents a standard API response
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

// ErrorInfo represents error information in a response
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondWithData sends a JSON response with data
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, &Response{
		Data:          data,
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

// RespondWithError sends a JSON response with an error
func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, &Response{
		Error:         &ErrorInfo{Code: code, Message: message},
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

func RespondOK(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusOK, data)
}

func RespondCreated(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusCreated, data)
}

func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, codeBadRequest, message)
}

func RespondNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, codeNotFound, message)
}

// RespondInternalError hides the cause from the caller
func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, codeInternalError, internalErrMessage)
}

// RespondDomainError maps the shared error classes onto HTTP statuses.
// It reports true when the error was a client fault.
func RespondDomainError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, shared.ErrValidation), errors.Is(err, shared.ErrInvalidReference):
		RespondBadRequest(c, err.Error())
		return true
	case errors.Is(err, shared.ErrNotFound):
		RespondNotFound(c, err.Error())
		return true
	default:
		RespondInternalError(c)
		return false
	}
}
