package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/marketday/internal/app/models/dto"
	"github.com/yigit/marketday/internal/pkg/apperrors"
	"github.com/yigit/marketday/internal/pkg/logger"
)

// apiError is one row of the error mapping table
type apiError struct {
	target  error
	status  int
	code    dto.ErrorCode
	message string
}

// errorTable is checked in order; the first sentinel matched by errors.Is wins
var errorTable = []apiError{
	{apperrors.ErrResourceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},
	{apperrors.ErrOutOfStock, http.StatusBadRequest, dto.ErrorCodeOutOfStock, "Item out of stock"},
	{apperrors.ErrInsufficientBalance, http.StatusBadRequest, dto.ErrorCodeInsufficientBalance, "Not enough tickets"},
	{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed"},
	{apperrors.ErrBadRequest, http.StatusBadRequest, dto.ErrorCodeBadRequest, "Bad request"},
	{apperrors.ErrPolicyViolation, http.StatusConflict, dto.ErrorCodePolicyViolation, "Operation not allowed"},
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid credentials"},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired"},
	{apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
	{apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied"},
}

// ErrorDetailFor builds the status and ErrorDetail for err
func ErrorDetailFor(err error) (int, *dto.ErrorDetail) {
	for _, e := range errorTable {
		if !errors.Is(err, e.target) {
			continue
		}

		message := e.message
		var details interface{}
		var custom *apperrors.CustomError
		if errors.As(err, &custom) {
			message = custom.Error()
			if custom.Details != nil {
				details = custom.Details
			}
		} else if e.target == apperrors.ErrValidationFailed || e.target == apperrors.ErrBadRequest {
			// fmt.Errorf("%w: reason") carries the reason in the text
			message = err.Error()
		}

		detail := dto.NewErrorDetail(e.code, message)
		if details != nil {
			detail = detail.WithDetails(details)
		}
		if e.status < http.StatusInternalServerError && e.status != http.StatusUnauthorized {
			detail = detail.WithSeverity(dto.ErrorSeverityWarning)
		}
		return e.status, detail
	}

	return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")
}

// HandleAPIError maps err onto an HTTP status and writes the error envelope
func HandleAPIError(c *gin.Context, err error) {
	status, detail := ErrorDetailFor(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).
			Str("path", c.Request.URL.Path).
			Str("requestID", c.GetString(RequestIDKey)).
			Msg("Unhandled error")
	}
	c.JSON(status, dto.NewErrorResponse(detail))
}

// AbortWithError writes an error envelope for a request that cannot continue
func AbortWithError(c *gin.Context, status int, code dto.ErrorCode, message string, details ...interface{}) {
	detail := dto.NewErrorDetail(code, message)
	if len(details) > 0 {
		detail = detail.WithDetails(details[0])
	}
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(detail))
}
