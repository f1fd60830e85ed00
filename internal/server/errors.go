package server

import (
	"errors"
	"log/slog"

	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

const internalErrorMessage = "An error occurred"

// OperationError is one entry of the "errors" array in an operation response.
type OperationError struct {
	Message    string              `json:"message"`
	StatusCode int                 `json:"statusCode"`
	Data       []models.FieldIssue `json:"data,omitempty"`
}

type errorResponse struct {
	Errors []OperationError `json:"errors"`
}

// mapServiceError converts a service error into its wire form. Anything that is
// not an AppError, and every internal AppError, becomes an opaque 500.
func mapServiceError(err error) OperationError {
	var appErr *models.AppError
	if !errors.As(err, &appErr) || appErr.Code == models.CodeInternal {
		return OperationError{
			Message:    internalErrorMessage,
			StatusCode: fiber.StatusInternalServerError,
		}
	}
	return OperationError{
		Message:    appErr.Message,
		StatusCode: appErr.StatusCode(),
		Data:       appErr.Data,
	}
}

// respondWithErrors writes the error envelope. The HTTP status equals statusCode.
func respondWithErrors(c *fiber.Ctx, status int, message string, data []models.FieldIssue) error {
	return c.Status(status).JSON(errorResponse{Errors: []OperationError{{
		Message:    message,
		StatusCode: status,
		Data:       data,
	}}})
}

// respondWithServiceError maps err and logs the cause of 500s, which never reach the client.
func respondWithServiceError(c *fiber.Ctx, err error) error {
	opErr := mapServiceError(err)
	if opErr.StatusCode >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()), slog.String("error", err.Error()))
	}
	return respondWithErrors(c, opErr.StatusCode, opErr.Message, opErr.Data)
}
