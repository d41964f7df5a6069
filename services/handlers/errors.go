package handlers

import (
	"errors"

	"github.com/ezfoia/foia_api/dto"
	"github.com/ezfoia/foia_api/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// ErrorHandler turns a returned error into the {error, errors} body. Causes of
// 5xx answers are logged and never sent to the client.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if appErr, ok := shared.GetAppError(err); ok {
		if appErr.StatusCode >= fiber.StatusInternalServerError {
			log.Error().Err(appErr.Err).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Int("status", appErr.StatusCode).
				Msg(appErr.Message)
		}
		return shared.ResponseError(c, appErr.StatusCode, appErr.Message, appErr.Details)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return shared.ResponseError(c, fiberErr.Code, fiberErr.Message, nil)
	}

	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("Unhandled error")
	return shared.ResponseInternalError(c)
}

// bind parses the JSON body into req and runs its validation tags.
func bind(c *fiber.Ctx, req dto.Validator) error {
	if err := c.BodyParser(req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return shared.NewValidationError(dto.FormatValidationErrors(err))
	}
	return nil
}
