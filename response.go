package auth

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// Envelope is the JSON body of every API response.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failed request
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// detailsKey is the metadata key exposed to clients as error details.
const detailsKey = "fields"

// SendOK writes a success envelope
func SendOK(ctx router.Context, status int, data any) error {
	return ctx.JSON(status, Envelope{Success: true, Data: data})
}

// NewErrorHandler returns a fiber.ErrorHandler writing the error envelope.
// Only metadata stored under "fields" is exposed to clients.
func NewErrorHandler(logger Logger) fiber.ErrorHandler {
	logger = normalizeLogger(logger)

	return func(c *fiber.Ctx, err error) error {
		richErr := toRichError(err)

		if richErr.Code >= http.StatusInternalServerError {
			logger.Error("request failed",
				"path", c.Path(),
				"code", richErr.TextCode,
				"error", err,
			)
		} else {
			logger.Debug("request rejected",
				"path", c.Path(),
				"code", richErr.TextCode,
				"details", print.MaybePrettyJSON(richErr.Metadata),
			)
		}

		body := &ErrorBody{
			Code:    richErr.TextCode,
			Message: richErr.Message,
		}
		if details, ok := richErr.Metadata[detailsKey]; ok {
			body.Details = details
		}

		return c.Status(richErr.Code).JSON(Envelope{Success: false, Error: body})
	}
}

func toRichError(err error) *errors.Error {
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr != nil {
		out := richErr.Clone()
		if out == nil {
			out = richErr
		}
		if out.Code == 0 {
			out.Code = statusForCategory(out)
		}
		if out.TextCode == "" {
			out.TextCode = textCodeForStatus(out.Code)
		}
		if out.Code >= http.StatusInternalServerError {
			out.Message = ErrInternal.Message
		}
		return out
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return errors.New(fiberErr.Message, errors.CategoryBadInput).
			WithCode(fiberErr.Code).
			WithTextCode(textCodeForStatus(fiberErr.Code))
	}

	return withSource(ErrInternal, err, nil)
}

func statusForCategory(err *errors.Error) int {
	switch err.Category {
	case errors.CategoryAuth:
		return http.StatusUnauthorized
	case errors.CategoryAuthz:
		return http.StatusForbidden
	case errors.CategoryBadInput, errors.CategoryValidation:
		return http.StatusBadRequest
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func textCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return TextCodeInvalidInput
	case http.StatusUnauthorized:
		return TextCodeAuthenticationRequired
	case http.StatusInternalServerError:
		return TextCodeInternal
	}
	text := http.StatusText(status)
	if text == "" {
		return TextCodeInternal
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}
