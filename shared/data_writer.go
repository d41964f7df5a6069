package shared

import (
	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is the envelope every failed request is answered with.
type ErrorResponse struct {
	Error  string      `json:"error"`
	Errors interface{} `json:"errors,omitempty"`
}

var jsonAPI = sonic.Config{
	UseNumber:            true,
	EscapeHTML:           false,
	SortMapKeys:          false,
	CompactMarshaler:     true,
	NoQuoteTextMarshaler: true,
	NoNullSliceOrMap:     true,
}.Froze()

// JSON exposes the frozen sonic config used for every response body.
func JSON() sonic.API {
	return jsonAPI
}

var (
	successResponse  = mustMarshal(Response{Code: 200, Message: "Success"})
	createdResponse  = mustMarshal(Response{Code: 201, Message: "Created"})
	notFoundResponse = mustMarshal(ErrorResponse{Error: "Not Found"})
	unauthorizedResp = mustMarshal(ErrorResponse{Error: "Unauthorized"})
	forbiddenResp    = mustMarshal(ErrorResponse{Error: "Forbidden"})
	internalErrResp  = mustMarshal(ErrorResponse{Error: "Internal Server Error"})
)

func mustMarshal(v interface{}) []byte {
	b, _ := jsonAPI.Marshal(v)
	return b
}

func send(c *fiber.Ctx, httpCode int, body []byte) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Status(httpCode).Send(body)
}

// WriteJSON writes v as-is, without the {code,message,data} envelope.
func WriteJSON(c *fiber.Ctx, httpCode int, v interface{}) error {
	b, err := jsonAPI.Marshal(v)
	if err != nil {
		return err
	}
	return send(c, httpCode, b)
}

func ResponseJSON(c *fiber.Ctx, httpCode int, message string, data interface{}) error {
	if data == nil {
		switch httpCode {
		case 200:
			if message == "Success" {
				return send(c, httpCode, successResponse)
			}
		case 201:
			if message == "Created" {
				return send(c, httpCode, createdResponse)
			}
		}
	}

	return WriteJSON(c, httpCode, Response{
		Code:    httpCode,
		Message: message,
		Data:    data,
	})
}

func ResponseError(c *fiber.Ctx, httpCode int, message string, details interface{}) error {
	if details == nil {
		switch httpCode {
		case 401:
			if message == "Unauthorized" {
				return send(c, httpCode, unauthorizedResp)
			}
		case 403:
			if message == "Forbidden" {
				return send(c, httpCode, forbiddenResp)
			}
		case 404:
			if message == "Not Found" {
				return send(c, httpCode, notFoundResponse)
			}
		case 500:
			if message == "Internal Server Error" {
				return send(c, httpCode, internalErrResp)
			}
		}
	}

	return WriteJSON(c, httpCode, ErrorResponse{Error: message, Errors: details})
}

func ResponseOK(c *fiber.Ctx, data interface{}) error {
	return ResponseJSON(c, 200, "Success", data)
}

func ResponseCreated(c *fiber.Ctx, data interface{}) error {
	return ResponseJSON(c, 201, "Created", data)
}

func ResponseNotFound(c *fiber.Ctx) error {
	return ResponseError(c, 404, "Not Found", nil)
}

func ResponseUnauthorized(c *fiber.Ctx) error {
	return ResponseError(c, 401, "Unauthorized", nil)
}

func ResponseForbidden(c *fiber.Ctx) error {
	return ResponseError(c, 403, "Forbidden", nil)
}

func ResponseBadRequest(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Bad Request"
	}
	return ResponseError(c, 400, message, nil)
}

func ResponseInternalError(c *fiber.Ctx) error {
	return ResponseError(c, 500, "Internal Server Error", nil)
}
