// Package httpx holds the small helpers shared by every fiber handler: the
// response envelope and the authenticated caller stored in request locals.
package httpx

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Envelope is the JSON shape of every API response.
type Envelope struct {
	Status  bool        `json:"status"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

// Success writes a successful envelope with the given HTTP status.
func Success(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(Envelope{Status: true, Message: message, Data: data})
}

// OK is Success with 200.
func OK(c *fiber.Ctx, message string, data interface{}) error {
	return Success(c, fiber.StatusOK, message, data)
}

// Fail writes an error envelope.
func Fail(c *fiber.Ctx, status int, code, message string, details interface{}) error {
	return c.Status(status).JSON(Envelope{Status: false, Code: code, Message: message, Errors: details})
}

// ParamID parses a positive integer route parameter.
func ParamID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusNotFound, "not found")
	}
	return id, nil
}

// QueryID parses an optional positive integer query parameter. Absent or
// empty values return nil.
func QueryID(c *fiber.Ctx, name string) (*int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return &id, nil
}

// Page reads the 1-based page query parameter, defaulting to 1.
func Page(c *fiber.Ctx) int {
	page := c.QueryInt("page", 1)
	if page < 1 {
		return 1
	}
	return page
}
