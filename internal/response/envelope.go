package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// 全APIで共通のレスポンス形
type Envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	StatusCode int         `json:"statusCode"`
}

// 200
func OK(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, Envelope{
		Success:    true,
		Message:    message,
		Data:       data,
		StatusCode: http.StatusOK,
	})
}

// 201
func Created(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusCreated, Envelope{
		Success:    true,
		Message:    message,
		Data:       data,
		StatusCode: http.StatusCreated,
	})
}

// エラー。errorにはステータスに対応するコードを入れる
func Fail(c echo.Context, status int, message string) error {
	return c.JSON(status, Envelope{
		Success:    false,
		Message:    message,
		Error:      Code(status),
		StatusCode: status,
	})
}

func Code(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "VALIDATION_ERROR"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusTooManyRequests:
		return "TOO_MANY_REQUESTS"
	default:
		return "INTERNAL_ERROR"
	}
}
