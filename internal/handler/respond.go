package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"marketplace/internal/domain/model"
	"marketplace/internal/middleware"
	"marketplace/internal/response"
	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
)

// usecaseのエラー種別 → ステータス
func statusOf(kind error) int {
	switch kind {
	case usecase.ErrValidation:
		return http.StatusBadRequest
	case usecase.ErrUnauthorized:
		return http.StatusUnauthorized
	case usecase.ErrForbidden:
		return http.StatusForbidden
	case usecase.ErrNotFound:
		return http.StatusNotFound
	case usecase.ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// 500は中身を返さずログだけ残す
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}

	if ae, ok := usecase.AsAppError(err); ok {
		status := statusOf(ae.Kind)
		if status != http.StatusInternalServerError {
			return response.Fail(c, status, ae.Message)
		}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code < http.StatusInternalServerError {
		msg, _ := he.Message.(string)
		if msg == "" {
			msg = http.StatusText(he.Code)
		}
		return response.Fail(c, he.Code, msg)
	}

	slog.ErrorContext(c.Request().Context(), "internal error",
		"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		"method", c.Request().Method,
		"path", c.Path(),
		"err", err,
	)
	return response.Fail(c, http.StatusInternalServerError, "internal server error")
}

// Echo全体のエラーハンドラ（404ルート・405・panic後など）
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	_ = writeError(c, err)
}

func badRequest(c echo.Context, msg string) error {
	return response.Fail(c, http.StatusBadRequest, msg)
}

// Bindしてからvalidateタグを検証（e.Validatorはserver.Newで登録）
func bindRequest(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return &usecase.AppError{Kind: usecase.ErrValidation, Message: "invalid body", Err: err}
	}
	return c.Validate(req)
}

func unauthorized(c echo.Context) error {
	return response.Fail(c, http.StatusUnauthorized, "unauthorized")
}

// middleware.AuthJWT が c.Set("user_id", int64) した値を取り出す
func getUserIDFromContext(c echo.Context) (int64, bool) {
	return middleware.UserID(c)
}

func actorFromContext(c echo.Context) (usecase.Actor, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		return usecase.Actor{}, false
	}
	return usecase.Actor{UserID: id, Role: middleware.UserRole(c)}, true
}

// ログイン済みならユーザーのカート、そうでなければセッションのカート
func cartOwnerFromContext(c echo.Context) (model.CartOwner, bool) {
	if id, ok := middleware.UserID(c); ok {
		return model.UserOwner(id), true
	}
	if sid := middleware.SessionID(c); sid != "" {
		return model.GuestOwner(sid), true
	}
	return model.CartOwner{}, false
}

func paramID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// 空ならdef
func queryInt(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func queryInt64Ptr(c echo.Context, name string) (*int64, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// RFC3339 か YYYY-MM-DD
func queryTime(c echo.Context, name string) (*time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// page/limit/status/from/to
func parseListOrders(c echo.Context) (usecase.ListOrdersInput, error) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return usecase.ListOrdersInput{}, errors.New("invalid page")
	}
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		return usecase.ListOrdersInput{}, errors.New("invalid limit")
	}
	from, err := queryTime(c, "from")
	if err != nil {
		return usecase.ListOrdersInput{}, errors.New("invalid from")
	}
	to, err := queryTime(c, "to")
	if err != nil {
		return usecase.ListOrdersInput{}, errors.New("invalid to")
	}

	status := c.QueryParam("orderStatus")
	if status == "" {
		status = c.QueryParam("status")
	}

	return usecase.ListOrdersInput{
		Page:   page,
		Limit:  limit,
		Status: status,
		From:   from,
		To:     to,
	}, nil
}
