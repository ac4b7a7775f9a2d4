package handler

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// ValidationDetail is one entry of a 422 response body.
type ValidationDetail struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// RequestID returns the correlation id for the current request. The
// RequestID middleware guarantees the response header is populated; "-" is
// the fallback when the middleware is absent.
func RequestID(c echo.Context) string {
	rid := c.Response().Header().Get(echo.HeaderXRequestID)
	if rid == "" {
		rid = c.Request().Header.Get(echo.HeaderXRequestID)
	}
	if rid == "" {
		rid = "-"
	}
	return rid
}

// detailsFromValidator flattens go-playground validation errors into the
// 422 response shape.
func detailsFromValidator(err error) []ValidationDetail {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]ValidationDetail, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, ValidationDetail{
				Loc:  []string{"body", "raw_meeting", fe.Field()},
				Msg:  fmt.Sprintf("failed '%s' validation", fe.Tag()),
				Type: fe.Tag(),
			})
		}
		return details
	}
	return []ValidationDetail{{Loc: []string{"body"}, Msg: err.Error(), Type: "value_error"}}
}
