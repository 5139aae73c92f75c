package middleware

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// subject returns the authenticated user id as a string, or "anon" on
// routes that are not behind JWTAuth.
func subject(c echo.Context) string {
    if id, ok := c.Get(CtxUserID).(uint64); ok && id > 0 {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
