package middleware

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/rhum-atelier/internal/utils"
)

// Context keys set by JWTAuth.
const (
    CtxUserID     = "user_id"
    CtxRole       = "role"
    CtxMemberCode = "member_code"
)

// JWTAuth validates the Bearer access token and stores its claims in the
// echo context: user_id (uint64), role and member_code.  Handlers load the
// full identity from the users table when they need more.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            c.Set(CtxUserID, claims.UserID)
            c.Set(CtxRole, claims.Role)
            c.Set(CtxMemberCode, claims.MemberCode)
            return next(c)
        }
    }
}
