package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/riyal-pay/riyal_wallet/internal/auth"
	"github.com/riyal-pay/riyal_wallet/internal/httpx"
)

// JWTAuth validates bearer access tokens and stores the caller in locals.
func JWTAuth(verifier *auth.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		claims, err := verifier.Verify(strings.TrimSpace(authz[len("Bearer "):]))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		}
		uid, _ := claims.UserID()

		c.Locals(httpx.LocalUserID, uid)
		c.Locals(httpx.LocalUserStatus, claims.Status)
		c.Locals(httpx.LocalPhoneVerified, claims.PhoneVerified)
		return c.Next()
	}
}

// RequireActive admits only active callers with a verified phone.
func RequireActive() fiber.Handler {
	return func(c *fiber.Ctx) error {
		status, _ := c.Locals(httpx.LocalUserStatus).(string)
		switch {
		case status == auth.StatusPending || (status == auth.StatusActive && !httpx.PhoneVerified(c)):
			return httpx.Fail(c, http.StatusForbidden, "ACCOUNT_NOT_VERIFIED", "Your account is not verified yet. Please complete phone verification.", nil)
		case status == auth.StatusBlocked:
			return httpx.Fail(c, http.StatusForbidden, "ACCOUNT_BLOCKED", "Your account has been blocked. Please contact support.", nil)
		case status == auth.StatusSuspended:
			return httpx.Fail(c, http.StatusForbidden, "ACCOUNT_SUSPENDED", "Your account is temporarily suspended.", nil)
		case status != auth.StatusActive:
			return httpx.Fail(c, http.StatusForbidden, "ACCOUNT_NOT_ACTIVE", "Your account is not active.", nil)
		}
		return c.Next()
	}
}
