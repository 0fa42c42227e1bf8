package httpx

import "github.com/gofiber/fiber/v2"

// Keys under which the auth middleware stores the verified caller.
const (
	LocalUserID        = "user_id"
	LocalUserStatus    = "user_status"
	LocalPhoneVerified = "phone_verified"
)

// UserID returns the authenticated user id or a 401 error.
func UserID(c *fiber.Ctx) (int64, error) {
	uid, ok := c.Locals(LocalUserID).(int64)
	if !ok || uid <= 0 {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "unauthenticated")
	}
	return uid, nil
}

// PhoneVerified reports whether the caller's token carries a verified phone.
func PhoneVerified(c *fiber.Ctx) bool {
	v, _ := c.Locals(LocalPhoneVerified).(bool)
	return v
}
