package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/amankumarsingh77/doc-converter/internal/config"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const sessionIDLength = 32

// SessionContextKey is the echo context key holding the resolved session id.
const SessionContextKey = "session_id"

func GetRequestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

func GetIPAddress(c echo.Context) string {
	return c.RealIP()
}

// NewSessionID returns 32 hex chars derived from a fresh UUID and the current time.
func NewSessionID() string {
	sum := sha256.Sum256([]byte(uuid.NewString() + time.Now().UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:])[:sessionIDLength]
}

func GetSessionID(c echo.Context) string {
	if id, ok := c.Get(SessionContextKey).(string); ok {
		return id
	}
	return ""
}

func CreateSessionCookie(cfg *config.Config, session string) *http.Cookie {
	return &http.Cookie{
		Name:     cfg.Session.Name,
		Value:    session,
		Path:     "/",
		MaxAge:   cfg.Session.Expire,
		Secure:   cfg.Cookie.Secure,
		HttpOnly: cfg.Cookie.HTTPOnly,
		SameSite: http.SameSiteLaxMode,
	}
}
