package middleware

import (
	"github.com/amankumarsingh77/doc-converter/pkg/utils"
	"github.com/labstack/echo/v4"
)

// SessionMiddleware resolves the anonymous session cookie, issuing a new one
// on first contact, and stores the id in the echo context.
func (mw *MiddlewareManager) SessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var sessionID string
		if cookie, err := c.Cookie(mw.cfg.Session.Name); err == nil && cookie.Value != "" {
			sessionID = cookie.Value
		} else {
			sessionID = utils.NewSessionID()
			c.SetCookie(utils.CreateSessionCookie(mw.cfg, sessionID))
			mw.logger.Debugf("Issued session %s RequestID: %s", sessionID, utils.GetRequestID(c))
		}
		c.Set(utils.SessionContextKey, sessionID)
		return next(c)
	}
}
