package handler

import (
	"encoding/gob"
	"net/http"

	"subhlabh/internal/dto"
	"subhlabh/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog/log"
)

const (
	flashSession = "subhlabh_flash"
	authSession  = "subhlabh_auth"
	tokenKey     = "access_token"
)

func init() {
	gob.Register(dto.FlashMessage{})
}

// NewSessionStore returns the signed cookie store for browser clients: one
// session for flash messages, one carrying the access token after login.
func NewSessionStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// SessionToken reads the access token saved at login, for middleware.JWTAuth.
func SessionToken(store sessions.Store) middleware.TokenLookup {
	return func(r *http.Request) string {
		sess, err := store.Get(r, authSession)
		if err != nil {
			return ""
		}
		token, _ := sess.Values[tokenKey].(string)
		return token
	}
}

// saveSessionToken stores token in the auth cookie for maxAge seconds.
// A negative maxAge deletes the cookie.
func saveSessionToken(c *gin.Context, store sessions.Store, token string, maxAge int) {
	sess, err := store.Get(c.Request, authSession)
	if err != nil {
		log.Debug().Err(err).Msg("auth session reset")
	}
	sess.Options.MaxAge = maxAge
	if maxAge < 0 {
		delete(sess.Values, tokenKey)
	} else {
		sess.Values[tokenKey] = token
	}
	if err := sess.Save(c.Request, c.Writer); err != nil {
		log.Error().Err(err).Msg("auth session save failed")
	}
}

// addFlash queues a flash for the next page the client loads.
func addFlash(c *gin.Context, store sessions.Store, kind, msg string) {
	sess, err := store.Get(c.Request, flashSession)
	if err != nil {
		// A cookie signed with an old secret; start over with a fresh session.
		log.Debug().Err(err).Msg("flash session reset")
	}
	sess.AddFlash(dto.FlashMessage{Type: kind, Message: msg})
	if err := sess.Save(c.Request, c.Writer); err != nil {
		log.Error().Err(err).Msg("flash session save failed")
	}
}

// takeFlashes returns and clears the pending flashes.
func takeFlashes(c *gin.Context, store sessions.Store) []dto.FlashMessage {
	sess, err := store.Get(c.Request, flashSession)
	if err != nil {
		return nil
	}
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	out := make([]dto.FlashMessage, 0, len(raw))
	for _, f := range raw {
		if m, ok := f.(dto.FlashMessage); ok {
			out = append(out, m)
		}
	}
	if err := sess.Save(c.Request, c.Writer); err != nil {
		log.Error().Err(err).Msg("flash session save failed")
	}
	return out
}
