package auth

import (
	"bufio"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"
)

// sessionWriter commits the session and writes its cookie right before the
// response headers go out. Gin handlers write headers themselves, so the
// commit cannot wait until after c.Next().
type sessionWriter struct {
	gin.ResponseWriter
	sm        *SessionManager
	request   *http.Request
	committed bool
}

func (w *sessionWriter) WriteHeader(code int) {
	w.commit()
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionWriter) WriteHeaderNow() {
	w.commit()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.commit()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) WriteString(s string) (int, error) {
	w.commit()
	return w.ResponseWriter.WriteString(s)
}

func (w *sessionWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return w.ResponseWriter.Hijack()
}

func (w *sessionWriter) commit() {
	if w.committed {
		return
	}
	w.committed = true

	ctx := w.request.Context()
	switch w.sm.Status(ctx) {
	case scs.Modified:
		token, expiry, err := w.sm.Commit(ctx)
		if err != nil {
			log.Printf("Failed to commit session: %v", err)
			return
		}
		w.sm.WriteSessionCookie(ctx, w.ResponseWriter, token, expiry)
	case scs.Destroyed:
		w.sm.WriteSessionCookie(ctx, w.ResponseWriter, "", time.Time{})
	}
}

// SessionLoadSave loads the session into the request context and persists
// changes once the handler responds. It must run before any session access.
func (sm *SessionManager) SessionLoadSave() gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		if cookie, err := c.Request.Cookie(sm.Cookie.Name); err == nil {
			token = cookie.Value
		}

		ctx, err := sm.Load(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Request = c.Request.WithContext(ctx)
		c.Header("Vary", "Cookie")

		w := &sessionWriter{
			ResponseWriter: c.Writer,
			sm:             sm,
			request:        c.Request,
		}
		c.Writer = w

		c.Next()

		w.commit()
	}
}
