package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
)

// CSRFTokenHeader is the header clients send the CSRF token in.
const CSRFTokenHeader = "X-CSRF-Token"

const contextKeyCSRFToken = "csrf_token"

// CSRFMiddleware protects state-changing requests made with a session cookie.
// Requests carrying a valid Bearer token are exempt since browsers never
// attach one automatically. Safe methods only receive a fresh token.
func CSRFMiddleware(secret []byte, secure bool, authService *Service) gin.HandlerFunc {
	protect := csrf.Protect(
		secret,
		csrf.Secure(secure),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.Path("/"),
		csrf.RequestHeader(CSRFTokenHeader),
		csrf.ErrorHandler(http.HandlerFunc(csrfErrorHandler)),
	)

	return func(c *gin.Context) {
		if hasValidBearer(c, authService) {
			c.Next()
			return
		}

		req := c.Request
		if !secure {
			req = csrf.PlaintextHTTPRequest(req)
		}

		passed := false
		handler := protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Set(contextKeyCSRFToken, csrf.Token(r))
			c.Request = r
			c.Next()
		}))
		handler.ServeHTTP(c.Writer, req)

		// The error handler already responded, stop the chain.
		if !passed {
			c.Abort()
		}
	}
}

func csrfErrorHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`{"error":"CSRF token invalid or missing","code":"csrf_failed"}`))
}

// hasValidBearer reports whether the request authenticates with a valid
// Bearer token. A nil service accepts any Bearer header.
func hasValidBearer(c *gin.Context, authService *Service) bool {
	token, ok := bearerToken(c)
	if !ok {
		return false
	}
	if authService == nil {
		return true
	}
	_, err := authService.ValidateToken(token)
	return err == nil
}

// GetCSRFToken retrieves the CSRF token from the Gin context.
func GetCSRFToken(c *gin.Context) string {
	return c.GetString(contextKeyCSRFToken)
}
