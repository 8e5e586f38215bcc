// Package auth provides authentication and authorization for the catalog.
//
// It supports two authentication modes:
//   - "local": Local user database with session cookies for browsers and Bearer tokens for API clients (default)
//   - "none": No authentication, every restricted route is open
//
// Catalog pages are public in both modes. Middleware.Handler only identifies
// the caller; restrictions are applied per route:
//
//	router.GET("/catalog/mybooks", mw.RequireAuth(), loans.MyBooks)
//	router.GET("/catalog/borrowed", mw.RequirePermission(entities.PermissionCanMarkReturned), loans.Borrowed)
//	admin := router.Group("/admin", mw.RequireRole(entities.UserRoleAdmin, entities.UserRoleLibrarian))
//
// Anonymous browser requests to a restricted route are redirected to
// /login?next=<path>; API requests receive 401. Authenticated users lacking a
// role or permission receive 403.
//
// # Configuration
//
//	AUTH_MODE=local                 # or "none"
//	AUTH_SESSION_SECRET=<hex>       # CSRF signing key, generated if empty
//	AUTH_SESSION_LIFETIME=24h
//	AUTH_TOKEN_EXPIRY=720h
//	AUTH_BCRYPT_COST=12
//	AUTH_SECURE_COOKIES=true
//
// Sessions exist for anonymous visitors as well, so per-visitor counters such
// as the home page visit count survive between requests.
package auth
