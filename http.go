package punchcard

import (
	"context"
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/punchcard-app/punchcard/middleware/sessionware"
)

// RouteAuthenticator bridges the Authenticator to the HTTP layer: it sets and
// clears the session cookie and builds the middleware that guards protected
// routes. All error output is JSON; there is no redirect flow.
type RouteAuthenticator struct {
	auth           Authenticator
	cfg            Config
	cookieDuration time.Duration
	Logger         Logger
	ErrorHandler   func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	cookieDuration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	a := &RouteAuthenticator{
		cfg:            cfg,
		auth:           auther,
		Logger:         defLogger{},
		cookieDuration: cookieDuration,
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

// ProtectedRoute requires a valid session. Claims are stashed under the
// configured context key and propagated into the request context.
func (a *RouteAuthenticator) ProtectedRoute(errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return a.protected(errorHandler, "")
}

// AdminRoute requires a valid session with at least the admin role.
func (a *RouteAuthenticator) AdminRoute(errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return a.protected(errorHandler, RoleAdmin)
}

func (a *RouteAuthenticator) protected(errorHandler func(router.Context, error) error, minRole string) router.MiddlewareFunc {
	return sessionware.New(sessionware.Config{
		ErrorHandler:   errorHandler,
		TokenValidator: tokenValidatorAdapter{a.auth.TokenService()},
		ContextKey:     a.cfg.GetContextKey(),
		TokenLookup:    a.cfg.GetTokenLookup(),
		AuthScheme:     a.cfg.GetAuthScheme(),
		MinimumRole:    minRole,
		RoleRanker:     RoleAtLeast,
		ContextEnricher: func(c context.Context, claims sessionware.AuthClaims) context.Context {
			if ac, ok := claims.(AuthClaims); ok {
				return WithClaimsContext(c, ac)
			}
			return c
		},
	})
}

// tokenValidatorAdapter exposes the TokenService through the middleware's
// validator interface.
type tokenValidatorAdapter struct {
	tokens TokenService
}

func (v tokenValidatorAdapter) Validate(raw string) (sessionware.AuthClaims, error) {
	claims, err := v.tokens.Validate(raw)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Login resolves the payload against the directory and, on success, sets the
// session cookie. The result is returned so callers can surface the
// needsPasswordChange flag.
func (a *RouteAuthenticator) Login(ctx router.Context, payload LoginPayload) (*LoginResult, error) {
	result, err := a.auth.Login(ctx.Context(), payload.GetIdentifier(), payload.GetSecret())
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return nil, err
	}

	a.setCookieToken(ctx, result.Token, a.cookieDuration)
	return result, nil
}

// EstablishSession signs a session for an already verified user and sets the
// cookie. Used after invitation redemption, where the new password just got
// stored and re-running login would be redundant.
func (a *RouteAuthenticator) EstablishSession(ctx router.Context, user *User) error {
	token, err := a.auth.TokenService().Generate(user, user.NeedsPassword)
	if err != nil {
		return err
	}
	a.setCookieToken(ctx, token, a.cookieDuration)
	return nil
}

func (a *RouteAuthenticator) Logout(ctx router.Context) {
	a.cookieDel(ctx, a.cfg.GetContextKey())
}

// SessionFromRequest extracts and validates the session token carried by the
// request, outside of middleware.
func (a *RouteAuthenticator) SessionFromRequest(ctx router.Context) (Session, error) {
	raw, err := sessionware.ExtractRawTokenFromContext(
		ctx,
		sessionware.GetExtractors(a.cfg.GetTokenLookup(), a.cfg.GetAuthScheme()),
	)
	if err != nil || raw == "" {
		return nil, ErrUnableToFindSession
	}
	return a.auth.SessionFromToken(raw)
}

// MakeClientRouteAuthErrorHandler builds the middleware error handler for
// protected routes. With optional set the request proceeds unauthenticated.
func (a *RouteAuthenticator) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else if !errors.As(err, &richErr) {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid session token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

func (a *RouteAuthenticator) setCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetContextKey(),
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	richErr := asRichError(err)

	a.Logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	return RenderJSONError(c, richErr)
}

// RenderJSONError writes a rich error as a JSON response, mapping the error
// category to an HTTP status.
func RenderJSONError(c router.Context, err error) error {
	richErr := asRichError(err)
	return c.JSON(statusForError(richErr), map[string]any{
		"error":     richErr.Message,
		"text_code": richErr.TextCode,
	})
}

func asRichError(err error) *errors.Error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}
	return richErr
}

func statusForError(richErr *errors.Error) int {
	switch richErr.Category {
	case errors.CategoryAuth:
		return http.StatusUnauthorized
	case errors.CategoryAuthz:
		return http.StatusForbidden
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryValidation, errors.CategoryBadInput:
		return http.StatusBadRequest
	case errors.CategoryConflict:
		return http.StatusConflict
	}
	if richErr.Code >= 400 && richErr.Code < 600 {
		return richErr.Code
	}
	return http.StatusInternalServerError
}
