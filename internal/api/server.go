// ABOUTME: Echo server for the ledger API: middleware chain, routes and error rendering.
// ABOUTME: Every route except GET / requires a verified bearer token.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/harperreed/healthlink/internal/apperr"
	"github.com/harperreed/healthlink/internal/ledger"
	"github.com/harperreed/healthlink/internal/links"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// DefaultBodyLimit caps POST /sync bodies.
const DefaultBodyLimit = "10M"

// Deps are the services behind the handlers.
type Deps struct {
	Ledger   *ledger.Ledger
	Registry *links.Registry
	Consents *links.ConsentLog
	Profiles *links.Profiles
	Verifier *Verifier
	Metrics  *Metrics
	Logger   zerolog.Logger
}

// Options tune the middleware chain.
type Options struct {
	RateLimit RateLimitConfig
	BodyLimit string
}

// Server is the ledger HTTP API.
type Server struct {
	e    *echo.Echo
	deps Deps
}

// NewServer builds the echo instance with all routes registered.
func NewServer(deps Deps, opts Options) *Server {
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics()
	}
	if opts.BodyLimit == "" {
		opts.BodyLimit = DefaultBodyLimit
	}
	if opts.RateLimit.RequestsPerSecond <= 0 {
		opts.RateLimit.RequestsPerSecond = 10
	}
	if opts.RateLimit.Burst <= 0 {
		opts.RateLimit.Burst = 20
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(deps.Logger)

	e.Use(RequestID())
	e.Use(Logger(deps.Logger))
	e.Use(deps.Metrics.Middleware())
	e.Use(Recovery(deps.Logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	s := &Server{e: e, deps: deps}
	h := &handlers{deps: deps}

	// Auth runs before the limiter so limits key on the verified caller.
	authed := []echo.MiddlewareFunc{Auth(deps.Verifier), RateLimit(opts.RateLimit)}
	with := func(extra ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
		return append(append([]echo.MiddlewareFunc{}, authed...), extra...)
	}

	e.GET("/", h.root)
	e.PUT("/me", h.putProfile, authed...)
	e.POST("/register", h.putProfile, authed...)
	e.GET("/me", h.getMe, authed...)
	e.POST("/sync", h.sync, with(echomw.BodyLimit(opts.BodyLimit))...)
	e.POST("/consent", h.recordConsent, authed...)
	e.GET("/consent", h.listConsents, authed...)
	e.POST("/link-doctor", h.linkDoctor, authed...)
	e.DELETE("/link-doctor/:doctorId", h.revokeDoctor, authed...)
	e.GET("/patients", h.listPatients, authed...)
	e.GET("/patients/:patientId/overview", h.overview, authed...)

	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Start listens on addr until Shutdown. http.ErrServerClosed is not an error.
func (s *Server) Start(addr string) error {
	if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s: %w", addr, err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

type errorBody struct {
	Error string `json:"error"`
}

// errorHandler renders every error as {"error": msg}. Internal causes are
// logged and replaced with a generic message.
func errorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		msg := "Internal server error"

		var ae *apperr.Error
		var he *echo.HTTPError
		switch {
		case errors.As(err, &ae):
			status = ae.Kind.Status()
			msg = ae.Public()
			if ae.Kind == apperr.KindInternal {
				rid, _ := c.Get(requestIDKey).(string)
				logger.Error().Err(ae.Cause).Str("request_id", rid).Str("route", routeOf(c)).Msg(ae.Message)
			}
		case errors.As(err, &he):
			status = he.Code
			// A known path with an unrouted method is still an unmatched route.
			if status == http.StatusMethodNotAllowed {
				status = http.StatusNotFound
				he = echo.ErrNotFound
				c.Response().Header().Del(echo.HeaderAllow)
			}
			if status < http.StatusInternalServerError {
				msg = httpMessage(he)
			}
		default:
			rid, _ := c.Get(requestIDKey).(string)
			logger.Error().Err(err).Str("request_id", rid).Str("route", routeOf(c)).Msg("unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, errorBody{Error: msg})
		}
		if err != nil {
			logger.Error().Err(err).Msg("write error response")
		}
	}
}

func httpMessage(he *echo.HTTPError) string {
	switch he.Code {
	case http.StatusNotFound:
		return "Not found"
	case http.StatusRequestEntityTooLarge:
		return "Request body too large"
	}
	if s, ok := he.Message.(string); ok && s != "" {
		return s
	}
	return http.StatusText(he.Code)
}
