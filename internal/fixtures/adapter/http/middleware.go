package http

import (
	"fmt"
	"strings"
	"time"

	sharederrors "mongo-fixtures/internal/shared/errors"
	"mongo-fixtures/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// requestIDLocal is the fiber.Locals key of the request id
const requestIDLocal = "requestid"

// Middleware holds the seeding API middleware
type Middleware struct {
	tokens      *TokenService
	rateLimit   int
	corsOrigins string
}

// NewMiddleware creates the middleware. A nil token service disables authentication.
func NewMiddleware(tokens *TokenService) *Middleware {
	return &Middleware{tokens: tokens}
}

// WithRateLimit limits the seeding routes to max requests per client and minute. 0 disables the limit.
func (m *Middleware) WithRateLimit(max int) *Middleware {
	m.rateLimit = max
	return m
}

// WithCORSOrigins sets the comma separated origins allowed to call the API from a browser
func (m *Middleware) WithCORSOrigins(origins string) *Middleware {
	m.corsOrigins = strings.TrimSpace(origins)
	return m
}

// RequestID tags every request with an X-Request-ID
func (m *Middleware) RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     fiber.HeaderXRequestID,
		ContextKey: requestIDLocal,
	})
}

// Context moves the request id into the user context for loggers and events
func (m *Middleware) Context() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, ok := c.Locals(requestIDLocal).(string); ok && id != "" {
			c.SetUserContext(utils.WithRequestID(c.UserContext(), id))
		}
		return c.Next()
	}
}

// CORS allows tooling on other origins to seed. Without configured origins any origin is
// allowed only when bearer tokens are required; an unauthenticated API sends no CORS headers.
func (m *Middleware) CORS() fiber.Handler {
	origins := m.corsOrigins
	if origins == "" {
		if m.tokens == nil {
			return func(c *fiber.Ctx) error {
				return c.Next()
			}
		}
		origins = "*"
	}
	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	})
}

// RateLimiter limits seeding calls per client
func (m *Middleware) RateLimiter(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded. Please try again later.",
			})
		},
	})
}

// Protect requires a valid bearer token when authentication is enabled. Failures are
// returned as authentication errors for the app's ErrorHandler.
func (m *Middleware) Protect() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m.tokens == nil {
			return c.Next()
		}

		token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return sharederrors.NewAuthenticationError("Authentication required").
				WithCode("TOKEN_MISSING").WithCause(sharederrors.ErrUnauthorized)
		}
		claims, err := m.tokens.ValidateToken(token)
		if err != nil {
			return sharederrors.NewAuthenticationError("Invalid token").
				WithCode("TOKEN_INVALID").WithCause(fmt.Errorf("%w: %w", sharederrors.ErrUnauthorized, err))
		}

		c.SetUserContext(utils.WithSubject(c.UserContext(), claims.Subject))
		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
