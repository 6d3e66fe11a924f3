package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"mongo-fixtures/internal/fixtures/adapter/events"
	"mongo-fixtures/internal/fixtures/usecase"
	sharederrors "mongo-fixtures/internal/shared/errors"
	"mongo-fixtures/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.mongodb.org/mongo-driver/bson"
)

// Load modes accepted by POST /v1/fixtures
const (
	ModeLoad            = "load"
	ModeClearAndLoad    = "clear_and_load"
	ModeClearAllAndLoad = "clear_all_and_load"
)

// LoadRequest is the body of POST /v1/fixtures. Exactly one of Fixtures and Path is set.
// Fixtures is Extended JSON, so {"$oid": "..."} and {"$date": "..."} are understood.
type LoadRequest struct {
	Mode     string          `json:"mode"`
	Fixtures json.RawMessage `json:"fixtures,omitempty"`
	Path     string          `json:"path,omitempty"`
}

// LoadResponse reports what a load call inserted
type LoadResponse struct {
	Mode        string `json:"mode"`
	Collections int    `json:"collections"`
	Documents   int    `json:"documents"`
}

// EventReader lists recently stored loader events
type EventReader interface {
	Recent(ctx context.Context, count int64) ([]events.StoredEvent, error)
}

// HealthChecker reports whether the dependencies behind the handler are reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// FixturesHandler exposes a loader over HTTP for suites that seed a remote environment
type FixturesHandler struct {
	loader  usecase.LoaderInterface
	events  EventReader
	health  HealthChecker
	baseDir string
	logger  logger.Logger
}

// HandlerOption configures a FixturesHandler
type HandlerOption func(*FixturesHandler)

// WithFixtureDir allows path requests, confined to dir. Without it only inline fixtures are accepted.
func WithFixtureDir(dir string) HandlerOption {
	return func(h *FixturesHandler) {
		h.baseDir = dir
	}
}

// WithHealthCheck makes GET /health report checker failures as 503
func WithHealthCheck(checker HealthChecker) HandlerOption {
	return func(h *FixturesHandler) {
		h.health = checker
	}
}

// NewFixturesHandler creates the handler. reader may be nil.
func NewFixturesHandler(loader usecase.LoaderInterface, reader EventReader, log logger.Logger, opts ...HandlerOption) *FixturesHandler {
	h := &FixturesHandler{
		loader: loader,
		events: reader,
		logger: logger.OrNop(log).WithComponent("http"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewApp builds the fiber application serving h
func NewApp(h *FixturesHandler, mw *Middleware, readTimeout, writeTimeout time.Duration) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "mongo-fixtures",
		ReadTimeout:           readTimeout,
		WriteTimeout:          writeTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler(h.logger),
	})
	app.Use(recover.New())
	app.Use(mw.RequestID())
	app.Use(mw.Context())
	app.Use(mw.CORS())

	h.RegisterRoutes(app, mw)
	return app
}

// RegisterRoutes mounts the seeding routes on router
func (h *FixturesHandler) RegisterRoutes(router fiber.Router, mw *Middleware) {
	router.Get("/health", h.Health)

	v1 := router.Group("/v1", mw.Protect())
	if mw.rateLimit > 0 {
		v1.Use(mw.RateLimiter(mw.rateLimit))
	}
	v1.Post("/fixtures", h.LoadFixtures)
	v1.Delete("/collections", h.ClearCollections)
	v1.Get("/events", h.RecentEvents)
}

// Health reports the service status, including the event sink when one is configured
func (h *FixturesHandler) Health(c *fiber.Ctx) error {
	if h.health != nil {
		if err := h.health.HealthCheck(c.UserContext()); err != nil {
			h.logger.WithContext(c.UserContext()).Warnf("Health check failed: %v", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":    "UNHEALTHY",
				"service":   "mongo-fixtures",
				"error":     err.Error(),
				"timestamp": time.Now().UTC(),
			})
		}
	}
	return c.JSON(fiber.Map{
		"status":    "HEALTHY",
		"service":   "mongo-fixtures",
		"timestamp": time.Now().UTC(),
	})
}

// LoadFixtures handles POST /v1/fixtures
func (h *FixturesHandler) LoadFixtures(c *fiber.Ctx) error {
	var req LoadRequest
	if err := c.BodyParser(&req); err != nil {
		return sharederrors.NewValidationError("Invalid request body").WithCause(err)
	}
	if req.Mode == "" {
		req.Mode = ModeClearAndLoad
	}
	load, err := h.modeFunc(req.Mode)
	if err != nil {
		return err
	}

	input, err := h.requestInput(req)
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	set, err := h.loader.Resolve(ctx, input)
	if err != nil {
		return err
	}
	if err := load(ctx, set); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(LoadResponse{
		Mode:        req.Mode,
		Collections: len(set),
		Documents:   set.DocumentCount(),
	})
}

func (h *FixturesHandler) modeFunc(mode string) (func(context.Context, interface{}) error, error) {
	switch mode {
	case ModeLoad:
		return h.loader.Load, nil
	case ModeClearAndLoad:
		return h.loader.ClearAndLoad, nil
	case ModeClearAllAndLoad:
		return h.loader.ClearAllAndLoad, nil
	}
	return nil, sharederrors.NewValidationError(fmt.Sprintf("unknown mode %q", mode)).
		WithCode("INVALID_MODE").
		WithDetail("modes", []string{ModeLoad, ModeClearAndLoad, ModeClearAllAndLoad})
}

func (h *FixturesHandler) requestInput(req LoadRequest) (interface{}, error) {
	raw := bytes.TrimSpace(req.Fixtures)
	hasFixtures := len(raw) > 0 && !bytes.Equal(raw, []byte("null"))

	switch {
	case hasFixtures && req.Path != "":
		return nil, sharederrors.NewValidationError("set either fixtures or path, not both").WithCause(sharederrors.ErrInvalidInput)
	case req.Path != "":
		return h.confinePath(req.Path)
	case !hasFixtures:
		return nil, sharederrors.NewValidationError("fixtures or path is required").WithCause(sharederrors.ErrInvalidInput)
	}

	if raw[0] != '{' {
		return nil, fmt.Errorf("%w: fixtures must be an object", sharederrors.ErrInvalidFixtureShape)
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(raw, false, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", sharederrors.ErrInvalidFixtureShape, err)
	}
	return doc, nil
}

// confinePath resolves a requested path inside the fixture directory. Absolute paths and
// paths leaving the directory, directly or through a symlink, are refused.
func (h *FixturesHandler) confinePath(path string) (string, error) {
	if h.baseDir == "" {
		return "", sharederrors.NewValidationError("path loading is disabled, send inline fixtures").
			WithCode("PATH_NOT_ALLOWED").WithCause(sharederrors.ErrInvalidInput)
	}
	if filepath.IsAbs(path) || filepath.VolumeName(path) != "" {
		return "", pathOutsideBase(path)
	}

	base, err := filepath.Abs(h.baseDir)
	if err != nil {
		return "", sharederrors.NewInternalError("failed to resolve fixture directory").WithCause(err)
	}
	target := filepath.Join(base, path)
	if !within(base, target) {
		return "", pathOutsideBase(path)
	}

	if resolved, err := filepath.EvalSymlinks(target); err == nil {
		resolvedBase, err := filepath.EvalSymlinks(base)
		if err != nil || !within(resolvedBase, resolved) {
			return "", pathOutsideBase(path)
		}
	}
	return target, nil
}

func within(base, target string) bool {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func pathOutsideBase(path string) *sharederrors.AppError {
	return sharederrors.NewValidationError("path must be relative to the fixture directory").
		WithCode("PATH_NOT_ALLOWED").
		WithDetail("path", path).
		WithCause(sharederrors.ErrInvalidInput)
}

// ClearCollections handles DELETE /v1/collections?name=a&name=b. Without names every
// non-system collection is cleared.
func (h *FixturesHandler) ClearCollections(c *fiber.Ctx) error {
	var names []string
	for _, raw := range c.Context().QueryArgs().PeekMulti("name") {
		for _, name := range strings.Split(string(raw), ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}

	if err := h.loader.Clear(c.UserContext(), names...); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"cleared": names, "all": len(names) == 0})
}

// RecentEvents handles GET /v1/events?count=N
func (h *FixturesHandler) RecentEvents(c *fiber.Ctx) error {
	if h.events == nil {
		return sharederrors.NewNotFoundError("event sink").WithCode("EVENTS_DISABLED")
	}
	count := c.QueryInt("count", 20)
	if count <= 0 || count > 1000 {
		return sharederrors.NewValidationError("count must be between 1 and 1000")
	}
	stored, err := h.events.Recent(c.UserContext(), int64(count))
	if err != nil {
		return sharederrors.NewInfrastructureError("failed to read events").WithCause(err)
	}
	return c.JSON(fiber.Map{"events": stored})
}

// ErrorHandler renders handler and middleware errors as {error, detail, code, details} JSON
func ErrorHandler(log logger.Logger) fiber.ErrorHandler {
	log = logger.OrNop(log)
	return func(c *fiber.Ctx, err error) error {
		if fe, ok := err.(*fiber.Error); ok {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		appErr := sharederrors.Classify(err)
		status := sharederrors.HTTPStatus(err)
		entry := log.WithContext(c.UserContext()).WithFields(map[string]interface{}{
			"path":   c.Path(),
			"status": status,
		})
		switch {
		case sharederrors.IsValidation(err), sharederrors.IsNotFound(err):
			entry.Warnf("Request rejected: %v", err)
		case status < fiber.StatusInternalServerError:
			entry.Infof("Request refused: %v", err)
		default:
			entry.Errorf("Request failed: %v", err)
		}

		body := fiber.Map{
			"error":  appErr.Message,
			"detail": err.Error(),
		}
		if appErr.Code != "" {
			body["code"] = appErr.Code
		}
		if len(appErr.Details) > 0 {
			body["details"] = appErr.Details
		}
		return c.Status(status).JSON(body)
	}
}
