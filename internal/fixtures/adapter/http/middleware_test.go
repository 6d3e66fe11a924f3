package http_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	fixtureshttp "mongo-fixtures/internal/fixtures/adapter/http"
	"mongo-fixtures/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type MiddlewareTestSuite struct {
	suite.Suite
	app        *fiber.App
	tokens     *fixtureshttp.TokenService
	middleware *fixtureshttp.Middleware
}

func (suite *MiddlewareTestSuite) SetupTest() {
	tokens, err := fixtureshttp.NewTokenService("test-secret", "mongo-fixtures")
	suite.Require().NoError(err)
	suite.tokens = tokens
	suite.middleware = fixtureshttp.NewMiddleware(tokens)
	suite.app = fiber.New(fiber.Config{ErrorHandler: fixtureshttp.ErrorHandler(nil)})
}

func (suite *MiddlewareTestSuite) protectedRoute() {
	suite.app.Use(suite.middleware.Protect())
	suite.app.Get("/protected", func(c *fiber.Ctx) error {
		subject, _ := utils.GetSubjectFromContext(c.UserContext())
		return c.SendString(subject)
	})
}

func (suite *MiddlewareTestSuite) TestProtect_Success() {
	// Arrange
	suite.protectedRoute()
	token, err := suite.tokens.GenerateToken("ci-runner", time.Minute)
	require.NoError(suite.T(), err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))

	// Act
	resp, err := suite.app.Test(req)

	// Assert
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(suite.T(), "ci-runner", string(body))
}

func (suite *MiddlewareTestSuite) TestProtect_NoToken() {
	suite.protectedRoute()

	resp, err := suite.app.Test(httptest.NewRequest("GET", "/protected", nil))

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusUnauthorized, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(suite.T(), json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(suite.T(), "Authentication required", body["error"])
	assert.Equal(suite.T(), "TOKEN_MISSING", body["code"])
}

func (suite *MiddlewareTestSuite) TestProtect_InvalidToken() {
	suite.protectedRoute()
	other, err := fixtureshttp.NewTokenService("other-secret", "mongo-fixtures")
	require.NoError(suite.T(), err)
	token, err := other.GenerateToken("ci-runner", time.Minute)
	require.NoError(suite.T(), err)

	for _, header := range []string{"Bearer " + token, "Basic abc", "Bearer "} {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", header)

		resp, err := suite.app.Test(req)

		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), http.StatusUnauthorized, resp.StatusCode, header)
		var body map[string]interface{}
		require.NoError(suite.T(), json.NewDecoder(resp.Body).Decode(&body))
		assert.Contains(suite.T(), []interface{}{"TOKEN_MISSING", "TOKEN_INVALID"}, body["code"], header)
	}
}

func (suite *MiddlewareTestSuite) TestProtect_Disabled() {
	suite.app.Use(fixtureshttp.NewMiddleware(nil).Protect())
	suite.app.Get("/open", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })

	resp, err := suite.app.Test(httptest.NewRequest("GET", "/open", nil))

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusNoContent, resp.StatusCode)
}

func (suite *MiddlewareTestSuite) TestRequestIDReachesUserContext() {
	suite.app.Use(suite.middleware.RequestID(), suite.middleware.Context())
	suite.app.Get("/id", func(c *fiber.Ctx) error {
		id, _ := utils.GetRequestIDFromContext(c.UserContext())
		return c.SendString(id)
	})

	req := httptest.NewRequest("GET", "/id", nil)
	req.Header.Set(fiber.HeaderXRequestID, "req-42")
	resp, err := suite.app.Test(req)

	require.NoError(suite.T(), err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(suite.T(), "req-42", string(body))
	assert.Equal(suite.T(), "req-42", resp.Header.Get(fiber.HeaderXRequestID))
}

func (suite *MiddlewareTestSuite) TestRateLimiter() {
	suite.app.Use(suite.middleware.RateLimiter(2))
	suite.app.Get("/limited", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := suite.app.Test(httptest.NewRequest("GET", "/limited", nil))
		require.NoError(suite.T(), err)
		statuses = append(statuses, resp.StatusCode)
	}
	assert.Equal(suite.T(), []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
}

func (suite *MiddlewareTestSuite) TestRateLimiter_IgnoresForwardedFor() {
	suite.app.Use(suite.middleware.RateLimiter(2))
	suite.app.Get("/limited", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/limited", nil)
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		resp, err := suite.app.Test(req)
		require.NoError(suite.T(), err)
		statuses = append(statuses, resp.StatusCode)
	}
	assert.Equal(suite.T(), []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
}

func (suite *MiddlewareTestSuite) corsOrigin(mw *fixtureshttp.Middleware) string {
	app := fiber.New()
	app.Use(mw.CORS())
	app.Get("/cors", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	req := httptest.NewRequest("GET", "/cors", nil)
	req.Header.Set(fiber.HeaderOrigin, "https://evil.example.com")
	resp, err := app.Test(req)
	require.NoError(suite.T(), err)
	return resp.Header.Get(fiber.HeaderAccessControlAllowOrigin)
}

func (suite *MiddlewareTestSuite) TestCORS() {
	assert.Empty(suite.T(), suite.corsOrigin(fixtureshttp.NewMiddleware(nil)))
	assert.Equal(suite.T(), "*", suite.corsOrigin(suite.middleware))
	assert.Empty(suite.T(), suite.corsOrigin(fixtureshttp.NewMiddleware(nil).WithCORSOrigins("https://ci.example.com")))
}

func TestMiddlewareTestSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareTestSuite))
}

func TestNewApp_ProtectsV1Routes(t *testing.T) {
	tokens, err := fixtureshttp.NewTokenService("test-secret", "mongo-fixtures")
	require.NoError(t, err)
	handler := fixtureshttp.NewFixturesHandler(&mockLoader{}, nil, nil)
	app := fixtureshttp.NewApp(handler, fixtureshttp.NewMiddleware(tokens), time.Second, time.Second)

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/v1/collections", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewApp_RateLimitsV1Routes(t *testing.T) {
	loader := &mockLoader{}
	loader.On("Clear", mock.Anything, []string(nil)).Return(nil)
	handler := fixtureshttp.NewFixturesHandler(loader, nil, nil)
	app := fixtureshttp.NewApp(handler, fixtureshttp.NewMiddleware(nil).WithRateLimit(1), time.Second, time.Second)

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/v1/collections", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/v1/collections", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
