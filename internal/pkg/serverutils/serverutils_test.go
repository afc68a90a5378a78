package serverutils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

func TestParseToken(t *testing.T) {
	orgId := uuid.New()

	identity, err := ParseToken(testSecret, signed(t, jwt.MapClaims{"user_id": "u-1", "org_id": orgId.String()}))
	require.NoError(t, err)
	assert.Equal(t, "u-1", identity.UserId)
	assert.Equal(t, orgId, identity.OrgId)

	_, err = ParseToken(testSecret, signed(t, jwt.MapClaims{"user_id": "u-1"}))
	assert.ErrorIs(t, err, ErrMissingOrg)

	_, err = ParseToken("other-secret", signed(t, jwt.MapClaims{"user_id": "u-1", "org_id": orgId.String()}))
	assert.Error(t, err)
}

var errConflict = errors.New("conflict")

type createRequest struct {
	Name  string  `json:"name" validate:"required"`
	Ratio float64 `json:"ratio" validate:"gte=0,lte=1"`
}

func newTestApp() *fiber.App {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware(func(err error) int {
		if errors.Is(err, errConflict) {
			return fiber.StatusConflict
		}
		return 0
	}))

	api := app.Group("/api", NewJwtMiddleware(testSecret))
	api.Post("/things", func(ctx *fiber.Ctx) error {
		var req createRequest
		if err := ctx.BodyParser(&req); err != nil {
			return err
		}
		if err := ValidateRequest(req); err != nil {
			return err
		}
		orgId, err := OrgID(ctx)
		if err != nil {
			return err
		}
		return ctx.JSON(SuccessResponse("created", orgId.String()))
	})
	api.Get("/conflict", func(ctx *fiber.Ctx) error { return errConflict })
	api.Get("/boom", func(ctx *fiber.Ctx) error { return errors.New("db password leaked") })
	return app
}

func decode(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestMiddlewareChain(t *testing.T) {
	app := newTestApp()
	orgId := uuid.New()
	bearer := "Bearer " + signed(t, jwt.MapClaims{"user_id": "u-1", "org_id": orgId.String()})

	t.Run("missing token", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/conflict", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("success carries org", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/things", strings.NewReader(`{"name":"a","ratio":0.5}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", bearer)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, orgId.String(), decode(t, resp.Body)["data"])
	})

	t.Run("validation failure", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/things", strings.NewReader(`{"ratio":1.5}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", bearer)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		body := decode(t, resp.Body)
		fields, ok := body["data"].([]any)
		require.True(t, ok)
		assert.Len(t, fields, 2)
	})

	t.Run("mapped domain error", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/conflict", nil)
		req.Header.Set("Authorization", bearer)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	})

	t.Run("unknown error is hidden", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/boom", nil)
		req.Header.Set("Authorization", bearer)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "Internal server error", decode(t, resp.Body)["message"])
	})
}
