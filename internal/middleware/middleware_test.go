package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"letschat/server/internal/utils"
)

func newAuthApp(tokens *utils.TokenManager) *fiber.App {
	app := fiber.New()
	app.Get("/me", Auth(tokens), func(c *fiber.Ctx) error {
		return c.SendString(GetUserID(c))
	})
	return app
}

func TestAuth(t *testing.T) {
	tokens := utils.NewTokenManager("secret", "letschat", time.Hour)
	token, err := tokens.GenerateToken("user-1", "a@example.com")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	other, _ := utils.NewTokenManager("other", "letschat", time.Hour).GenerateToken("user-1", "a@example.com")

	tests := []struct {
		name   string
		header string
		cookie string
		status int
	}{
		{"bearer", "Bearer " + token, "", http.StatusOK},
		{"lowercase scheme", "bearer " + token, "", http.StatusOK},
		{"cookie", "", token, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, "", http.StatusUnauthorized},
		{"foreign signature", "Bearer " + other, "", http.StatusUnauthorized},
	}

	app := newAuthApp(tokens)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "token", Value: tt.cookie})
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.status == http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				if string(body) != "user-1" {
					t.Fatalf("unexpected body %q", body)
				}
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	app := fiber.New()
	app.Get("/", RateLimiter(2, time.Minute), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})

	for i, want := range []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
		if resp.StatusCode != want {
			t.Fatalf("request %d: status = %d, want %d", i, resp.StatusCode, want)
		}
	}
}

func TestLimiterKeys(t *testing.T) {
	tests := []struct {
		name    string
		limiter fiber.Handler
		second  int
	}{
		{"user keyed", RateLimiter(1, time.Minute), http.StatusNoContent},
		{"ip keyed", IPRateLimiter(1, time.Minute), http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				c.Locals("userID", c.Query("user"))
				return c.Next()
			}, tt.limiter, func(c *fiber.Ctx) error {
				return c.SendStatus(http.StatusNoContent)
			})

			for i, want := range []int{http.StatusNoContent, tt.second} {
				target := "/?user=" + []string{"user-1", "user-2"}[i]
				resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
				if err != nil {
					t.Fatalf("request %d failed: %v", i, err)
				}
				if resp.StatusCode != want {
					t.Fatalf("request %d: status = %d, want %d", i, resp.StatusCode, want)
				}
			}
		})
	}
}

func TestRequestContext(t *testing.T) {
	var buf bytes.Buffer
	app := fiber.New()
	app.Get("/ping", RequestContext(zerolog.New(&buf), time.Second), func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		if _, ok := ctx.Deadline(); !ok {
			return c.Status(http.StatusInternalServerError).SendString("no deadline")
		}
		zerolog.Ctx(ctx).Info().Msg("handled")
		return c.SendStatus(http.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if !strings.Contains(buf.String(), `"path":"/ping"`) {
		t.Fatalf("expected the request logger in context, got %q", buf.String())
	}
}
