package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"busseat/internal/shared/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg *Config) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRateLimiter(client, cfg), mr
}

func TestIsAllowedSlidingWindow(t *testing.T) {
	limiter, _ := newTestLimiter(t, &Config{
		Enabled:         true,
		WindowDuration:  time.Minute,
		BookingRequests: 3,
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := limiter.IsAllowed(ctx, "10.0.0.1", RateLimitTypeBooking)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if !res.Allowed || res.Remaining != 2-i {
			t.Fatalf("request %d = %+v", i, res)
		}
	}

	res, err := limiter.IsAllowed(ctx, "10.0.0.1", RateLimitTypeBooking)
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Fatalf("fourth request allowed: %+v", res)
	}

	// other clients have their own window
	if res, _ := limiter.IsAllowed(ctx, "10.0.0.2", RateLimitTypeBooking); !res.Allowed {
		t.Fatal("second client was limited")
	}
}

func TestIsAllowedWindowSlides(t *testing.T) {
	limiter, _ := newTestLimiter(t, &Config{Enabled: true, WindowDuration: time.Minute, AuthRequests: 1})
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return base }
	ctx := context.Background()

	if res, _ := limiter.IsAllowed(ctx, "ip", RateLimitTypeAuth); !res.Allowed {
		t.Fatal("first request limited")
	}
	if res, _ := limiter.IsAllowed(ctx, "ip", RateLimitTypeAuth); res.Allowed {
		t.Fatal("second request allowed inside window")
	}

	limiter.now = func() time.Time { return base.Add(61 * time.Second) }
	if res, _ := limiter.IsAllowed(ctx, "ip", RateLimitTypeAuth); !res.Allowed {
		t.Fatal("request after window limited")
	}
}

func TestDisabledLimiterWritesNothing(t *testing.T) {
	limiter, mr := newTestLimiter(t, &Config{Enabled: false, WindowDuration: time.Minute, PublicRequests: 1})
	for i := 0; i < 5; i++ {
		if res, _ := limiter.IsAllowed(context.Background(), "ip:10.0.0.1", RateLimitTypePublic); !res.Allowed {
			t.Fatal("disabled limiter blocked a request")
		}
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("disabled limiter wrote keys: %v", mr.Keys())
	}
}

func serve(engine *gin.Engine, method, path, ip string) int {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-Forwarded-For", ip)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w.Code
}

func TestMiddlewareSkipsWhitelistedIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter, mr := newTestLimiter(t, &Config{
		Enabled:        true,
		WindowDuration: time.Minute,
		PublicRequests: 1,
		WhitelistedIPs: []string{"127.0.0.9"},
	})

	engine := gin.New()
	engine.Use(Middleware(limiter))
	engine.GET("/api/v1/seats/:runId", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		if code := serve(engine, http.MethodGet, "/api/v1/seats/x", "127.0.0.9"); code != http.StatusOK {
			t.Fatalf("whitelisted request %d = %d", i, code)
		}
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("whitelisted ip was counted: %v", mr.Keys())
	}
}

// riderTokens accepts any token as the id of the rider presenting it
type riderTokens struct{}

func (riderTokens) ValidateIdentity(token string) (*middleware.Identity, error) {
	return &middleware.Identity{UserID: token, Username: token, Role: "RIDER"}, nil
}

func TestPerRiderSeparatesRidersBehindOneAddress(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter, _ := newTestLimiter(t, &Config{
		Enabled:              true,
		WindowDuration:       time.Minute,
		BookingRequests:      100,
		RiderBookingRequests: 1,
	})

	engine := gin.New()
	engine.Use(Middleware(limiter))
	engine.POST("/api/v1/bookings", middleware.BearerAuth(riderTokens{}), PerRider(limiter),
		func(c *gin.Context) { c.Status(http.StatusCreated) })

	book := func(rider string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", nil)
		req.Header.Set("X-Forwarded-For", "198.51.100.4")
		req.Header.Set("Authorization", "Bearer "+rider)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		if w.Code == http.StatusTooManyRequests && w.Header().Get("Retry-After") != "60" {
			t.Fatalf("Retry-After = %q", w.Header().Get("Retry-After"))
		}
		return w.Code
	}

	if code := book("rider-a"); code != http.StatusCreated {
		t.Fatalf("first claim = %d", code)
	}
	if code := book("rider-a"); code != http.StatusTooManyRequests {
		t.Fatalf("second claim by same rider = %d", code)
	}
	if code := book("rider-b"); code != http.StatusCreated {
		t.Fatalf("other rider on same address = %d", code)
	}
}

func TestMiddlewareReturns429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter, _ := newTestLimiter(t, &Config{Enabled: true, WindowDuration: time.Minute, BookingRequests: 1})

	engine := gin.New()
	engine.Use(Middleware(limiter))
	engine.POST("/api/v1/bookings", func(c *gin.Context) { c.Status(http.StatusCreated) })

	codes := make([]int, 2)
	for i := range codes {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", nil)
		req.Header.Set("X-Forwarded-For", "192.0.2.7")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		codes[i] = w.Code
	}

	if codes[0] != http.StatusCreated || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}

func TestGetRateLimitType(t *testing.T) {
	cases := map[string]RateLimitType{
		"/health":                RateLimitTypeHealth,
		"/api/v1/auth/login":     RateLimitTypeAuth,
		"/api/v1/bookings":       RateLimitTypeBooking,
		"/api/v1/seats/:runId":   RateLimitTypePublic,
		"/api/v1/schedules":      RateLimitTypePublic,
		"/api/v1/operator/buses": RateLimitTypeDefault,
	}
	for path, want := range cases {
		if got := getRateLimitType(path); got != want {
			t.Errorf("getRateLimitType(%q) = %s, want %s", path, got, want)
		}
	}
}
