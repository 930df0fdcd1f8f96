package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/invoice_audit/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/x", func(c *gin.Context) {
		caller := ""
		if claim := CtxValue(c.Request.Context()); claim != nil {
			caller = claim.Caller
		}
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"caller": caller, "cid": cid})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	secret := "s3cret"
	good, err := utils.JwtGenerate(secret, "scheduler", time.Hour)
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}
	expired, _ := utils.JwtGenerate(secret, "scheduler", -time.Hour)
	foreign, _ := utils.JwtGenerate("other", "scheduler", time.Hour)

	cases := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{"valid", secret, "Bearer " + good, http.StatusOK},
		{"missing", secret, "", http.StatusUnauthorized},
		{"not bearer", secret, good, http.StatusUnauthorized},
		{"expired", secret, "Bearer " + expired, http.StatusUnauthorized},
		{"wrong key", secret, "Bearer " + foreign, http.StatusUnauthorized},
		{"unconfigured", "", "Bearer " + good, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		r := newRouter(AuthMiddleware(tc.secret))
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Fatalf("%s: status = %d, want %d", tc.name, w.Code, tc.want)
		}
	}
}

func TestPushTokenMiddleware(t *testing.T) {
	hash, err := utils.HashToken("push-token")
	if err != nil {
		t.Fatalf("HashToken: %v", err)
	}

	cases := []struct {
		name string
		hash string
		url  string
		want int
	}{
		{"open when unset", "", "/x", http.StatusOK},
		{"valid token", string(hash), "/x?token=push-token", http.StatusOK},
		{"wrong token", string(hash), "/x?token=nope", http.StatusUnauthorized},
		{"missing token", string(hash), "/x", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		r := newRouter(PushTokenMiddleware(tc.hash))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.url, nil))
		if w.Code != tc.want {
			t.Fatalf("%s: status = %d, want %d", tc.name, w.Code, tc.want)
		}
	}
}

func TestCorrelationMiddleware(t *testing.T) {
	r := newRouter(CorrelationMiddleware())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(CorrelationHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(CorrelationHeader); got != "abc-123" {
		t.Fatalf("echoed id = %q", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if got := w.Header().Get(CorrelationHeader); len(got) != 36 {
		t.Fatalf("generated id = %q", got)
	}
}
