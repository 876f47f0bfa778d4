package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, merchantID, secret string) string {
	t.Helper()
	claims := &Claims{
		MerchantID: merchantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func merchantEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		merchantID, ok := GetMerchantID(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(merchantID))
	})
}

func TestRequireMerchant_ValidToken(t *testing.T) {
	handler := RequireMerchant(testSecret)(merchantEcho())

	req := httptest.NewRequest("GET", "/payments", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "merchant-1", testSecret))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "merchant-1", w.Body.String())
}

func TestRequireMerchant_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc123"},
		{"garbage token", "Bearer not-a-jwt"},
		{"wrong secret", "Bearer " + func() string {
			token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{MerchantID: "merchant-1"}).SignedString([]byte("other-secret"))
			return token
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireMerchant(testSecret)(merchantEcho())

			req := httptest.NewRequest("GET", "/payments", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRequireMerchant_TokenWithoutMerchantID(t *testing.T) {
	handler := RequireMerchant(testSecret)(merchantEcho())

	req := httptest.NewRequest("GET", "/payments", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "", testSecret))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code, "a token that names no merchant grants nothing")
}
