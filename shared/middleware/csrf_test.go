package middleware

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCSRFToken(t *testing.T) {
	var seen string
	handler := GenerateCSRFToken(CSRFConfig{SecureCookies: true})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetCSRFTokenFromContext(r)
		}),
	)

	t.Run("new token", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		cookies := rr.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, CSRFCookieName, cookies[0].Name)
		assert.True(t, cookies[0].Secure)
		assert.True(t, cookies[0].HttpOnly)
		assert.Equal(t, cookies[0].Value, seen)
		assert.Len(t, seen, 43)
	})

	t.Run("existing token is kept", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "kept"})
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Empty(t, rr.Result().Cookies())
		assert.Equal(t, "kept", seen)
	})
}

func TestValidateCSRFToken(t *testing.T) {
	const token = "test-token-123"
	handler := ValidateCSRFToken(CSRFConfig{MaxBodySize: 1 << 20})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	tests := []struct {
		name           string
		method         string
		cookie         *http.Cookie
		formToken      string
		expectedStatus int
	}{
		{"valid POST request", http.MethodPost, &http.Cookie{Name: CSRFCookieName, Value: token}, token, http.StatusOK},
		{"GET request (no validation)", http.MethodGet, nil, "", http.StatusOK},
		{"missing cookie", http.MethodPost, nil, token, http.StatusForbidden},
		{"missing form token", http.MethodPost, &http.Cookie{Name: CSRFCookieName, Value: token}, "", http.StatusForbidden},
		{"mismatched tokens", http.MethodPost, &http.Cookie{Name: CSRFCookieName, Value: token}, "different-token", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{}
			if tt.formToken != "" {
				form.Set(CSRFFormField, tt.formToken)
			}
			req := httptest.NewRequest(tt.method, "/", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}

	t.Run("multipart form is parsed once", func(t *testing.T) {
		var buf bytes.Buffer
		mpw := multipart.NewWriter(&buf)
		require.NoError(t, mpw.WriteField(CSRFFormField, token))
		require.NoError(t, mpw.WriteField("body", "kept"))
		require.NoError(t, mpw.Close())

		var body string
		inner := ValidateCSRFToken(CSRFConfig{MaxBodySize: 1 << 20})(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, r.ParseMultipartForm(1<<20))
				body = r.MultipartForm.Value["body"][0]
			}),
		)
		req := httptest.NewRequest(http.MethodPost, "/", &buf)
		req.Header.Set("Content-Type", mpw.FormDataContentType())
		req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: token})
		rr := httptest.NewRecorder()
		inner.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "kept", body)
	})

	t.Run("oversized body", func(t *testing.T) {
		limited := ValidateCSRFToken(CSRFConfig{MaxBodySize: 16})(http.NotFoundHandler())
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("csrf_token="+token+"&body="+strings.Repeat("x", 64)))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: token})
		rr := httptest.NewRecorder()
		limited.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	})
}
