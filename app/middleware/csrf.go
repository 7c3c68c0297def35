package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

const (
	CSRFCookieName = "csrftoken"
	CSRFFieldName  = "csrfmiddlewaretoken"
	CSRFHeaderName = "X-CSRFToken"

	nonceSize = 32
)

var errBadToken = errors.New("malformed csrf token")

type csrfContextKey struct{}

// CSRFToken returns the token to embed in forms rendered for r. It is
// empty when CSRF protection is off.
func CSRFToken(r *http.Request) string {
	token, _ := r.Context().Value(csrfContextKey{}).(string)
	return token
}

// CSRF guards unsafe methods with a signed double-submit cookie: the form
// field (or header) must equal the cookie, and the cookie must carry a
// valid MAC under key.
type CSRF struct {
	key []byte
	log *zap.Logger
}

// NewCSRF builds the middleware. An empty key is replaced by a random one,
// which invalidates outstanding tokens on restart.
func NewCSRF(key string, log *zap.Logger) (*CSRF, error) {
	k := []byte(key)
	if len(k) == 0 {
		k = make([]byte, blake2b.Size256)
		if _, err := rand.Read(k); err != nil {
			return nil, fmt.Errorf("failed to generate csrf key: %w", err)
		}
	}
	if len(k) > blake2b.Size {
		sum := blake2b.Sum256(k)
		k = sum[:]
	}
	return &CSRF{key: k, log: log.With(zap.String("component", "csrf"))}, nil
}

func (c *CSRF) sign(nonce []byte) []byte {
	mac, _ := blake2b.New256(c.key)
	mac.Write(nonce)
	return mac.Sum(nil)
}

func (c *CSRF) newToken() (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	enc := base64.RawURLEncoding
	return enc.EncodeToString(nonce) + "." + enc.EncodeToString(c.sign(nonce)), nil
}

func (c *CSRF) verify(token string) error {
	noncePart, macPart, ok := strings.Cut(token, ".")
	if !ok {
		return errBadToken
	}
	enc := base64.RawURLEncoding
	nonce, err := enc.DecodeString(noncePart)
	if err != nil || len(nonce) != nonceSize {
		return errBadToken
	}
	mac, err := enc.DecodeString(macPart)
	if err != nil {
		return errBadToken
	}
	if subtle.ConstantTimeCompare(mac, c.sign(nonce)) != 1 {
		return errors.New("csrf token signature mismatch")
	}
	return nil
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

// Handler wraps next.
func (c *CSRF) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if cookie, err := r.Cookie(CSRFCookieName); err == nil && c.verify(cookie.Value) == nil {
			token = cookie.Value
		}

		if !safeMethod(r.Method) {
			submitted := r.Header.Get(CSRFHeaderName)
			if submitted == "" {
				if err := ParseForm(r); err != nil {
					FormError(w, err)
					return
				}
				submitted = r.PostForm.Get(CSRFFieldName)
			}
			if token == "" || subtle.ConstantTimeCompare([]byte(submitted), []byte(token)) != 1 {
				c.log.Warn("rejected request with bad csrf token",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Bool("cookie", token != ""),
				)
				http.Error(w, "Forbidden (CSRF token missing or incorrect.)", http.StatusForbidden)
				return
			}
		}

		if token == "" {
			var err error
			token, err = c.newToken()
			if err != nil {
				c.log.Error("failed to create csrf token", zap.Error(err))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     CSRFCookieName,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				MaxAge:   365 * 24 * 60 * 60,
			})
		}

		ctx := context.WithValue(r.Context(), csrfContextKey{}, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
