package middleware

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	handler := Logger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	rw := httptest.NewRecorder()
	handler.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/test", nil))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	fields := entry.ContextMap()
	assert.Equal(t, "request", entry.Message)
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/test", fields["path"])
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
	assert.EqualValues(t, len("short and stout"), fields["bytes"])
}

func TestLoggerWarnsOnServerErrors(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	handler := Logger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
}

func TestRecoverer(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	handler := Recoverer(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	}))

	rw := httptest.NewRecorder()
	handler.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusInternalServerError, rw.Code)
	assert.Equal(t, "Internal Server Error\n", rw.Body.String())
	require.Equal(t, 1, logs.FilterMessage("panic serving request").Len())
}

func TestBodyLimit(t *testing.T) {
	handler := BodyLimit(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := ParseForm(r); err != nil {
			FormError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	small := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("a=b"))
	small.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rw := httptest.NewRecorder()
	handler.ServeHTTP(rw, small)
	assert.Equal(t, http.StatusNoContent, rw.Code)

	large := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("a="+strings.Repeat("x", 64)))
	large.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rw = httptest.NewRecorder()
	handler.ServeHTTP(rw, large)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rw.Code)
}

func newCSRFHandler(t *testing.T) (http.Handler, *CSRF) {
	t.Helper()
	csrf, err := NewCSRF("test-key", zap.NewNop())
	require.NoError(t, err)
	return csrf.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, CSRFToken(r))
	})), csrf
}

// issueToken performs a GET and returns the cookie the middleware set.
func issueToken(t *testing.T, h http.Handler) *http.Cookie {
	t.Helper()
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rw.Code)
	cookies := rw.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CSRFCookieName, cookies[0].Name)
	assert.Equal(t, cookies[0].Value, rw.Body.String(), "token is exposed to templates")
	return cookies[0]
}

func postForm(values url.Values, cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func TestCSRF(t *testing.T) {
	h, _ := newCSRFHandler(t)
	cookie := issueToken(t, h)

	t.Run("valid form token", func(t *testing.T) {
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, postForm(url.Values{CSRFFieldName: {cookie.Value}}, cookie))
		assert.Equal(t, http.StatusOK, rw.Code)
		assert.Empty(t, rw.Result().Cookies(), "existing cookie is reused")
	})

	t.Run("valid header token", func(t *testing.T) {
		req := postForm(url.Values{}, cookie)
		req.Header.Set(CSRFHeaderName, cookie.Value)
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		assert.Equal(t, http.StatusOK, rw.Code)
	})

	t.Run("valid multipart token", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		require.NoError(t, mw.WriteField(CSRFFieldName, cookie.Value))
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, "/", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.AddCookie(cookie)

		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		assert.Equal(t, http.StatusOK, rw.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, postForm(url.Values{}, cookie))
		assert.Equal(t, http.StatusForbidden, rw.Code)
	})

	t.Run("missing cookie", func(t *testing.T) {
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, postForm(url.Values{CSRFFieldName: {cookie.Value}}, nil))
		assert.Equal(t, http.StatusForbidden, rw.Code)
	})

	t.Run("forged cookie", func(t *testing.T) {
		forged := "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA.AAAA"
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, postForm(url.Values{CSRFFieldName: {forged}}, &http.Cookie{Name: CSRFCookieName, Value: forged}))
		assert.Equal(t, http.StatusForbidden, rw.Code)
	})

	t.Run("token from another key", func(t *testing.T) {
		other, err := NewCSRF("other-key", zap.NewNop())
		require.NoError(t, err)
		token, err := other.newToken()
		require.NoError(t, err)

		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, postForm(url.Values{CSRFFieldName: {token}}, &http.Cookie{Name: CSRFCookieName, Value: token}))
		assert.Equal(t, http.StatusForbidden, rw.Code)
	})
}

func TestCSRFTokenVerify(t *testing.T) {
	_, csrf := newCSRFHandler(t)
	token, err := csrf.newToken()
	require.NoError(t, err)
	assert.NoError(t, csrf.verify(token))

	for _, bad := range []string{"", "no-dot", "!!!.???", token + "x"} {
		assert.Error(t, csrf.verify(bad), bad)
	}

	long, err := NewCSRF(strings.Repeat("k", 200), zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, long.key, 32)
}

func TestPreserveMethodRedirects(t *testing.T) {
	handler := PreserveMethodRedirects(http.RedirectHandler("/create/", http.StatusMovedPermanently))

	tests := []struct {
		method string
		want   int
	}{
		{http.MethodGet, http.StatusMovedPermanently},
		{http.MethodHead, http.StatusMovedPermanently},
		{http.MethodPost, http.StatusPermanentRedirect},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(tt.method, "/create", nil))
			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, "/create/", w.Header().Get("Location"))
		})
	}
}

func TestRemoveTempFiles(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "big.png")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{1}, 1024))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/create/", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	// a zero memory budget forces the file part onto disk
	require.NoError(t, r.ParseMultipartForm(0))
	f, err := r.MultipartForm.File["image"][0].Open()
	require.NoError(t, err)
	osFile, ok := f.(interface{ Name() string })
	require.True(t, ok, "expected an on-disk file")
	name := osFile.Name()
	f.Close()

	RemoveTempFiles(r)
	_, err = os.Stat(name)
	assert.True(t, os.IsNotExist(err))

	// no form is a no-op
	RemoveTempFiles(httptest.NewRequest(http.MethodGet, "/", nil))
}
