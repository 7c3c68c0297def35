package media

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const cacheDuration = 24 * time.Hour

// Handler serves stored files under urlPrefix, e.g. "/media/".
func Handler(store Store, urlPrefix string, log *zap.Logger) http.Handler {
	log = log.With(zap.String("component", "media.server"))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		relativePath := strings.TrimPrefix(r.URL.Path, urlPrefix)
		if relativePath == "" || strings.Contains(relativePath, "..") {
			http.NotFound(w, r)
			return
		}

		f, info, err := store.Open(relativePath)
		if err != nil {
			if errors.Is(err, ErrOutsideRoot) {
				log.Warn("attempted media access outside root", zap.String("path", r.URL.Path))
			}
			http.NotFound(w, r)
			return
		}
		defer f.Close()

		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(cacheDuration.Seconds())))
		if rs, ok := f.(io.ReadSeeker); ok {
			http.ServeContent(w, r, info.Name(), info.ModTime(), rs)
			return
		}
		if _, err := io.Copy(w, f); err != nil {
			log.Error("failed to stream media file", zap.String("path", relativePath), zap.Error(err))
		}
	})
}
