package middleware

import (
	"errors"
	"mime"
	"net/http"
)

// MultipartMemory is how much of a multipart body is held in memory before
// file parts spill to disk.
const MultipartMemory = 8 << 20

// ParseForm parses url-encoded and multipart bodies. It is safe to call
// more than once.
func ParseForm(r *http.Request) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(MultipartMemory); err != nil {
			return err
		}
		return nil
	}
	return r.ParseForm()
}

// FormError answers a body that could not be parsed.
func FormError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	http.Error(w, "Bad Request", http.StatusBadRequest)
}

// RemoveTempFiles deletes the files a multipart parse spilled to disk.
// The server only cleans up the form of the request it created, so
// handlers that parse a derived request must call this themselves.
func RemoveTempFiles(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}
