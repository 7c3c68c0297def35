package controllers

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"crudapp/app/middleware"
	"crudapp/app/repositories"
	"crudapp/app/views"
)

// Page names, relative to the templates directory without extension.
const (
	pagePersonList   = "persons/list"
	pagePersonForm   = "persons/form"
	pagePersonDelete = "persons/confirm_delete"
	pageBlogList     = "blog/list"
	pageBlogDetail   = "blog/detail"
	pageBlogForm     = "blog/form"
	pageBlogDelete   = "blog/confirm_delete"
	pageError        = "errors/error"
)

var pages = []string{
	pagePersonList, pagePersonForm, pagePersonDelete,
	pageBlogList, pageBlogDetail, pageBlogForm, pageBlogDelete,
	pageError,
}

// Nav holds the list URLs of both resources for the page header.
type Nav struct {
	Blog    string
	Persons string
}

// Page is the data passed to the layout. Data carries the page specific
// values.
type Page struct {
	Title     string
	Base      string
	CSRFToken string
	Nav       Nav
	Data      any
}

// Renderer executes the embedded page templates inside the layout.
type Renderer struct {
	templates map[string]*template.Template
	nav       Nav
	log       *zap.Logger
}

// NewRenderer parses every page once. mediaURL prefixes stored image paths.
func NewRenderer(nav Nav, mediaURL string, log *zap.Logger) (*Renderer, error) {
	funcs := template.FuncMap{
		"mediaURL": func(path string) string {
			return strings.TrimSuffix(mediaURL, "/") + "/" + strings.TrimPrefix(path, "/")
		},
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, name := range pages {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(views.Files,
			views.Layout,
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		templates[name] = tmpl
	}

	return &Renderer{
		templates: templates,
		nav:       nav,
		log:       log.With(zap.String("component", "render")),
	}, nil
}

// Render writes page with the given status. The page is buffered so that a
// template failure still produces a clean 500.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, page Page) {
	tmpl, ok := rd.templates[name]
	if !ok {
		rd.ServerError(w, r, fmt.Errorf("unknown template %q", name))
		return
	}

	page.Nav = rd.nav
	page.CSRFToken = middleware.CSRFToken(r)

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		rd.ServerError(w, r, fmt.Errorf("template %s: %w", name, err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// NotFound renders the 404 page.
func (rd *Renderer) NotFound(w http.ResponseWriter, r *http.Request) {
	rd.errorPage(w, r, http.StatusNotFound, "Not Found", "The requested resource was not found on this server.")
}

// MethodNotAllowed renders the 405 page.
func (rd *Renderer) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	rd.errorPage(w, r, http.StatusMethodNotAllowed, "Method Not Allowed", "This page does not accept "+r.Method+" requests.")
}

// ServerError logs err and renders a generic 500 page.
func (rd *Renderer) ServerError(w http.ResponseWriter, r *http.Request, err error) {
	rd.log.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	http.Error(w, "Server Error (500)", http.StatusInternalServerError)
}

func (rd *Renderer) errorPage(w http.ResponseWriter, r *http.Request, status int, title, message string) {
	rd.Render(w, r, status, pageError, Page{
		Title: title,
		Data:  struct{ Message string }{message},
	})
}

// fail maps service errors onto 404 or 500.
func (rd *Renderer) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, repositories.ErrNotFound) {
		rd.NotFound(w, r)
		return
	}
	rd.ServerError(w, r, err)
}

// pathID reads the numeric {id} route variable.
func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// uploadedFile returns the named file part, or nil when none was sent.
func uploadedFile(r *http.Request, name string) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	files := r.MultipartForm.File[name]
	if len(files) == 0 || files[0].Filename == "" {
		return nil
	}
	return files[0]
}

func redirect(w http.ResponseWriter, r *http.Request, url string) {
	http.Redirect(w, r, url, http.StatusSeeOther)
}
