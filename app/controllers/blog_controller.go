package controllers

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"crudapp/app/forms"
	"crudapp/app/middleware"
	"crudapp/app/models"
	"crudapp/app/services"
)

// BlogController handles HTTP requests for blog posts and comments
type BlogController struct {
	service *services.BlogService
	render  *Renderer
	base    string
}

// NewBlogController mounts the blog pages under base ("" for the site
// root, "/posts" otherwise).
func NewBlogController(service *services.BlogService, render *Renderer, base string) *BlogController {
	return &BlogController{service: service, render: render, base: base}
}

// RegisterRoutes adds the blog routes to router.
func (bc *BlogController) RegisterRoutes(router *mux.Router) {
	router.HandleFunc(bc.base+"/", bc.List).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc(bc.base+"/blog/{id:[0-9]+}/", bc.Detail).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc(bc.base+"/create/", bc.Create).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc(bc.base+"/update/{id:[0-9]+}/", bc.Update).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc(bc.base+"/delete/{id:[0-9]+}/", bc.Delete).Methods(http.MethodGet, http.MethodPost)
}

type blogFormData struct {
	Form forms.Form
	Post *models.BlogPost
}

type blogDetailData struct {
	Post *models.BlogPost
	Form forms.Form
}

func (bc *BlogController) detailURL(id int) string {
	return fmt.Sprintf("%s/blog/%d/", bc.base, id)
}

// List shows every post with its comment count
func (bc *BlogController) List(w http.ResponseWriter, r *http.Request) {
	posts, err := bc.service.List(r.Context())
	if err != nil {
		bc.render.ServerError(w, r, err)
		return
	}
	bc.render.Render(w, r, http.StatusOK, pageBlogList, Page{
		Title: "Blog",
		Base:  bc.base,
		Data:  struct{ Posts []services.PostSummary }{posts},
	})
}

// Detail shows a post with its comments and accepts new comments
func (bc *BlogController) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		bc.render.NotFound(w, r)
		return
	}
	post, err := bc.service.GetWithComments(r.Context(), id)
	if err != nil {
		bc.render.fail(w, r, err)
		return
	}

	if r.Method != http.MethodPost {
		bc.renderDetail(w, r, post, forms.Empty())
		return
	}

	if err := middleware.ParseForm(r); err != nil {
		middleware.FormError(w, err)
		return
	}
	defer middleware.RemoveTempFiles(r)
	res := forms.ParseComment(r.PostForm)
	if !res.Valid() {
		bc.renderDetail(w, r, post, res.Form)
		return
	}

	if _, err := bc.service.AddComment(r.Context(), post, res.Value); err != nil {
		bc.render.fail(w, r, err)
		return
	}
	redirect(w, r, bc.detailURL(post.ID))
}

// Create shows the empty form and stores valid submissions
func (bc *BlogController) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		bc.renderForm(w, r, "New post", blogFormData{Form: forms.Empty()})
		return
	}

	if err := middleware.ParseForm(r); err != nil {
		middleware.FormError(w, err)
		return
	}
	defer middleware.RemoveTempFiles(r)
	res := forms.ParseBlogPost(r.PostForm, uploadedFile(r, "image"))
	if !res.Valid() {
		bc.renderForm(w, r, "New post", blogFormData{Form: res.Form})
		return
	}

	if _, err := bc.service.Create(r.Context(), res.Value); err != nil {
		bc.render.ServerError(w, r, err)
		return
	}
	redirect(w, r, bc.base+"/")
}

// Update edits an existing post
func (bc *BlogController) Update(w http.ResponseWriter, r *http.Request) {
	post, ok := bc.load(w, r)
	if !ok {
		return
	}

	if r.Method != http.MethodPost {
		bc.renderForm(w, r, "Edit post", blogFormData{Form: forms.BlogPostForm(post), Post: post})
		return
	}

	if err := middleware.ParseForm(r); err != nil {
		middleware.FormError(w, err)
		return
	}
	defer middleware.RemoveTempFiles(r)
	res := forms.ParseBlogPost(r.PostForm, uploadedFile(r, "image"))
	if !res.Valid() {
		bc.renderForm(w, r, "Edit post", blogFormData{Form: res.Form, Post: post})
		return
	}

	if _, err := bc.service.Update(r.Context(), post.ID, res.Value); err != nil {
		bc.render.fail(w, r, err)
		return
	}
	redirect(w, r, bc.base+"/")
}

// Delete asks for confirmation on GET and deletes the post and its
// comments on POST
func (bc *BlogController) Delete(w http.ResponseWriter, r *http.Request) {
	post, ok := bc.load(w, r)
	if !ok {
		return
	}

	if r.Method != http.MethodPost {
		bc.render.Render(w, r, http.StatusOK, pageBlogDelete, Page{
			Title: "Delete post",
			Base:  bc.base,
			Data:  struct{ Post *models.BlogPost }{post},
		})
		return
	}

	if err := bc.service.Delete(r.Context(), post.ID); err != nil {
		bc.render.fail(w, r, err)
		return
	}
	redirect(w, r, bc.base+"/")
}

func (bc *BlogController) load(w http.ResponseWriter, r *http.Request) (*models.BlogPost, bool) {
	id, ok := pathID(r)
	if !ok {
		bc.render.NotFound(w, r)
		return nil, false
	}
	post, err := bc.service.Get(r.Context(), id)
	if err != nil {
		bc.render.fail(w, r, err)
		return nil, false
	}
	return post, true
}

func (bc *BlogController) renderForm(w http.ResponseWriter, r *http.Request, title string, data blogFormData) {
	bc.render.Render(w, r, http.StatusOK, pageBlogForm, Page{Title: title, Base: bc.base, Data: data})
}

func (bc *BlogController) renderDetail(w http.ResponseWriter, r *http.Request, post *models.BlogPost, form forms.Form) {
	bc.render.Render(w, r, http.StatusOK, pageBlogDetail, Page{
		Title: post.Title,
		Base:  bc.base,
		Data:  blogDetailData{Post: post, Form: form},
	})
}
