package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"crudapp/app/forms"
	"crudapp/app/middleware"
	"crudapp/app/models"
	"crudapp/app/services"
)

// PersonController handles HTTP requests for persons
type PersonController struct {
	service *services.PersonService
	render  *Renderer
	base    string
}

// NewPersonController mounts the person pages under base ("" for the site
// root, "/persons" otherwise).
func NewPersonController(service *services.PersonService, render *Renderer, base string) *PersonController {
	return &PersonController{service: service, render: render, base: base}
}

// RegisterRoutes adds the person routes to router.
func (pc *PersonController) RegisterRoutes(router *mux.Router) {
	router.HandleFunc(pc.base+"/", pc.List).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc(pc.base+"/create/", pc.Create).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc(pc.base+"/update/{id:[0-9]+}/", pc.Update).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc(pc.base+"/delete/{id:[0-9]+}/", pc.Delete).Methods(http.MethodGet, http.MethodPost)
}

type personFormData struct {
	Form   forms.Form
	Person *models.Person
}

// List shows every person
func (pc *PersonController) List(w http.ResponseWriter, r *http.Request) {
	persons, err := pc.service.List(r.Context())
	if err != nil {
		pc.render.ServerError(w, r, err)
		return
	}
	pc.render.Render(w, r, http.StatusOK, pagePersonList, Page{
		Title: "Persons",
		Base:  pc.base,
		Data:  struct{ Persons []*models.Person }{persons},
	})
}

// Create shows the empty form and stores valid submissions
func (pc *PersonController) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		pc.renderForm(w, r, "Add person", personFormData{Form: forms.Empty()})
		return
	}

	if err := middleware.ParseForm(r); err != nil {
		middleware.FormError(w, err)
		return
	}
	defer middleware.RemoveTempFiles(r)
	res := forms.ParsePerson(r.PostForm)
	if !res.Valid() {
		pc.renderForm(w, r, "Add person", personFormData{Form: res.Form})
		return
	}

	if _, err := pc.service.Create(r.Context(), res.Value); err != nil {
		pc.render.ServerError(w, r, err)
		return
	}
	redirect(w, r, pc.base+"/")
}

// Update edits an existing person
func (pc *PersonController) Update(w http.ResponseWriter, r *http.Request) {
	person, ok := pc.load(w, r)
	if !ok {
		return
	}

	if r.Method != http.MethodPost {
		pc.renderForm(w, r, "Edit person", personFormData{Form: forms.PersonForm(person), Person: person})
		return
	}

	if err := middleware.ParseForm(r); err != nil {
		middleware.FormError(w, err)
		return
	}
	defer middleware.RemoveTempFiles(r)
	res := forms.ParsePerson(r.PostForm)
	if !res.Valid() {
		pc.renderForm(w, r, "Edit person", personFormData{Form: res.Form, Person: person})
		return
	}

	if _, err := pc.service.Update(r.Context(), person.ID, res.Value); err != nil {
		pc.render.fail(w, r, err)
		return
	}
	redirect(w, r, pc.base+"/")
}

// Delete asks for confirmation on GET and deletes on POST
func (pc *PersonController) Delete(w http.ResponseWriter, r *http.Request) {
	person, ok := pc.load(w, r)
	if !ok {
		return
	}

	if r.Method != http.MethodPost {
		pc.render.Render(w, r, http.StatusOK, pagePersonDelete, Page{
			Title: "Delete person",
			Base:  pc.base,
			Data:  struct{ Person *models.Person }{person},
		})
		return
	}

	if err := pc.service.Delete(r.Context(), person.ID); err != nil {
		pc.render.fail(w, r, err)
		return
	}
	redirect(w, r, pc.base+"/")
}

// load fetches the person named by the route, answering 404 itself.
func (pc *PersonController) load(w http.ResponseWriter, r *http.Request) (*models.Person, bool) {
	id, ok := pathID(r)
	if !ok {
		pc.render.NotFound(w, r)
		return nil, false
	}
	person, err := pc.service.Get(r.Context(), id)
	if err != nil {
		pc.render.fail(w, r, err)
		return nil, false
	}
	return person, true
}

func (pc *PersonController) renderForm(w http.ResponseWriter, r *http.Request, title string, data personFormData) {
	pc.render.Render(w, r, http.StatusOK, pagePersonForm, Page{Title: title, Base: pc.base, Data: data})
}
