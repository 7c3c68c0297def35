// Package routes builds the HTTP handler: route table, controllers and
// middleware chain.
package routes

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"crudapp/app/controllers"
	"crudapp/app/media"
	"crudapp/app/middleware"
	"crudapp/app/repositories"
	"crudapp/app/services"
	"crudapp/config"
)

// formOverhead is allowed on top of the upload limit for the text fields
// of a multipart form.
const formOverhead = 1 << 20

// Deps are the collaborators Setup wires together.
type Deps struct {
	Config config.Config
	Store  *repositories.Store
	Media  media.Store
	Log    *zap.Logger
}

// Mounts returns the URL prefixes of the blog and person pages for the
// configured home resource. The home resource gets "".
func Mounts(home string) (blog, persons string) {
	if home == config.HomePersons {
		return "/posts", ""
	}
	return "", "/persons"
}

// Setup builds the complete application handler.
func Setup(d Deps) (http.Handler, error) {
	blogBase, personsBase := Mounts(d.Config.Home)

	render, err := controllers.NewRenderer(
		controllers.Nav{Blog: blogBase + "/", Persons: personsBase + "/"},
		d.Config.Media.URL,
		d.Log,
	)
	if err != nil {
		return nil, err
	}

	personService := services.NewPersonService(d.Store.Persons, d.Log)
	blogService := services.NewBlogService(d.Store.Posts, d.Store.Comments, d.Media, d.Log)

	router := mux.NewRouter().StrictSlash(true)
	router.PathPrefix(d.Config.Media.URL).
		Handler(media.Handler(d.Media, d.Config.Media.URL, d.Log)).
		Methods(http.MethodGet, http.MethodHead)
	controllers.NewBlogController(blogService, render, blogBase).RegisterRoutes(router)
	controllers.NewPersonController(personService, render, personsBase).RegisterRoutes(router)
	router.NotFoundHandler = http.HandlerFunc(render.NotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(render.MethodNotAllowed)

	var handler http.Handler = middleware.PreserveMethodRedirects(router)
	if d.Config.CSRF.Enabled {
		csrf, err := middleware.NewCSRF(d.Config.CSRF.Key, d.Log)
		if err != nil {
			return nil, fmt.Errorf("failed to set up csrf: %w", err)
		}
		handler = csrf.Handler(handler)
	}
	handler = middleware.BodyLimit(d.Config.Media.MaxUploadBytes + formOverhead)(handler)
	handler = middleware.Logger(d.Log)(handler)
	handler = middleware.Recoverer(d.Log)(handler)

	d.Log.Info("routes mounted",
		zap.String("home", d.Config.Home),
		zap.String("blog", blogBase+"/"),
		zap.String("persons", personsBase+"/"),
		zap.String("media", d.Config.Media.URL),
		zap.Bool("csrf", d.Config.CSRF.Enabled),
	)
	return handler, nil
}
