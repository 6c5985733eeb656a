package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/digest/internal/httpserver/deps"
	"github.com/MrSnakeDoc/digest/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/digest/internal/httpserver/mw"
)

func init() { Register(registerBookmarks) }

func registerBookmarks(r chi.Router, d deps.Deps) {
	auth := mw.Auth(d.AuthSecret, d.Logger)
	r.Route("/api/bookmarks", func(r chi.Router) {
		r.Use(auth)
		r.Get("/", handlers.ListBookmarks(d))
		r.Post("/", handlers.CreateBookmark(d))
		r.Delete("/{id}", handlers.DeleteBookmark(d))
	})
}
