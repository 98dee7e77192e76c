package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tradeloom/tradeloom/internal/middleware"
	"github.com/tradeloom/tradeloom/internal/service"
)

// ---------------------------------------------------------------------------
// Generic CRUD handler factories
// ---------------------------------------------------------------------------

// mountEntity registers list/get/create/update/delete for one entity type.
// Every handler reads the tenant scope from the request context, so the
// router group must run RequireTenant first.
func mountEntity[T, C, U any](r chi.Router, path string, svc *service.Entities[T, C, U]) {
	notFound := svc.Kind() + " not found"
	r.Route(path, func(r chi.Router) {
		r.Get("/", handleList(svc))
		r.Post("/", handleCreate(svc))
		r.Get("/{id}", handleGet(svc, notFound))
		r.Put("/{id}", handleUpdate(svc, notFound))
		r.Delete("/{id}", handleDelete(svc, notFound))
	})
}

// handleList creates a handler that lists the scope's entities.
func handleList[T, C, U any](svc *service.Entities[T, C, U]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context(), middleware.ScopeFromContext(r.Context()))
		if err != nil {
			writeDomainError(w, r, err, svc.Kind()+" not found")
			return
		}
		if items == nil {
			items = []T{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// handleGet creates a handler that retrieves a single entity by URL param "id".
func handleGet[T, C, U any](svc *service.Entities[T, C, U], notFoundMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := svc.Get(r.Context(), middleware.ScopeFromContext(r.Context()), urlParam(r, "id"))
		if err != nil {
			writeDomainError(w, r, err, notFoundMsg)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

// handleCreate creates a handler that decodes a JSON body and creates an entity.
func handleCreate[T, C, U any](svc *service.Entities[T, C, U]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := readJSON[C](w, r)
		if !ok {
			return
		}
		item, err := svc.Create(r.Context(), middleware.ScopeFromContext(r.Context()), &req)
		if err != nil {
			writeDomainError(w, r, err, "referenced record not found")
			return
		}
		writeJSON(w, http.StatusCreated, item)
	}
}

// handleUpdate creates a handler that decodes a JSON body and updates an entity by URL param "id".
func handleUpdate[T, C, U any](svc *service.Entities[T, C, U], notFoundMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := readJSON[U](w, r)
		if !ok {
			return
		}
		item, err := svc.Update(r.Context(), middleware.ScopeFromContext(r.Context()), urlParam(r, "id"), &req)
		if err != nil {
			writeDomainError(w, r, err, notFoundMsg)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

// handleDelete creates a handler that deletes an entity by URL param "id".
func handleDelete[T, C, U any](svc *service.Entities[T, C, U], notFoundMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), middleware.ScopeFromContext(r.Context()), urlParam(r, "id")); err != nil {
			writeDomainError(w, r, err, notFoundMsg)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
