package httpadapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := rt.library.List(r.Context())
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"count":     len(docs),
	})
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := rt.library.Delete(r.Context(), chi.URLParam(r, "documentID")); err != nil {
		rt.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
