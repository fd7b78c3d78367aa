package statusapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

type handlers struct {
	source CollectionSource
}

type collectionSummary struct {
	DocumentType string `json:"document_type"`
	Count        int    `json:"count"`
	Rendered     bool   `json:"rendered"`
}

func (h *handlers) listCollections(w http.ResponseWriter, r *http.Request) {
	collections := h.source.Collections()
	summaries := make([]collectionSummary, 0, len(collections))
	for _, c := range collections {
		summaries = append(summaries, collectionSummary{
			DocumentType: c.DocumentName(),
			Count:        c.Len(),
			Rendered:     c.Rendered(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"world_id":    h.source.WorldID(),
		"collections": summaries,
	})
}

func (h *handlers) listDocuments(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	c, ok := h.source.Collection(vars["type"])
	if !ok {
		writeError(w, http.StatusNotFound, "unknown document type")
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (h *handlers) getDocument(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	c, ok := h.source.Collection(vars["type"])
	if !ok {
		writeError(w, http.StatusNotFound, "unknown document type")
		return
	}
	doc, ok := c.Get(vars["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	writeJSON(w, http.StatusOK, doc.ToData())
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
