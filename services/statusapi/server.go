// Package statusapi serves read-only directory listings of the live
// world collections over HTTP, for debugging and sidebar tooling.
package statusapi

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"tabletop-core/internal/collection"
)

// CollectionSource is the slice of the session the API reads from.
type CollectionSource interface {
	Collection(documentType string) (*collection.World, bool)
	Collections() []*collection.World
	WorldID() string
}

type Server struct {
	server *http.Server
	router *mux.Router
}

func NewServer(addr string, source CollectionSource) *Server {
	router := mux.NewRouter()
	srv := &http.Server{
		Addr:         addr,
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      router,
	}
	s := &Server{server: srv, router: router}
	s.registerRoutes(source)
	return s
}

func (s *Server) registerRoutes(source CollectionSource) {
	h := &handlers{source: source}
	s.router.HandleFunc("/collections", h.listCollections).Methods("GET")
	s.router.HandleFunc("/collections/{type}", h.listDocuments).Methods("GET")
	s.router.HandleFunc("/collections/{type}/{id}", h.getDocument).Methods("GET")
}

func (s *Server) Start() {
	go func() {
		log.Printf("Status API starting on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Status API error: %v", err)
		}
	}()
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		log.Printf("Status API shutdown error: %v", err)
	}
	log.Println("Status API stopped")
}
