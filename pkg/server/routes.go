package server

import (
	"github.com/gorilla/mux"
)

// SetupRoutes registers the API on router
func SetupRoutes(router *mux.Router, handlers *Handlers) {
	api := router.PathPrefix("/api/v1").Subrouter()

	analyses := api.PathPrefix("/analyses").Subrouter()
	analyses.HandleFunc("", handlers.CreateAnalysis).Methods("POST")
	analyses.HandleFunc("", handlers.ListAnalyses).Methods("GET")
	analyses.HandleFunc("/{analysisId}", handlers.GetAnalysis).Methods("GET")
	analyses.HandleFunc("/{analysisId}", handlers.CancelAnalysis).Methods("DELETE")

	// Views of a completed analysis
	analyses.HandleFunc("/{analysisId}/heatmap", handlers.GetHeatmap).Methods("GET")
	analyses.HandleFunc("/{analysisId}/distance", handlers.GetDistance).Methods("GET")
	analyses.HandleFunc("/{analysisId}/similarity", handlers.GetSimilarity).Methods("GET")
	analyses.HandleFunc("/{analysisId}/graph", handlers.GetGraph).Methods("GET")
	analyses.HandleFunc("/{analysisId}/features", handlers.GetFeatures).Methods("GET")
	analyses.HandleFunc("/{analysisId}/embedding", handlers.GetEmbedding).Methods("GET")

	api.HandleFunc("/health", handlers.HealthCheck).Methods("GET")
}
