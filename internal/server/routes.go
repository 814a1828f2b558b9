package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.loggingMw)
	r.NotFoundHandler = s.loggingMw(s.notFoundHandler())

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.maxBytesMw, s.authMw)

	api.HandleFunc("/games/tracked", s.gameTrackedList()).Methods(http.MethodGet)
	api.HandleFunc("/games/{appID:[0-9]+}/price", s.gamePrice()).Methods(http.MethodGet)
	api.HandleFunc("/games/{appID:[0-9]+}/track", s.gameTrack()).Methods(http.MethodPost)
	api.HandleFunc("/games/{appID:[0-9]+}/track", s.gameUntrack()).Methods(http.MethodDelete)
	api.HandleFunc("/games/{appID:[0-9]+}/history", s.gameHistory()).Methods(http.MethodGet)

	api.HandleFunc("/alerts", s.alertCreate()).Methods(http.MethodPost)
	api.HandleFunc("/alerts", s.alertGetAll()).Methods(http.MethodGet)
	api.HandleFunc("/alerts/{alertID}/toggle", s.alertToggle()).Methods(http.MethodPost)
	api.HandleFunc("/alerts/{alertID}", s.alertDelete()).Methods(http.MethodDelete)

	adminAPI := api.PathPrefix("/admin").Subrouter()
	adminAPI.Use(s.adminMw)
	adminAPI.HandleFunc("/sync", s.adminSync()).Methods(http.MethodPost)

	return r
}
