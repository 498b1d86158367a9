package uploads

import (
	"net/http"

	"MaintBackOffice/api"
	"MaintBackOffice/api/constants"

	"github.com/gorilla/mux"
)

// Legacy per-resource upload paths kept for existing clients.
var legacyRoutes = map[string]string{
	"/cmcncmcprice/upload":    "cmc-ncmc-price",
	"/reportedproblem/upload": "reported-problems",
}

func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(api.RequestLogger)

	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.HandleFunc("/upload", h.Resources).Methods(http.MethodGet)
	router.HandleFunc("/upload/{resource}/fields", h.Fields).Methods(http.MethodGet)
	router.Handle("/upload/{resource}", h.Upload("")).Methods(http.MethodPost)
	for path, resource := range legacyRoutes {
		router.Handle(path, h.Upload(resource)).Methods(http.MethodPost)
	}

	router.NotFoundHandler = api.RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.RespondWithError(w, http.StatusNotFound, constants.ErrNotFound)
	}))
	router.MethodNotAllowedHandler = api.RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.RespondWithError(w, http.StatusMethodNotAllowed, constants.ErrMethodNotAllowed)
	}))
	return router
}
