package uploads

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"MaintBackOffice/api"
	"MaintBackOffice/api/constants"
	"MaintBackOffice/internal/resources"
	"MaintBackOffice/internal/store"
	"MaintBackOffice/internal/upload"

	"github.com/gorilla/mux"
)

type schemaKey struct{}

// Handler serves the upload endpoints of every registered resource.
type Handler struct {
	store    store.Store
	registry *resources.Registry
	orch     *upload.Orchestrator
	limit    int64
}

func NewHandler(st store.Store, registry *resources.Registry, orch *upload.Orchestrator, limit int64) *Handler {
	return &Handler{store: st, registry: registry, orch: orch, limit: limit}
}

// Upload resolves the target resource (from the route, or fixed for the legacy
// aliases) before the upload filter reads the body.
func (h *Handler) Upload(fixed string) http.Handler {
	inner := api.UploadFilter(h.limit)(http.HandlerFunc(h.serveUpload))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := fixed
		if name == "" {
			name = mux.Vars(r)["resource"]
		}
		schema, ok := h.registry.Lookup(name)
		if !ok {
			api.RespondWithError(w, http.StatusNotFound, fmt.Sprintf(constants.ErrUnknownResource, name))
			return
		}
		inner.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), schemaKey{}, schema)))
	})
}

func (h *Handler) serveUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	schema := ctx.Value(schemaKey{}).(*upload.Schema)
	f, ok := api.UploadFileFromCtx(ctx)
	if !ok {
		api.RespondWithUploadError(w, upload.NoFileUploaded())
		return
	}

	job, err := h.orch.Prepare(ctx, schema, f)
	if err != nil {
		api.RespondWithUploadError(w, upload.AsError(err))
		return
	}

	api.SetStreamHeaders(w)
	rep := upload.NewReporter(w)
	if err := h.orch.Run(ctx, job, rep); err != nil && !rep.Started() {
		api.RespondWithUploadError(w, upload.AsError(err))
	}
}

func (h *Handler) Resources(w http.ResponseWriter, r *http.Request) {
	api.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"resources": h.registry.Names(),
	})
}

func (h *Handler) Fields(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["resource"]
	schema, ok := h.registry.Lookup(name)
	if !ok {
		api.RespondWithError(w, http.StatusNotFound, fmt.Sprintf(constants.ErrUnknownResource, name))
		return
	}
	api.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"resource": schema.Resource,
		"label":    schema.Label,
		"required": schema.Required,
		"key":      schema.KeyFields,
		"fields":   schema.Describe(),
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		api.RespondWithError(w, http.StatusServiceUnavailable, constants.ErrStoreUnavailable+": "+err.Error())
		return
	}
	api.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"success": true, "store": "ok"})
}
