package finconfig

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/artvpp/books-backend/api/responses"
	"github.com/artvpp/books-backend/api/validators"
	internalfinconfig "github.com/artvpp/books-backend/internal/finconfig"
	pkgerrors "github.com/artvpp/books-backend/pkg/errors"
	"github.com/artvpp/books-backend/pkg/logger"
)

type setRequest struct {
	ConfigValue string `json:"config_value" validate:"required"`
	DataType    string `json:"data_type" validate:"omitempty,oneof=string number boolean"`
	Description string `json:"description"`
}

// List returns every financial configuration entry.
func List(svc internalfinconfig.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		configs, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, configs)
	}
}

// Get returns one configuration entry by key.
func Get(svc internalfinconfig.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := parseKey(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cfg, err := svc.Get(r.Context(), key)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cfg)
	}
}

// Set upserts a configuration entry.
func Set(svc internalfinconfig.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := parseKey(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req setRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cfg, err := svc.Set(r.Context(), key, req.ConfigValue, req.DataType, req.Description)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cfg)
	}
}

func parseKey(r *http.Request) (string, error) {
	key := strings.TrimSpace(chi.URLParam(r, "configKey"))
	if key == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "config key is required")
	}
	return key, nil
}
