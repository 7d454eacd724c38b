package app

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/julik/signed-params/internal/middleware"
	"github.com/julik/signed-params/internal/params"
	"github.com/julik/signed-params/internal/signature"
)

// ConfirmRoute is the name of the example route that only accepts signed
// links.
const ConfirmRoute = "confirm"

// SetupRoutes configures all HTTP routes for the application
func SetupRoutes(router *mux.Router, app *App) {
	router.Use(middleware.RequestLogger(app.Logger))
	router.Use(middleware.RequireSignedParams(app.Verifier, app.Logger, middleware.Only(ConfirmRoute)))

	router.HandleFunc("/health", app.HealthCheck).Methods(http.MethodGet).Name("health")
	router.HandleFunc("/confirm/{id}", app.HandleConfirm).Methods(http.MethodGet, http.MethodPost).Name(ConfirmRoute)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// HealthCheck reports whether a salt is loaded and the salt store answers.
func (app *App) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
	}
	code := http.StatusOK

	if config := app.Keeper.Snapshot(); config != nil {
		status["algorithm"] = config.Algorithm
		status["legacy"] = config.Legacy
	} else {
		status["status"] = "unhealthy"
		status["signing"] = "no salt loaded"
		code = http.StatusServiceUnavailable
	}

	if app.RedisClient != nil {
		if err := app.RedisClient.Health(r.Context()); err != nil {
			status["redis_status"] = "unhealthy"
			status["status"] = "degraded"
		} else {
			status["redis_status"] = "healthy"
		}
	}

	writeJSON(w, code, status)
}

// HandleConfirm echoes the verified parameters of a signed confirmation link.
func (app *App) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	m, _ := middleware.SignedParams(r.Context())

	out := make(map[string]interface{}, len(m))
	for key, value := range m.Without(signature.SignatureKey) {
		if list, ok := value.(params.List); ok {
			out[key] = params.Strings(list)
			continue
		}
		text, _ := params.Text(value)
		out[key] = text
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"confirmed": mux.Vars(r)["id"],
		"params":    out,
	})
}
