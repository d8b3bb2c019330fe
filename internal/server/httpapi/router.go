package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/vidtube/internal/logging"
	"github.com/dmitrijs2005/vidtube/internal/server/auth"
	"github.com/dmitrijs2005/vidtube/internal/server/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler, issuer *auth.Issuer, l logging.Logger, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(l, m))
	r.Use(recoverer(l))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh-token", h.RefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(issuer, h.profiles, l))

			r.Post("/logout", h.Logout)
			r.Post("/change-password", h.ChangePassword)
			r.Get("/current-user", h.CurrentUser)
			r.Patch("/update-account", h.UpdateAccount)
			r.Patch("/avatar", h.UpdateAvatar)
			r.Patch("/cover-image", h.UpdateCoverImage)
			r.Get("/c/{username}", h.ChannelProfile)
			r.Get("/history", h.WatchHistory)
		})
	})

	return r
}
