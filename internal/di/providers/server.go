package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/Sarcastic-Soul/blog-app/internal/api"
	"github.com/Sarcastic-Soul/blog-app/internal/config"
	"github.com/Sarcastic-Soul/blog-app/internal/logger"
	"github.com/Sarcastic-Soul/blog-app/internal/media/images"
	"github.com/Sarcastic-Soul/blog-app/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	api *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.api.Shutdown()
	return err
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	hubHandle := do.MustInvoke[*RealtimeHubHandle](i)
	headers := do.MustInvoke[*images.Storage](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Content: do.MustInvoke[*service.ContentService](i),
		Comment: do.MustInvoke[*service.CommentService](i),
		Account: do.MustInvoke[*service.AccountService](i),
		Team:    do.MustInvoke[*service.TeamService](i),
		Media:   do.MustInvoke[*service.MediaService](i),
		Search:  do.MustInvoke[*service.SearchService](i),
	}

	infra := api.Infrastructure{
		Database: storeHandle.Store,
		Headers:  headers,
		Hub:      hubHandle.Hub,
	}

	handler := api.NewServer(services, infra, api.Options{
		AdminTeamID:       cfg.Content.AdminTeamID,
		CORSOrigins:       cfg.Server.CORSOrigins,
		CookieSecure:      cfg.Auth.CookieSecure,
		SessionTTL:        cfg.Auth.SessionTTL,
		CountersPerMinute: cfg.RateLimit.CountersPerMinute,
		LoginsPerMinute:   cfg.RateLimit.LoginsPerMinute,
	}, log.Component("api"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr, "public_url", cfg.Server.PublicURL)

	return &HTTPServerHandle{Server: srv, api: handler}, nil
}
