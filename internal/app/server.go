package app

import (
	"context"

	"github.com/julik/signed-params/internal/server"
)

// RunServer creates the HTTP server for the application router. It serves
// HTTPS when a certificate and key are configured.
func (app *App) RunServer() *server.Server {
	return server.New(app.Router, app.Config.Port, app.Config.TLSCertFile, app.Config.TLSKeyFile)
}

// Shutdown stops background work started by Run
func (app *App) Shutdown(ctx context.Context) error {
	select {
	case <-app.shutdownCh:
	default:
		close(app.shutdownCh)
	}

	if app.scheduler != nil {
		select {
		case <-app.scheduler.Stop().Done():
		case <-ctx.Done():
			return ctx.Err()
		}
		app.scheduler = nil
		app.Logger.Info("Salt refresh stopped")
	}
	return nil
}
