package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/camden-git/galacticcensus/handlers"
	"github.com/camden-git/galacticcensus/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap("")
			if err != nil {
				return err
			}
			defer a.close()

			if port == "" {
				port = a.cfg.Port
			}
			return serve(cmd.Context(), a, ":"+port)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (defaults to PORT)")
	return cmd
}

func newRouter(a *app) (http.Handler, error) {
	sqlDB, err := a.db.DB()
	if err != nil {
		return nil, err
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   a.cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(handlers.RequestLogger(a.log))
	r.Use(middleware.Recoverer)
	r.Use(corsHandler.Handler)

	personHandler := &handlers.PersonHandler{
		Roster:   services.NewRosterService(sqlDB, a.people, a.cfg.PageSize, a.log),
		People:   a.people,
		Importer: a.im,
	}
	importHandler := &handlers.ImportHandler{
		Imports:        a.imports,
		MaxUploadBytes: int64(a.cfg.MaxUploadBytes),
	}
	referenceHandler := &handlers.ReferenceHandler{Refs: a.refs}

	r.Route("/api", func(r chi.Router) {
		// long lived websocket, outside the request timeout
		r.Get("/events", a.hub.ServeWS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(5 * time.Minute))
			r.Route("/people", func(r chi.Router) {
				r.Get("/", personHandler.ListPeople)
				r.Post("/", personHandler.SavePerson)
				r.Post("/import", importHandler.ImportPeople)
				r.Get("/{person_id}", personHandler.GetPerson)
			})
			r.Get("/imports", importHandler.ListImports)
			r.Get("/imports/{run_id}/file", importHandler.DownloadImport)
			r.Get("/locations", referenceHandler.ListLocations)
			r.Get("/affiliations", referenceHandler.ListAffiliations)
		})
	})
	return r, nil
}

func serve(ctx context.Context, a *app, addr string) error {
	router, err := newRouter(a)
	if err != nil {
		return err
	}

	// no WriteTimeout: it would cut /api/events connections; API routes use middleware.Timeout
	server := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go a.hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server listening", zap.String("addr", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		a.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
