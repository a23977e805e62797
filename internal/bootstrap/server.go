package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"shipbooking/api"
	"shipbooking/config"
	"shipbooking/internal/service/booking"
	"shipbooking/internal/service/voyages"
)

// Run starts the HTTP server and blocks until the context is canceled
// or the server fails.
func Run(ctx context.Context, cfg *config.Config, logger zerolog.Logger,
	voyageSvc voyages.VoyageUseCase, bookingSvc booking.BookingUseCase,
	provider api.IdentityProvider, gate api.QuotaGate,
) error {
	router := newRouter(cfg, logger, voyageSvc, bookingSvc, provider, gate)

	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func newRouter(cfg *config.Config, logger zerolog.Logger,
	voyageSvc voyages.VoyageUseCase, bookingSvc booking.BookingUseCase,
	provider api.IdentityProvider, gate api.QuotaGate,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	v1 := router.Group("/api/v1")
	api.NewVoyageHandler(voyageSvc).Register(v1.Group("/voyages"))

	bookingsGroup := v1.Group("/bookings")
	bookingsGroup.Use(api.RequireIdentity(provider))
	api.NewBookingHandler(bookingSvc).Register(bookingsGroup, api.CheckQuota(gate))

	if cfg.HTTP.SwaggerDir != "" {
		router.Static("/swagger", cfg.HTTP.SwaggerDir)
		router.GET("/docs/bookings", func(c *gin.Context) {
			renderSwaggerUI(c, "/swagger/bookings.swagger.json")
		})
	}

	return router
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

func renderSwaggerUI(c *gin.Context, jsonURL string) {
	html := fmt.Sprintf(`<!DOCTYPE html>
    <html>
    <head>
        <title>API Docs</title>
        <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@latest/swagger-ui.css">
    </head>
    <body>
        <div id="swagger-ui"></div>
        <script src="https://unpkg.com/swagger-ui-dist@latest/swagger-ui-bundle.js"></script>
        <script>
            window.onload = function() {
                window.ui = SwaggerUIBundle({
                    url: "%s",
                    dom_id: '#swagger-ui'
                });
            };
        </script>
    </body>
    </html>`, jsonURL)

	c.Data(http.StatusOK, "text/html", []byte(html))
}
