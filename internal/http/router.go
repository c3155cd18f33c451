package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tcbarzyk/reading-list-backend/internal/auth"
	"github.com/tcbarzyk/reading-list-backend/internal/catalog"
	"github.com/tcbarzyk/reading-list-backend/internal/config"
	"github.com/tcbarzyk/reading-list-backend/internal/http/handlers"
	"github.com/tcbarzyk/reading-list-backend/internal/http/middlewares"
	"github.com/tcbarzyk/reading-list-backend/internal/observability"
	mongorepo "github.com/tcbarzyk/reading-list-backend/internal/repo/mongo"
	"github.com/tcbarzyk/reading-list-backend/internal/sessions"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func NewRouter(log *slog.Logger, store *mongorepo.Store, sessionStore *sessions.Store, cfg config.Config) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	prom := observability.NewProm(reg)

	if store != nil {
		store.WithMetrics(prom)
	}

	// middleware

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(log))
	r.Use(otelgin.Middleware("reading-list-api"))
	r.Use(prom.GinHandleMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(1 << 20))

	// health + metrics
	ping := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if store != nil {
			if err := store.Ping(ctx); err != nil {
				return err
			}
		}

		if sessionStore != nil {
			return sessionStore.Ping(ctx)
		}

		return nil
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// wire up repositories and collaborators
	booksRepo := mongorepo.NewBooksRepo(store)
	usersRepo := mongorepo.NewUsersRepo(store)

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL())
	catalogClient := catalog.NewClient(cfg.CatalogBaseURL, log, prom)

	authMiddleware := middlewares.NewAuthMiddleware(jwtManager, usersRepo)

	booksHandler := handlers.NewBooksHandler(booksRepo, usersRepo, catalogClient, log)
	usersHandler := handlers.NewUsersHandler(usersRepo, booksRepo)
	authHandler := handlers.NewAuthHandler(usersRepo, jwtManager, sessionStore, cfg)

	api := r.Group("/api")

	// reads are public
	api.GET("/books", booksHandler.ListBooks)
	api.GET("/books/:id", booksHandler.GetBookByID)
	api.GET("/users", usersHandler.ListUsers)
	api.GET("/users/:id", usersHandler.GetUserByID)

	// registration and login
	api.POST("/users", usersHandler.Register)
	api.POST("/login", authHandler.Login)
	api.POST("/login/refresh", authHandler.Refresh)
	api.POST("/login/logout", authHandler.Logout)

	// writes require a resolved user
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	protected.POST("/books", booksHandler.CreateBook)
	protected.PUT("/books/:id", booksHandler.UpdateBook)
	protected.DELETE("/books/:id", booksHandler.DeleteBook)

	return r
}
