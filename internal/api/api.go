package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "dataservices/docs"
	"dataservices/internal/auth"
	"dataservices/internal/config"
	"dataservices/internal/metrics"
	"dataservices/internal/model"
	"dataservices/internal/tenant"
)

const maxBodyBytes = 1 << 20

type ProductService interface {
	GetAllProducts(ctx context.Context) ([]model.Product, error)
	GetProductByID(ctx context.Context, id string) (*model.Product, bool, error)
	UpsertProduct(ctx context.Context, id string, details model.Product) (*model.Product, error)
	DeleteProduct(ctx context.Context, id string) (bool, error)
}

type UserService interface {
	GetAllUsers(ctx context.Context) ([]model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, bool, error)
	UpsertUser(ctx context.Context, id int64, details model.User) (*model.User, error)
	DeleteUser(ctx context.Context, id int64) (bool, error)
}

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

type API struct {
	Products ProductService
	Users    UserService
	Cfg      *config.Config
	Logger   *zap.Logger
	Signer   *auth.Signer
	Checks   map[string]HealthCheck

	healthTimeout time.Duration
}

func NewAPI(products ProductService, users UserService, cfg *config.Config, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &API{
		Products:      products,
		Users:         users,
		Cfg:           cfg,
		Logger:        logger,
		Checks:        make(map[string]HealthCheck),
		healthTimeout: 2 * time.Second,
	}
	if cfg.Auth.JWTSecret != "" {
		a.Signer = auth.NewSigner(cfg.Auth.JWTSecret)
	}
	return a
}

// AddCheck registers a backend probed by /healthz.
func (a *API) AddCheck(name string, check HealthCheck) {
	a.Checks[name] = check
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", a.Health)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Route("/api", func(r chi.Router) {
		r.Use(a.tenantMiddleware())
		r.Use(a.requestLogger)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", a.GetAllProducts)
			r.Get("/{id}", a.GetProductByID)
			r.Put("/{id}", a.UpsertProduct)
			r.Delete("/{id}", a.DeleteProduct)
		})
		r.Route("/users", func(r chi.Router) {
			r.Get("/", a.GetAllUsers)
			r.Get("/{id}", a.GetUserByID)
			r.Put("/{id}", a.UpsertUser)
			r.Delete("/{id}", a.DeleteUser)
		})
	})

	return r
}

func (a *API) tenantMiddleware() func(http.Handler) http.Handler {
	opts := []tenant.Option{
		tenant.WithHeader(a.Cfg.Tenant.Header),
		tenant.WithDefault(a.Cfg.Tenant.Default),
		tenant.WithRequired(a.Cfg.Tenant.RequireHeader),
		tenant.WithErrorHandler(a.tenantError),
		tenant.WithHooks(
			func(string) { metrics.ActiveRequests.Inc() },
			func(string) { metrics.ActiveRequests.Dec() },
		),
	}
	if a.Signer != nil {
		opts = append(opts, tenant.WithResolver(auth.TenantResolver(a.Signer)))
	}
	return tenant.Middleware(opts...)
}
