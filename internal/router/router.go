package router

import (
	"time"

	"subhlabh/internal/cache"
	"subhlabh/internal/config"
	"subhlabh/internal/handler"
	"subhlabh/internal/middleware"
	"subhlabh/internal/repository"
	"subhlabh/internal/service"
	"subhlabh/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis.
// rdb may be nil; caching and receipt jobs are then disabled.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, breaker *cache.Breaker) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute))

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewShopUserRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	productRepo := repository.NewProductRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	offerRepo := repository.NewOfferRepository(db)
	movementRepo := repository.NewStockMovementRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// ── Caches & jobs ────────────────────────────────────────────────────────
	dashboardStore := cache.NewDashboardStore(rdb, cfg.DashboardCacheTTL, breaker)
	offerStore := cache.NewOfferStore(rdb, cfg.OffersCacheTTL, breaker)
	dispatcher := worker.NewDispatcher(rdb)

	// ── Services ─────────────────────────────────────────────────────────────
	threshold := decimal.NewFromInt(int64(cfg.LowStockThreshold))
	clock := service.NewClock(userRepo, cfg.DefaultTimezone)

	dashboardSvc := service.NewDashboardService(saleRepo, customerRepo, productRepo, reportRepo, dashboardStore, clock, threshold)
	authSvc := service.NewAuthService(userRepo, cfg)
	accountSvc := service.NewAccountService(userRepo, clock, cfg.AccountDeletionGraceDays)
	customerSvc := service.NewCustomerService(customerRepo, saleRepo, dashboardSvc)
	productSvc := service.NewProductService(productRepo, movementRepo, dashboardSvc, threshold)
	offerSvc := service.NewOfferService(offerRepo, productRepo, saleRepo, offerStore, clock)
	billingSvc := service.NewBillingService(saleRepo, productRepo, customerRepo, offerRepo, movementRepo, dashboardSvc, dispatcher, clock)
	saleSvc := service.NewSaleService(saleRepo, productRepo, customerRepo, movementRepo, userRepo, dashboardSvc, clock, cfg.ReceiptStoragePath)
	reportSvc := service.NewReportService(reportRepo, saleRepo, clock)

	// ── Handlers ─────────────────────────────────────────────────────────────
	sessionStore := handler.NewSessionStore(cfg.SessionSecret, cfg.IsProduction())

	authH := handler.NewAuthHandler(authSvc, sessionStore)
	accountH := handler.NewAccountHandler(accountSvc)
	customersH := handler.NewCustomersHandler(customerSvc, sessionStore)
	productsH := handler.NewProductsHandler(productSvc)
	offersH := handler.NewOffersHandler(offerSvc)
	billingH := handler.NewBillingHandler(billingSvc)
	salesH := handler.NewSalesHandler(saleSvc)
	dashboardH := handler.NewDashboardHandler(dashboardSvc)
	reportsH := handler.NewReportsHandler(reportSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, breaker))

	auth := r.Group("/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
		auth.POST("/logout", authH.Logout)
	}

	// Protected routes; every handler below is scoped to the token's owner.
	// Browsers authenticate with the SameSite=Lax session cookie set at login.
	api := r.Group("", middleware.JWTAuth(cfg.JWTSecret, handler.SessionToken(sessionStore)))
	{
		api.GET("/account", accountH.Get)
		api.PUT("/account", accountH.Update)
		api.POST("/account/deletion", accountH.RequestDeletion)
		api.DELETE("/account/deletion", accountH.CancelDeletion)

		api.GET("/dashboard", dashboardH.Get)
		api.GET("/reports", reportsH.Build)

		api.POST("/billing", billingH.Checkout)

		sales := api.Group("/sales")
		{
			sales.GET("", salesH.List)
			sales.GET("/:id", salesH.Get)
			sales.POST("/:id/delete", salesH.Delete)
			sales.GET("/:id/receipt", salesH.Receipt)
		}

		customers := api.Group("/customers")
		{
			customers.GET("", customersH.List)
			customers.POST("", customersH.Create)
			customers.GET("/:id", customersH.Get)
			customers.PUT("/:id", customersH.Update)
			customers.DELETE("/:id", customersH.Delete)
			customers.POST("/:id/pay-credit", customersH.PayCredit)
		}

		products := api.Group("/products")
		{
			products.GET("", productsH.List)
			products.POST("", productsH.Create)
			products.GET("/low-stock", productsH.LowStock)
			products.GET("/export", productsH.Export)
			products.GET("/:id", productsH.Get)
			products.PUT("/:id", productsH.Update)
			products.DELETE("/:id", productsH.Delete)
			products.POST("/:id/adjust-stock", productsH.AdjustStock)
		}

		offers := api.Group("/offers")
		{
			offers.GET("", offersH.List)
			offers.POST("", offersH.Create)
			offers.GET("/active", offersH.Active)
			offers.GET("/:id", offersH.Get)
			offers.PUT("/:id", offersH.Update)
			offers.DELETE("/:id", offersH.Delete)
			offers.POST("/:id/preview", offersH.Preview)
		}

		// Typeahead lookups for the billing screen
		api.GET("/api/products/search", productsH.Search)
		api.GET("/api/customers/search", customersH.Search)
	}

	// Swagger UI, only outside production
	if !cfg.IsProduction() {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
