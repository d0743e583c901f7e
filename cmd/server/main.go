package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/openforce/backend/internal/application/services"
	"github.com/openforce/backend/internal/bootstrap"
	"github.com/openforce/backend/internal/infrastructure/database"
	"github.com/openforce/backend/internal/infrastructure/persistence"
	"github.com/openforce/backend/internal/interfaces/middleware"
	"github.com/openforce/backend/internal/interfaces/rest"
	"github.com/openforce/backend/pkg/formula"
	"github.com/openforce/backend/pkg/ids"
)

func main() {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}

	db, err := database.GetInstance()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("✅ Database connection established")

	store := persistence.NewRecordStore(db.DB())

	// Core services
	idGen := ids.NewGenerator()
	formulaEngine := formula.NewEngine()
	metadata := services.NewMetadataService(idGen, formulaEngine)
	policies := services.NewPolicyStore()
	permissions := services.NewPermissionService(policies)
	validation := services.NewValidationService(formulaEngine)
	persistenceSvc := services.NewPersistenceService(metadata, store, permissions, validation, idGen)
	locators := services.NewQueryLocatorService()
	soqlSvc := services.NewSOQLService(metadata, store, permissions, locators)
	compositeSvc := services.NewCompositeService(persistenceSvc)
	listViews := services.NewListViewService(metadata, store, permissions)
	authSvc := services.NewAuthService(policies)
	log.Println("🔧 Services initialized")

	ctx := context.Background()
	if err := bootstrap.InitializeSchema(ctx, metadata, store); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	if err := bootstrap.InitializeSystemData(policies, authSvc); err != nil {
		log.Fatalf("Failed to initialize system data: %v", err)
	}

	locators.StartSweeper()
	log.Println("⏰ Query locator sweeper started")

	router := gin.Default()
	router.Use(middleware.Cors())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "server": "golang"})
	})

	// Handlers
	authHandler := rest.NewAuthHandler(authSvc)
	queryHandler := rest.NewQueryHandler(soqlSvc)
	dataHandler := rest.NewDataHandler(persistenceSvc, listViews)
	compositeHandler := rest.NewCompositeHandler(compositeSvc)
	metadataHandler := rest.NewMetadataHandler(metadata, permissions, store)

	requireAuth := middleware.RequireAuth(authSvc)
	requireSystemAdmin := middleware.RequireSystemAdmin()

	// Salesforce-style REST surface
	data := router.Group("/services/data")
	data.Use(requireAuth)
	{
		data.GET("/query", queryHandler.Query)
		data.GET("/query/:locator", queryHandler.QueryMore)

		data.POST("/composite", compositeHandler.Execute)

		data.GET("/sobjects", metadataHandler.ListObjects)
		data.GET("/sobjects/:object/describe", metadataHandler.DescribeObject)
		data.POST("/sobjects/:object", dataHandler.CreateRecord)
		data.GET("/sobjects/:object/:id", dataHandler.GetRecord)
		data.PATCH("/sobjects/:object/:id", dataHandler.UpdateRecord)
		data.DELETE("/sobjects/:object/:id", dataHandler.DeleteRecord)
	}

	// API routes
	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", requireAuth, authHandler.Me)
		}

		md := api.Group("/metadata")
		md.Use(requireAuth)
		{
			md.POST("/objects", requireSystemAdmin, metadataHandler.RegisterObject)
			md.DELETE("/objects/:object", requireSystemAdmin, metadataHandler.RemoveObject)
		}

		appData := api.Group("/data")
		appData.Use(requireAuth)
		{
			appData.POST("/listview", dataHandler.ListView)
		}
	}

	log.Println("🚀 OpenForce Backend Started Successfully")
	log.Printf("📍 Server:       http://localhost:%s", port)
	log.Printf("🔍 Query API:    http://localhost:%s/services/data/query", port)
	log.Printf("💾 SObject API:  http://localhost:%s/services/data/sobjects", port)
	log.Printf("💚 Health check: http://localhost:%s/health", port)

	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	locators.StopSweeper()
	log.Println("🛑 Query locator sweeper stopped")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	log.Println("Server exiting")
}
