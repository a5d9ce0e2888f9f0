package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"mediahub/internal/config"
	"mediahub/internal/database"
	"mediahub/internal/domain/link"
	"mediahub/internal/domain/media"
	"mediahub/internal/middleware"
	jwtsvc "mediahub/internal/pkg/jwt"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadRuntimeConfig()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is empty")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal(err)
	}

	mediaRepo := media.NewRepository(db)
	linkRepo := link.NewRepository(db)

	blobs := media.NewDiskStore(cfg.UploadBaseDir, cfg.StaticURLBase)

	mediaService := media.NewService(mediaRepo, blobs, linkRepo, cfg.MaxUploadBytes)
	linkService := link.NewService(linkRepo, mediaService)

	mediaHandler := media.NewHandler(mediaService)
	streamHandler := media.NewStreamHandler(mediaService, cfg.StreamInterval)
	webhookHandler := media.NewWebhookHandler(mediaService, linkService)
	linkHandler := link.NewHandler(linkService)

	j := jwtsvc.New(cfg.ScopeTokenSecret, cfg.ScopeTokenTTL)

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorLogger())

	r.Static(cfg.StaticURLBase, cfg.UploadBaseDir)

	v1 := r.Group("/api/v1")
	{
		protected := v1.Group("/")
		protected.Use(middleware.ScopeAuth(j))
		{
			media.RegisterRoutes(protected, mediaHandler, streamHandler)
			link.RegisterRoutes(protected, linkHandler)
		}

		internal := v1.Group("/internal")
		internal.Use(middleware.ProcessorTokenAuth(cfg.ProcessorToken))
		{
			media.RegisterWebhookRoutes(internal, webhookHandler)
		}
	}

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	if err := r.Run(addr); err != nil {
		log.Fatal(err)
	}
}
