package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/makalov0/M-money-web-backoffice--sub000/internal/config"
	"github.com/makalov0/M-money-web-backoffice--sub000/internal/handlers"
	"github.com/makalov0/M-money-web-backoffice--sub000/internal/limiter"
	"github.com/makalov0/M-money-web-backoffice--sub000/internal/middleware"
	"github.com/makalov0/M-money-web-backoffice--sub000/internal/repository"
	"github.com/makalov0/M-money-web-backoffice--sub000/internal/services"
	"github.com/makalov0/M-money-web-backoffice--sub000/internal/ws"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) error {
	customerRepo := repository.NewCustomerRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	auditService := services.NewAuditService(auditRepo)
	chatService := services.NewChatService(customerRepo, staffRepo, conversationRepo, messageRepo)

	var storageService services.StorageService
	if cfg.BlobStoreURL != "" && cfg.BlobStoreBucket != "" && cfg.BlobStoreKey != "" {
		storageService = services.NewBlobStorageService(cfg.BlobStoreURL, cfg.BlobStoreBucket, cfg.BlobStoreKey)
	}

	var connLimiter *limiter.ConnectionLimiter
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		connLimiter = limiter.NewConnectionLimiter(redis.NewClient(opts), cfg.WSConnectLimit, cfg.WSConnectWindow)
	}

	chatHub := ws.NewHub()
	go chatHub.Run()
	chatRouter := ws.NewRouter(chatHub, chatService, auditService)

	authHandler := handlers.NewAuthHandler(staffRepo, auditService, cfg.JWTSecret)
	chatHandler := handlers.NewChatHandler(chatService, chatHub, chatRouter, connLimiter, cfg.JWTSecret)
	uploadHandler := handlers.NewUploadHandler(storageService)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	conversations := authProtected.Group("/conversations")
	conversations.Get("", chatHandler.ListConversations)
	conversations.Get("/:id/messages", chatHandler.GetMessages)
	conversations.Put("/:id/close", chatHandler.CloseConversation)
	conversations.Delete("/:id", chatHandler.DeleteConversation)

	messages := authProtected.Group("/messages")
	messages.Delete("/:id", chatHandler.DeleteMessage)

	authProtected.Post("/uploads", uploadHandler.UploadImage)

	// The chat socket sits outside the auth group: customers connect with no
	// token at all, so the gate resolves identity itself.
	api.Use("/chat", chatHandler.WebSocketGate)
	api.Get("/chat", websocket.New(chatHandler.HandleWebSocket))

	return nil
}
