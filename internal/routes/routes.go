package routes

import (
	"github.com/gofiber/fiber/v2"

	"letschat/server/internal/handlers"
	"letschat/server/internal/metrics"
	"letschat/server/internal/middleware"
	"letschat/server/internal/utils"
)

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, h *handlers.Handler, tokens *utils.TokenManager, m *metrics.Metrics) {
	auth := middleware.Auth(tokens)

	// Health check and scrape endpoint (public)
	app.Get("/health", handlers.Health)
	app.Get("/metrics", m.Handler())

	api := app.Group("/api")

	// Auth routes (public except /me)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", middleware.StrictRateLimiter(), h.Register)
	authGroup.Post("/login", middleware.StrictRateLimiter(), h.Login)
	authGroup.Get("/me", auth, h.Me)

	// Chat routes (protected)
	chats := api.Group("/chats", auth)

	// Feed and history
	chats.Get("/getallchats", middleware.RelaxedRateLimiter(), h.GetAllChats)
	chats.Get("/getMoreChats", middleware.RelaxedRateLimiter(), h.GetMoreChats)
	chats.Get("/getChatsByQuery", middleware.RelaxedRateLimiter(), h.SearchChats)
	chats.Get("/fetch-groups", middleware.RelaxedRateLimiter(), h.FetchGroups)
	chats.Get("/getprivatechat/:conversationId", middleware.RelaxedRateLimiter(), h.GetPrivateChat)
	chats.Get("/getOlderMessages/:conversationId", middleware.RelaxedRateLimiter(), h.GetOlderMessages)

	// Friends
	chats.Post("/create-friend-request/:friendId", middleware.ModerateRateLimiter(), h.SendFriendRequest)
	chats.Post("/responsed-friend-request/:friendRequestId", middleware.ModerateRateLimiter(), h.RespondFriendRequest)
	chats.Get("/fetchFriendRequest", h.GetFriendRequests)
	chats.Get("/fetchSentFriendRequest", h.GetSentFriendRequests)
	chats.Get("/get-user-suggestion", h.GetUserSuggestions)

	// Groups
	chats.Post("/create-group", middleware.ModerateRateLimiter(), h.CreateGroup)
	chats.Put("/update-group/:groupId", middleware.ModerateRateLimiter(), h.UpdateGroup)
	chats.Post("/add-members/:groupId", middleware.ModerateRateLimiter(), h.AddGroupMembers)
	chats.Post("/remove-members/:groupId", middleware.ModerateRateLimiter(), h.RemoveGroupMembers)
	chats.Delete("/delete-group/:groupId", middleware.ModerateRateLimiter(), h.DeleteGroup)
	chats.Post("/leave-group/:groupId", middleware.ModerateRateLimiter(), h.LeaveGroup)

	// Messages
	chats.Post("/send-message/:conversationId", middleware.RelaxedRateLimiter(), h.SendMessage)
	chats.Post("/mark-seen/:conversationId", h.MarkSeen)
	chats.Delete("/delete-message/:messageId", h.DeleteMessage)
	chats.Post("/block-conversation/:conversationId", h.BlockConversation)
	chats.Post("/unblock-conversation/:conversationId", h.UnblockConversation)
	chats.Post("/upload-url", middleware.UploadRateLimiter(), h.UploadURL)

	// Signed local object URLs; the token in the query string authorizes them
	if h.HasLocalStorage() {
		app.Put("/uploads/*", middleware.UploadRateLimiter(), h.PutObject)
		app.Get("/uploads/*", h.GetObject)
	}
}
