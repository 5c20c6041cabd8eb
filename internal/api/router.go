package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/trznica/internal/events"
	"github.com/erazemk/trznica/internal/model"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, sink events.Sink) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	walletHandler := &WalletHandler{DB: db}
	itemsHandler := &ItemsHandler{DB: db, Sink: sink}
	marketHandler := &MarketHandler{DB: db, Sink: sink}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))
	mux.Handle("POST /api/users/{id}/wallet", authMW(requireAdmin(http.HandlerFunc(walletHandler.Credit))))

	// Wallet (own).
	mux.Handle("GET /api/wallet", authMW(http.HandlerFunc(walletHandler.Get)))

	// Listings.
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/items", authMW(http.HandlerFunc(itemsHandler.Create)))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("GET /api/items/{id}/price", authMW(http.HandlerFunc(itemsHandler.Price)))
	mux.Handle("PUT /api/items/{id}/image", authMW(http.HandlerFunc(itemsHandler.UploadImage)))
	mux.Handle("GET /api/items/{id}/image", authMW(http.HandlerFunc(itemsHandler.GetImage)))
	mux.Handle("GET /api/items/{id}/history", authMW(http.HandlerFunc(itemsHandler.GetHistory)))

	// Market operations.
	mux.Handle("POST /api/items/{id}/purchase", authMW(http.HandlerFunc(marketHandler.Purchase)))
	mux.Handle("POST /api/items/{id}/claim", authMW(http.HandlerFunc(marketHandler.Claim)))

	// Purchase history.
	mux.Handle("GET /api/purchases", authMW(http.HandlerFunc(marketHandler.ListPurchases)))

	return mux
}
