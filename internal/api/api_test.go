package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/trznica/internal/db"
	"github.com/erazemk/trznica/internal/events"
	"github.com/erazemk/trznica/internal/model"
	"github.com/erazemk/trznica/internal/store"
)

const testJWTSecret = "test-secret"

func setupTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	database := db.NewTestDB(t)
	router := NewRouter(database, testJWTSecret, &events.Recorder{})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	// Create admin user.
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	store.CreateUser(ctx, database, "admin", string(hash), model.RoleAdmin)

	return server, login(t, server, "admin", "password")
}

func login(t *testing.T, server *httptest.Server, username, password string) string {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp map[string]string
	json.NewDecoder(resp.Body).Decode(&loginResp)
	token := loginResp["token"]
	if token == "" {
		t.Fatal("empty token from login")
	}
	return token
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// doJSON performs an authenticated request and decodes the JSON response.
func doJSON(t *testing.T, method, url, token string, body any, wantStatus int, out any) {
	t.Helper()

	req, err := authRequest(method, url, token, body)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: expected %d, got %d", method, url, wantStatus, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
}

func createUser(t *testing.T, server *httptest.Server, adminToken, username string) int64 {
	t.Helper()

	var user model.User
	doJSON(t, "POST", server.URL+"/api/users", adminToken, map[string]string{
		"username": username,
		"password": "password123",
		"role":     model.RoleUser,
	}, http.StatusCreated, &user)
	return user.ID
}

func TestLoginEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUnauthenticatedRejected(t *testing.T) {
	server, _ := setupTestServer(t)

	resp, _ := http.Get(server.URL + "/api/items")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestMarketplaceFlow(t *testing.T) {
	server, adminToken := setupTestServer(t)

	createUser(t, server, adminToken, "provider")
	buyerID := createUser(t, server, adminToken, "buyer")

	// Fund the buyer.
	doJSON(t, "POST", fmt.Sprintf("%s/api/users/%d/wallet", server.URL, buyerID), adminToken,
		map[string]uint64{"amount": 2000}, http.StatusOK, nil)

	providerToken := login(t, server, "provider", "password123")
	buyerToken := login(t, server, "buyer", "password123")

	// Provider lists an item.
	expiresAt := uint64(time.Now().Unix()) + 200000
	var created struct {
		Item model.Item        `json:"item"`
		Cap  model.ProviderCap `json:"cap"`
	}
	doJSON(t, "POST", server.URL+"/api/items", providerToken, map[string]any{
		"name":       "figs",
		"base_price": 1000,
		"expires_at": expiresAt,
	}, http.StatusCreated, &created)

	if created.Cap.ItemID != created.Item.ID {
		t.Fatalf("cap bound to %s, expected %s", created.Cap.ItemID, created.Item.ID)
	}

	itemURL := server.URL + "/api/items/" + created.Item.ID.String()

	// Far from expiry: full price. Inside the last day: half price.
	var quote map[string]uint64
	doJSON(t, "GET", fmt.Sprintf("%s/price?at=%d", itemURL, expiresAt-90000), providerToken,
		nil, http.StatusOK, &quote)
	if quote["price"] != 1000 {
		t.Errorf("expected full price 1000, got %d", quote["price"])
	}
	doJSON(t, "GET", fmt.Sprintf("%s/price?at=%d", itemURL, expiresAt-3600), providerToken,
		nil, http.StatusOK, &quote)
	if quote["price"] != 500 {
		t.Errorf("expected discounted price 500, got %d", quote["price"])
	}

	// Buyer purchases at full price, overpaying by 200.
	var purchase struct {
		Price  uint64 `json:"price"`
		Change uint64 `json:"change"`
	}
	doJSON(t, "POST", itemURL+"/purchase", buyerToken, map[string]uint64{
		"payment": 1200,
		"at":      expiresAt - 90000,
	}, http.StatusOK, &purchase)
	if purchase.Price != 1000 || purchase.Change != 200 {
		t.Errorf("expected price 1000 change 200, got %+v", purchase)
	}

	// The change went back to the buyer's wallet.
	var wallet model.Wallet
	doJSON(t, "GET", server.URL+"/api/wallet", buyerToken, nil, http.StatusOK, &wallet)
	if wallet.Balance != 1000 {
		t.Errorf("expected buyer wallet 1000, got %d", wallet.Balance)
	}

	// A wrong capability never claims.
	req, _ := authRequest("POST", itemURL+"/claim", providerToken,
		map[string]string{"cap": created.Item.ID.String()})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for wrong cap, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// The right capability claims the full balance.
	var claim struct {
		Proceeds uint64 `json:"proceeds"`
	}
	doJSON(t, "POST", itemURL+"/claim", providerToken,
		map[string]string{"cap": created.Cap.ID.String()}, http.StatusOK, &claim)
	if claim.Proceeds != 1000 {
		t.Errorf("expected proceeds 1000, got %d", claim.Proceeds)
	}

	doJSON(t, "GET", server.URL+"/api/wallet", providerToken, nil, http.StatusOK, &wallet)
	if wallet.Balance != 1000 {
		t.Errorf("expected provider wallet 1000, got %d", wallet.Balance)
	}

	// The item is gone.
	req, _ = authRequest("GET", itemURL, providerToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after claim, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// History survives the claim.
	var history []model.Purchase
	doJSON(t, "GET", itemURL+"/history", buyerToken, nil, http.StatusOK, &history)
	if len(history) != 1 {
		t.Errorf("expected 1 history entry, got %d", len(history))
	}
}

func TestPurchaseUnderpaid(t *testing.T) {
	server, adminToken := setupTestServer(t)

	createUser(t, server, adminToken, "provider")
	buyerID := createUser(t, server, adminToken, "buyer")
	doJSON(t, "POST", fmt.Sprintf("%s/api/users/%d/wallet", server.URL, buyerID), adminToken,
		map[string]uint64{"amount": 5000}, http.StatusOK, nil)

	providerToken := login(t, server, "provider", "password123")
	buyerToken := login(t, server, "buyer", "password123")

	expiresAt := uint64(time.Now().Unix()) + 200000
	var created struct {
		Item model.Item `json:"item"`
	}
	doJSON(t, "POST", server.URL+"/api/items", providerToken, map[string]any{
		"name":       "plums",
		"base_price": 1000,
		"expires_at": expiresAt,
	}, http.StatusCreated, &created)

	req, _ := authRequest("POST", server.URL+"/api/items/"+created.Item.ID.String()+"/purchase",
		buyerToken, map[string]uint64{"payment": 999, "at": expiresAt - 90000})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusPaymentRequired {
		t.Errorf("expected 402 for underpayment, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Nothing was charged.
	var wallet model.Wallet
	doJSON(t, "GET", server.URL+"/api/wallet", buyerToken, nil, http.StatusOK, &wallet)
	if wallet.Balance != 5000 {
		t.Errorf("expected untouched wallet 5000, got %d", wallet.Balance)
	}
}

func TestExpiredListing(t *testing.T) {
	server, adminToken := setupTestServer(t)

	createUser(t, server, adminToken, "provider")
	providerToken := login(t, server, "provider", "password123")

	// Listing something already expired is allowed.
	var created struct {
		Item model.Item `json:"item"`
	}
	doJSON(t, "POST", server.URL+"/api/items", providerToken, map[string]any{
		"name":       "old bread",
		"base_price": 100,
		"expires_at": 1000,
	}, http.StatusCreated, &created)

	// But pricing and purchasing it fail cleanly.
	itemURL := server.URL + "/api/items/" + created.Item.ID.String()
	req, _ := authRequest("GET", fmt.Sprintf("%s/price?at=%d", itemURL, 2000), providerToken, nil)
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusGone {
		t.Errorf("expected 410 for expired listing, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogoutRevokesToken(t *testing.T) {
	server, adminToken := setupTestServer(t)

	doJSON(t, "POST", server.URL+"/api/auth/logout", adminToken, nil, http.StatusOK, nil)

	req, _ := authRequest("GET", server.URL+"/api/items", adminToken, nil)
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
