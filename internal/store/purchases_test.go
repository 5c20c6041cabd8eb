package store

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/erazemk/trznica/internal/db"
	"github.com/erazemk/trznica/internal/events"
	"github.com/erazemk/trznica/internal/market"
	"github.com/erazemk/trznica/internal/model"
)

func TestListPurchases(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	sink := &events.Recorder{}

	provider, _ := CreateUser(ctx, database, "provider", "hash", model.RoleUser)
	alice, _ := CreateUser(ctx, database, "alice", "hash", model.RoleUser)
	bob, _ := CreateUser(ctx, database, "bob", "hash", model.RoleUser)
	CreditWallet(ctx, database, alice.ID, 1000)
	CreditWallet(ctx, database, bob.ID, 1000)

	figs, _, _ := market.ListItem(ctx, database, sink, provider.ID, "figs", "", 100, 200000)
	plums, _, _ := market.ListItem(ctx, database, sink, provider.ID, "plums", "", 100, 200000)

	market.PurchaseItem(ctx, database, sink, figs.ID, alice.ID, 100, 1000)
	market.PurchaseItem(ctx, database, sink, figs.ID, bob.ID, 100, 1000)
	market.PurchaseItem(ctx, database, sink, plums.ID, alice.ID, 100, 1000)

	all, err := ListPurchases(ctx, database, uuid.Nil, 0)
	if err != nil {
		t.Fatalf("ListPurchases: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 purchases, got %d", len(all))
	}

	byItem, err := GetItemHistory(ctx, database, figs.ID)
	if err != nil {
		t.Fatalf("GetItemHistory: %v", err)
	}
	if len(byItem) != 2 {
		t.Errorf("expected 2 purchases for figs, got %d", len(byItem))
	}

	byBuyer, err := ListPurchases(ctx, database, uuid.Nil, alice.ID)
	if err != nil {
		t.Fatalf("ListPurchases by buyer: %v", err)
	}
	if len(byBuyer) != 2 {
		t.Errorf("expected 2 purchases for alice, got %d", len(byBuyer))
	}
	for _, p := range byBuyer {
		if p.BuyerName != "alice" {
			t.Errorf("expected buyer name 'alice', got %q", p.BuyerName)
		}
	}
}

func TestPurchaseHistorySurvivesClaim(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	sink := &events.Recorder{}

	provider, _ := CreateUser(ctx, database, "provider", "hash", model.RoleUser)
	buyer, _ := CreateUser(ctx, database, "buyer", "hash", model.RoleUser)
	CreditWallet(ctx, database, buyer.ID, 1000)

	item, capability, _ := market.ListItem(ctx, database, sink, provider.ID, "figs", "", 100, 200000)
	market.PurchaseItem(ctx, database, sink, item.ID, buyer.ID, 100, 1000)

	if _, err := market.ClaimEarnings(ctx, database, sink, item.ID, capability.ID, provider.ID); err != nil {
		t.Fatalf("ClaimEarnings: %v", err)
	}

	history, err := GetItemHistory(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetItemHistory: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 purchase after claim, got %d", len(history))
	}
	if history[0].ItemName != "figs" {
		t.Errorf("expected recorded item name 'figs', got %q", history[0].ItemName)
	}
}
