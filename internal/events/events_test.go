package events

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRecorderPreservesOrder(t *testing.T) {
	recorder := &Recorder{}
	ctx := context.Background()

	listed := ItemListed{ItemID: uuid.New(), Name: "figs", BasePrice: 100, ExpiresAt: 200, ProviderID: 1}
	purchased := ItemPurchased{ItemID: listed.ItemID, BuyerID: 2, Price: 100}

	recorder.Emit(ctx, listed)
	recorder.Emit(ctx, purchased)

	require.Equal(t, []Event{listed, purchased}, recorder.Events())
}

func TestRecorderEventsIsACopy(t *testing.T) {
	recorder := &Recorder{}
	ctx := context.Background()

	recorder.Emit(ctx, ItemPurchased{BuyerID: 1})
	first := recorder.Events()
	recorder.Emit(ctx, ItemPurchased{BuyerID: 2})

	require.Len(t, first, 1)
	require.Len(t, recorder.Events(), 2)
}

func TestEventKinds(t *testing.T) {
	require.Equal(t, "item_listed", ItemListed{}.Kind())
	require.Equal(t, "item_purchased", ItemPurchased{}.Kind())
}

func TestLogSinkDefaultsLogger(t *testing.T) {
	// A zero LogSink falls back to the default logger instead of panicking.
	sink := &LogSink{}
	sink.Emit(context.Background(), ItemListed{Name: "figs"})
}
