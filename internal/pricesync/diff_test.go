package pricesync

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"steamtracker/internal/client"
	"steamtracker/internal/model"
)

func TestEvaluateDiff(t *testing.T) {
	now := time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)
	game := model.Game{
		ID:              "g1",
		AppID:           1,
		LastKnownPrice:  model.DecimalPtr(decimal.RequireFromString("9.99")),
		DiscountPercent: model.IntPtr(0),
	}
	entry := func(price string, discount *int) *model.PriceHistoryEntry {
		return &model.PriceHistoryEntry{GameID: "g1", FinalPrice: decimal.RequireFromString(price), DiscountPercent: discount}
	}
	fetched := func(price string, discount int) model.PriceInfo {
		return model.PriceInfo{FinalPrice: decimal.RequireFromString(price), DiscountPercent: discount, Currency: "USD"}
	}

	tests := []struct {
		name    string
		latest  *model.PriceHistoryEntry
		fetched model.PriceInfo
		changed bool
	}{
		{"no history", nil, fetched("59.99", 0), true},
		{"same price and discount", entry("59.99", model.IntPtr(0)), fetched("59.99", 0), false},
		{"equal decimals with different scale", entry("59.990", model.IntPtr(0)), fetched("59.99", 0), false},
		{"price differs", entry("59.99", model.IntPtr(0)), fetched("39.99", 0), true},
		{"discount differs", entry("59.99", model.IntPtr(0)), fetched("59.99", 10), true},
		{"missing discount in history", entry("59.99", nil), fetched("59.99", 0), true},
		// The catalog says 9.99 but only history is compared.
		{"catalog ignored", entry("59.99", model.IntPtr(0)), fetched("59.99", 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := EvaluateDiff(game, tt.latest, tt.fetched, now)
			if d.Changed != tt.changed {
				t.Fatalf("Changed = %v, want %v", d.Changed, tt.changed)
			}
			if !d.Changed {
				return
			}
			if d.Entry.GameID != "g1" || !d.Entry.Timestamp.Equal(now) {
				t.Errorf("unexpected entry: %+v", d.Entry)
			}
			if !d.Entry.FinalPrice.Equal(tt.fetched.FinalPrice) || *d.Entry.DiscountPercent != tt.fetched.DiscountPercent {
				t.Errorf("entry price = %s/%d, want %s/%d", d.Entry.FinalPrice, *d.Entry.DiscountPercent,
					tt.fetched.FinalPrice, tt.fetched.DiscountPercent)
			}
		})
	}
}

func TestRunCycleIsIdempotent(t *testing.T) {
	f := newFixture(model.AlertPolicyRearm)
	g := f.store.addGame(620, "Portal 2", "", 0)
	f.source.set(620, "9.99", 0)

	for i := 0; i < 3; i++ {
		if _, err := f.syncer.RunCycle(context.Background()); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
		f.clock.Advance(time.Hour)
	}

	if h := f.store.historyOf(g.ID); len(h) != 1 {
		t.Fatalf("history has %d entries, want 1", len(h))
	}
	got := f.store.game(g.ID)
	if got.LastKnownPrice == nil || !got.LastKnownPrice.Equal(decimal.RequireFromString("9.99")) {
		t.Errorf("catalog price = %v, want 9.99", got.LastKnownPrice)
	}
	if got.DiscountPercent == nil || *got.DiscountPercent != 0 {
		t.Errorf("catalog discount = %v, want 0", got.DiscountPercent)
	}
}

func TestRunCycleHistoryIsMonotonic(t *testing.T) {
	f := newFixture(model.AlertPolicyRearm)
	g := f.store.addGame(1145360, "Hades", "", 0)

	prices := []struct {
		price    string
		discount int
	}{
		{"24.99", 0}, {"24.99", 0}, {"12.49", 50}, {"12.49", 50}, {"24.99", 0}, {"18.74", 25},
	}
	for _, p := range prices {
		f.source.set(g.AppID, p.price, p.discount)
		if _, err := f.syncer.RunCycle(context.Background()); err != nil {
			t.Fatal(err)
		}
		f.clock.Advance(30 * time.Minute)
	}

	h := f.store.historyOf(g.ID)
	if len(h) != 4 {
		t.Fatalf("history has %d entries, want 4", len(h))
	}
	for i := 1; i < len(h); i++ {
		if !h[i].Timestamp.After(h[i-1].Timestamp) {
			t.Errorf("entry %d at %s is not after %s", i, h[i].Timestamp, h[i-1].Timestamp)
		}
		if h[i].FinalPrice.Equal(h[i-1].FinalPrice) && *h[i].DiscountPercent == *h[i-1].DiscountPercent {
			t.Errorf("entry %d repeats the previous price", i)
		}
	}
	latest := h[len(h)-1]
	if !latest.FinalPrice.Equal(decimal.RequireFromString("18.74")) || *latest.DiscountPercent != 25 {
		t.Errorf("latest entry = %s/%d", latest.FinalPrice, *latest.DiscountPercent)
	}
}

func TestRunCycleRestoresStaleCatalog(t *testing.T) {
	f := newFixture(model.AlertPolicyRearm)
	g := f.store.addGame(400, "Portal", "29.99", 0)
	f.store.addHistory(g.ID, "19.99", 0, f.clock.Now().Add(-time.Hour))
	f.source.set(400, "19.99", 0)

	report, err := f.syncer.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Unchanged != 1 || report.Healed != 1 {
		t.Errorf("report = %+v, want 1 unchanged and healed", report)
	}
	if h := f.store.historyOf(g.ID); len(h) != 1 {
		t.Errorf("history has %d entries, want 1", len(h))
	}
	if got := f.store.game(g.ID); !got.LastKnownPrice.Equal(decimal.RequireFromString("19.99")) {
		t.Errorf("catalog price = %s, want 19.99", got.LastKnownPrice)
	}
}

func TestRunCycleSkipsGamesWithoutPrice(t *testing.T) {
	f := newFixture(model.AlertPolicyRearm)
	g := f.store.addGame(70, "Half-Life", "9.99", 0)
	f.store.addHistory(g.ID, "9.99", 0, f.clock.Now().Add(-time.Hour))
	f.source.setQuote(70, fakeQuote{ok: false})

	report, err := f.syncer.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.NoPrice != 1 {
		t.Errorf("NoPrice = %d, want 1", report.NoPrice)
	}
	if h := f.store.historyOf(g.ID); len(h) != 1 {
		t.Errorf("history has %d entries, want 1", len(h))
	}
	if f.store.catalogUpdateCalls != 0 {
		t.Errorf("catalog updated %d times, want 0", f.store.catalogUpdateCalls)
	}
}

func TestRunCycleSkipsDelistedGames(t *testing.T) {
	f := newFixture(model.AlertPolicyRearm)
	g := f.store.addGame(80, "Delisted", "14.99", 0)
	f.store.addHistory(g.ID, "14.99", 0, f.clock.Now().Add(-time.Hour))
	f.source.setQuote(80, fakeQuote{err: errors.Wrap(client.ErrSteamAppNotFound, "AppID: 80")})

	report, err := f.syncer.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.NoPrice != 1 || report.Failed != 0 {
		t.Errorf("report = %+v, want the delisted game counted as no price", report)
	}
	if h := f.store.historyOf(g.ID); len(h) != 1 {
		t.Errorf("history has %d entries, want 1", len(h))
	}
}

func TestRunCycleIsolatesGameFailures(t *testing.T) {
	f := newFixture(model.AlertPolicyRearm)
	broken := f.store.addGame(1, "Broken", "", 0)
	failing := f.store.addGame(2, "Failing Insert", "", 0)
	ok := f.store.addGame(3, "Fine", "", 0)
	f.source.setQuote(1, fakeQuote{err: errors.New("steam unavailable")})
	f.source.set(2, "4.99", 0)
	f.source.set(3, "7.99", 0)
	f.store.failHistoryInsert[failing.ID] = true

	report, err := f.syncer.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("per-game failures must not fail the cycle: %v", err)
	}
	if report.Failed != 2 || report.Changed != 1 {
		t.Errorf("report = %+v, want 2 failed and 1 changed", report)
	}
	if h := f.store.historyOf(broken.ID); len(h) != 0 {
		t.Errorf("broken game has %d history entries", len(h))
	}
	if got := f.store.game(failing.ID); got.LastKnownPrice != nil {
		t.Errorf("catalog updated although history insert failed: %s", got.LastKnownPrice)
	}
	if h := f.store.historyOf(ok.ID); len(h) != 1 {
		t.Errorf("healthy game has %d history entries, want 1", len(h))
	}
}

func TestRunCycleToleratesCatalogWriteFailure(t *testing.T) {
	f := newFixture(model.AlertPolicyRearm)
	g := f.store.addGame(10, "Counter-Strike", "", 0)
	f.source.set(10, "9.99", 0)
	f.store.failCatalogUpdate = true

	if _, err := f.syncer.RunCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if h := f.store.historyOf(g.ID); len(h) != 1 {
		t.Fatalf("history has %d entries, want 1", len(h))
	}

	// The next cycle sees no change and restores the catalog from history.
	f.store.failCatalogUpdate = false
	f.clock.Advance(time.Hour)
	report, err := f.syncer.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Healed != 1 {
		t.Errorf("Healed = %d, want 1", report.Healed)
	}
	if got := f.store.game(g.ID); got.LastKnownPrice == nil || !got.LastKnownPrice.Equal(decimal.RequireFromString("9.99")) {
		t.Errorf("catalog price = %v, want 9.99", got.LastKnownPrice)
	}
}

func TestRunCycleAbortsWhenCatalogUnreadable(t *testing.T) {
	f := newFixture(model.AlertPolicyRearm)
	f.store.addGame(10, "Counter-Strike", "", 0)
	f.source.set(10, "9.99", 0)
	f.store.failGamesFindAll = true

	if _, err := f.syncer.RunCycle(context.Background()); !errors.Is(err, errFake) {
		t.Fatalf("err = %v, want %v", err, errFake)
	}
	if n := f.source.callCount(10); n != 0 {
		t.Errorf("price source called %d times", n)
	}
}

func TestRunCycleSkipsInvalidCatalogRows(t *testing.T) {
	f := newFixture(model.AlertPolicyRearm)
	g := f.store.addGame(10, "Counter-Strike", "", 0)
	f.source.set(10, "9.99", 0)
	f.store.invalidGameRows = 1

	report, err := f.syncer.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Games != 1 || report.Changed != 1 {
		t.Errorf("report = %+v, want the valid game synced", report)
	}
	if h := f.store.historyOf(g.ID); len(h) != 1 {
		t.Errorf("history has %d entries, want 1", len(h))
	}
}
