package pricesync

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"steamtracker/internal/client"
	lg "steamtracker/internal/logger"
	"steamtracker/internal/model"
)

var errFake = errors.New("fake failure")

type fakeStore struct {
	mu       sync.Mutex
	games    []model.Game
	history  map[string][]model.PriceHistoryEntry
	alerts   []model.Alert
	tracking []model.UserGameTracking
	emails   map[string][]string

	failGamesFindAll   bool
	invalidGameRows    int
	invalidAlertRows   int
	failCatalogUpdate  bool
	failHistoryInsert  map[string]bool
	gamesFindAllCalls  int
	catalogUpdateCalls int
	nextID             int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		history:           make(map[string][]model.PriceHistoryEntry),
		emails:            make(map[string][]string),
		failHistoryInsert: make(map[string]bool),
	}
}

func (f *fakeStore) addGame(appID int, name string, price string, discount int) model.Game {
	g := model.Game{ID: "g" + strconv.Itoa(appID), AppID: appID, Name: name, Currency: "USD"}
	if price != "" {
		g.LastKnownPrice = model.DecimalPtr(decimal.RequireFromString(price))
		g.DiscountPercent = model.IntPtr(discount)
	}
	f.games = append(f.games, g)
	return g
}

func (f *fakeStore) addHistory(gameID string, price string, discount int, ts time.Time) {
	f.history[gameID] = append(f.history[gameID], model.PriceHistoryEntry{
		ID:              fmt.Sprintf("h%d", len(f.history[gameID])),
		GameID:          gameID,
		Timestamp:       ts,
		InitialPrice:    decimal.RequireFromString(price),
		FinalPrice:      decimal.RequireFromString(price),
		DiscountPercent: model.IntPtr(discount),
		Currency:        "USD",
	})
}

func (f *fakeStore) addAlert(a model.Alert) {
	f.alerts = append(f.alerts, a)
}

func (f *fakeStore) game(id string) model.Game {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.games {
		if g.ID == id {
			return g
		}
	}
	return model.Game{}
}

func (f *fakeStore) historyOf(gameID string) []model.PriceHistoryEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.PriceHistoryEntry(nil), f.history[gameID]...)
}

func (f *fakeStore) alert(id string) model.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.alerts {
		if a.ID == id {
			return a
		}
	}
	return model.Alert{}
}

func (f *fakeStore) GamesFindAll(_ context.Context) ([]model.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gamesFindAllCalls++
	if f.failGamesFindAll {
		return nil, errFake
	}
	gs := append([]model.Game(nil), f.games...)
	if f.invalidGameRows > 0 {
		return gs, errors.Wrapf(model.ErrInvalidData, "skipped %d Games", f.invalidGameRows)
	}
	return gs, nil
}

func (f *fakeStore) GamePriceUpdate(_ context.Context, gameID string, price decimal.Decimal, discountPercent *int, currency string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.catalogUpdateCalls++
	if f.failCatalogUpdate {
		return errFake
	}
	for i := range f.games {
		if f.games[i].ID == gameID {
			f.games[i].LastKnownPrice = model.DecimalPtr(price)
			f.games[i].DiscountPercent = discountPercent
			f.games[i].Currency = currency
			return nil
		}
	}
	return errors.Wrap(model.ErrNotFound, gameID)
}

func (f *fakeStore) PriceHistoryFindLatest(_ context.Context, gameID string) (model.PriceHistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.history[gameID]
	if len(h) == 0 {
		return model.PriceHistoryEntry{}, errors.Wrapf(model.ErrNotFound, "no history for %s", gameID)
	}
	latest := h[0]
	for _, e := range h[1:] {
		if !e.Timestamp.Before(latest.Timestamp) {
			latest = e
		}
	}
	return latest, nil
}

func (f *fakeStore) PriceHistoryInsert(_ context.Context, e model.PriceHistoryEntry) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failHistoryInsert[e.GameID] {
		return "", errFake
	}
	f.nextID++
	e.ID = fmt.Sprintf("new%d", f.nextID)
	f.history[e.GameID] = append(f.history[e.GameID], e)
	return e.ID, nil
}

func (f *fakeStore) AlertsFindActive(_ context.Context) ([]model.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []model.Alert
	for _, a := range f.alerts {
		if a.IsActive {
			res = append(res, a)
		}
	}
	if f.invalidAlertRows > 0 {
		return res, errors.Wrapf(model.ErrInvalidData, "skipped %d Alerts", f.invalidAlertRows)
	}
	return res, nil
}

func (f *fakeStore) updateAlert(id string, fn func(a *model.Alert)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.alerts {
		if f.alerts[i].ID == id {
			fn(&f.alerts[i])
			return nil
		}
	}
	return errors.Wrap(model.ErrNotFound, id)
}

func (f *fakeStore) AlertCheckedPriceUpdate(_ context.Context, alertID string, price decimal.Decimal) error {
	return f.updateAlert(alertID, func(a *model.Alert) { a.LastCheckedPrice = model.DecimalPtr(price) })
}

func (f *fakeStore) AlertTrigger(_ context.Context, alertID string, price decimal.Decimal, at time.Time, deactivate bool) error {
	return f.updateAlert(alertID, func(a *model.Alert) {
		a.LastCheckedPrice = model.DecimalPtr(price)
		a.TriggeredAt = &at
		if deactivate {
			a.IsActive = false
		}
	})
}

func (f *fakeStore) AlertTriggerReset(_ context.Context, alertID string) error {
	return f.updateAlert(alertID, func(a *model.Alert) { a.TriggeredAt = nil })
}

func (f *fakeStore) UserGamesFindByApp(_ context.Context, appID int) ([]model.UserGameTracking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []model.UserGameTracking
	for _, t := range f.tracking {
		if t.AppID == appID {
			res = append(res, t)
		}
	}
	return res, nil
}

func (f *fakeStore) UserGameNotifiedUpdate(_ context.Context, userID string, appID int, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tracking {
		if f.tracking[i].UserID == userID && f.tracking[i].AppID == appID {
			f.tracking[i].LastNotifiedAt = &at
			return nil
		}
	}
	return errors.Wrap(model.ErrNotFound, userID)
}

func (f *fakeStore) UserProfileEmails(_ context.Context, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.emails[userID], nil
}

type fakeQuote struct {
	price    model.PriceInfo
	ok       bool
	err      error
	duration time.Duration
}

type fakeSource struct {
	mu     sync.Mutex
	quotes map[int]fakeQuote
	calls  map[int]int
	// inFlight and maxInFlight track concurrent calls.
	inFlight    int
	maxInFlight int
	// started receives the appID of every call when set.
	started chan int
}

func newFakeSource() *fakeSource {
	return &fakeSource{quotes: make(map[int]fakeQuote), calls: make(map[int]int)}
}

func (s *fakeSource) set(appID int, price string, discount int) {
	p := decimal.RequireFromString(price)
	initial := p
	if discount > 0 {
		initial = p.Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(int64(100 - discount))).Round(2)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[appID] = fakeQuote{
		price: model.PriceInfo{InitialPrice: initial, FinalPrice: p, DiscountPercent: discount, Currency: "USD"},
		ok:    true,
	}
}

func (s *fakeSource) setQuote(appID int, q fakeQuote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[appID] = q
}

func (s *fakeSource) callCount(appID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[appID]
}

func (s *fakeSource) SteamGetPrice(ctx context.Context, appID int) (model.PriceInfo, bool, error) {
	s.mu.Lock()
	s.calls[appID]++
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	q := s.quotes[appID]
	started := s.started
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if started != nil {
		started <- appID
	}
	if q.duration > 0 {
		select {
		case <-time.After(q.duration):
		case <-ctx.Done():
			return model.PriceInfo{}, false, ctx.Err()
		}
	}
	return q.price, q.ok, q.err
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []client.Email
	// failFor makes every email addressed to one of these recipients fail.
	failFor map[string]bool
}

func (n *fakeNotifier) MailjetSend(_ context.Context, e client.Email) (int, client.MailjetSendResponse, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, to := range e.To {
		if n.failFor[to] {
			return 500, client.MailjetSendResponse{}, errors.Wrap(client.ErrMailjet, "fake rejection")
		}
	}
	n.sent = append(n.sent, e)
	return 200, client.MailjetSendResponse{}, nil
}

func (n *fakeNotifier) sentTo(addr string) []client.Email {
	n.mu.Lock()
	defer n.mu.Unlock()
	var res []client.Email
	for _, e := range n.sent {
		for _, to := range e.To {
			if to == addr {
				res = append(res, e)
				break
			}
		}
	}
	return res
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	store    *fakeStore
	source   *fakeSource
	notifier *fakeNotifier
	clock    *fakeClock
	syncer   *Syncer
}

func newFixture(policy model.AlertPolicy) *fixture {
	f := &fixture{
		store:    newFakeStore(),
		source:   newFakeSource(),
		notifier: &fakeNotifier{failFor: make(map[string]bool)},
		clock:    &fakeClock{t: time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)},
	}
	f.syncer = &Syncer{
		Store:    f.store,
		Source:   f.source,
		Notifier: f.notifier,
		Logger:   lg.NewLogger(lg.LevelOff, io.Discard),
		Config: Config{
			Workers:        1,
			FetchTimeout:   time.Second,
			NotifyCooldown: 24 * time.Hour,
			AlertPolicy:    policy,
		},
		Now: f.clock.Now,
	}
	return f
}
