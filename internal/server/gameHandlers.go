package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"steamtracker/internal/client"
	"steamtracker/internal/database"
	"steamtracker/internal/misc"
	"steamtracker/internal/model"
)

const defaultHistoryRange = 30 * 24 * time.Hour

func appIDVar(r *http.Request) (int, error) {
	appID, err := strconv.Atoi(mux.Vars(r)["appID"])
	if err != nil || appID <= 0 {
		return 0, errors.Errorf("invalid appID: %s", mux.Vars(r)["appID"])
	}
	return appID, nil
}

func (s Server) gameTrack() http.HandlerFunc {
	type response struct {
		Result string     `json:"result"`
		Game   model.Game `json:"game"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		tid := getTraceContext(r.Context()).traceID
		uc, ok := s.userOrFail(w, r, "gameTrack")
		if !ok {
			return
		}
		appID, err := appIDVar(r)
		if err != nil {
			s.Logger.Debugf("gameTrack: %v, TraceID: %s", err, tid)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		g, err := s.DB.GameFindByAppID(r.Context(), appID)
		if errors.Is(err, model.ErrNotFound) {
			g, err = s.gameAdd(r.Context(), appID)
			if s.steamFail(w, "gameTrack", appID, err, tid) {
				return
			}
		}
		if err != nil {
			s.Logger.Errorf("gameTrack: Error finding or adding AppID: %d, err: %v, TraceID: %s", appID, err, tid)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		res, err := s.DB.UserGameTrack(r.Context(), uc.userID, appID)
		if err != nil {
			s.Logger.Errorf("gameTrack: Error tracking AppID: %d for UserID: %s, err: %v, TraceID: %s", appID, uc.userID, err, tid)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		status := http.StatusOK
		if res == database.TrackCreated {
			status = http.StatusCreated
		}
		s.Logger.Infof("gameTrack: UserID: %s tracked Game: %s, AppID: %d, result: %s, TraceID: %s",
			uc.userID, misc.StringLimit(g.Name, 45), appID, res, tid)
		s.writeJsonResponse(w, response{Result: res.String(), Game: g}, status)
	}
}

// steamFail writes the response for a failed Steam lookup. It reports false
// when err is not a Steam error.
func (s Server) steamFail(w http.ResponseWriter, funcName string, appID int, err error, tid string) bool {
	switch {
	case errors.Is(err, client.ErrSteamAppNotFound):
		s.Logger.Debugf("%s: AppID: %d not found on Steam, TraceID: %s", funcName, appID, tid)
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.Is(err, client.ErrSteamUnavailable):
		s.Logger.Errorf("%s: Steam unavailable for AppID: %d, err: %v, TraceID: %s", funcName, appID, err, tid)
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
	case errors.Is(err, client.ErrSteamInvalidData):
		s.Logger.Errorf("%s: Invalid Steam data for AppID: %d, err: %v, TraceID: %s", funcName, appID, err, tid)
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
	default:
		return false
	}
	return true
}

// gameAdd fetches an app from Steam and stores it in the catalog. Its price
// history starts with the next sync cycle.
func (s Server) gameAdd(ctx context.Context, appID int) (model.Game, error) {
	app, err := s.Client.SteamGetApp(ctx, appID, true)
	if err != nil {
		return model.Game{}, err
	}
	g := model.Game{AppID: appID, Name: app.Name, IsFree: app.IsFree}
	if app.Price != nil {
		g.LastKnownPrice = model.DecimalPtr(app.Price.FinalPrice)
		g.DiscountPercent = model.IntPtr(app.Price.DiscountPercent)
		g.Currency = app.Price.Currency
	}
	return s.DB.GameInsert(ctx, g)
}

// gameTrackedList returns the games on the user's watch-list.
func (s Server) gameTrackedList() http.HandlerFunc {
	type trackedGame struct {
		model.Game
		TrackedAt time.Time `json:"tracked_at"`
	}
	type response []trackedGame
	return func(w http.ResponseWriter, r *http.Request) {
		tid := getTraceContext(r.Context()).traceID
		uc, ok := s.userOrFail(w, r, "gameTrackedList")
		if !ok {
			return
		}
		ts, err := s.DB.UserGamesFindByUser(r.Context(), uc.userID)
		if err != nil {
			s.Logger.Errorf("gameTrackedList: Error finding UserGames for UserID: %s, err: %v, TraceID: %s", uc.userID, err, tid)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		res := response{}
		if len(ts) == 0 {
			s.writeJsonResponse(w, res, http.StatusOK)
			return
		}

		appIDs := make([]int, 0, len(ts))
		for _, t := range ts {
			appIDs = append(appIDs, t.AppID)
		}
		gs, err := s.DB.GamesFindByAppIDs(r.Context(), appIDs)
		if errors.Is(err, model.ErrInvalidData) {
			s.Logger.Warnf("gameTrackedList: Skipping invalid Games for UserID: %s, err: %v, TraceID: %s", uc.userID, err, tid)
			err = nil
		}
		if err != nil {
			s.Logger.Errorf("gameTrackedList: Error finding Games for UserID: %s, err: %v, TraceID: %s", uc.userID, err, tid)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		byAppID := make(map[int]model.Game, len(gs))
		for _, g := range gs {
			byAppID[g.AppID] = g
		}
		for _, t := range ts {
			g, ok := byAppID[t.AppID]
			if !ok {
				s.Logger.Warnf("gameTrackedList: AppID: %d tracked by UserID: %s is not in the catalog, TraceID: %s", t.AppID, uc.userID, tid)
				continue
			}
			res = append(res, trackedGame{Game: g, TrackedAt: t.CreatedAt})
		}
		s.writeJsonResponse(w, res, http.StatusOK)
	}
}

// gamePrice looks up the live Steam price of any app, tracked or not.
func (s Server) gamePrice() http.HandlerFunc {
	type response struct {
		AppID     int              `json:"app_id"`
		Name      string           `json:"name"`
		IsFree    bool             `json:"is_free"`
		Available bool             `json:"available"`
		Price     *model.PriceInfo `json:"price,omitempty"`
		Message   string           `json:"message,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		tid := getTraceContext(r.Context()).traceID
		appID, err := appIDVar(r)
		if err != nil {
			s.Logger.Debugf("gamePrice: %v, TraceID: %s", err, tid)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		app, err := s.Client.SteamGetApp(r.Context(), appID, true)
		if s.steamFail(w, "gamePrice", appID, err, tid) {
			return
		}
		if err != nil {
			s.Logger.Errorf("gamePrice: Error getting AppID: %d, err: %v, TraceID: %s", appID, err, tid)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		res := response{AppID: appID, Name: app.Name, IsFree: app.IsFree, Available: app.Price != nil, Price: app.Price}
		if app.Price == nil {
			res.Message = app.Name + " is either free or unavailable."
		}
		s.writeJsonResponse(w, res, http.StatusOK)
	}
}

func (s Server) gameUntrack() http.HandlerFunc {
	type response struct {
		Success bool `json:"success"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		tid := getTraceContext(r.Context()).traceID
		uc, ok := s.userOrFail(w, r, "gameUntrack")
		if !ok {
			return
		}
		appID, err := appIDVar(r)
		if err != nil {
			s.Logger.Debugf("gameUntrack: %v, TraceID: %s", err, tid)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if err = s.DB.UserGameUntrack(r.Context(), uc.userID, appID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				s.writeJsonResponse(w, response{Success: false}, http.StatusNotFound)
				return
			}
			s.Logger.Errorf("gameUntrack: Error untracking AppID: %d for UserID: %s, err: %v, TraceID: %s", appID, uc.userID, err, tid)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, response{Success: true}, http.StatusOK)
	}
}

// gameHistory returns the price history of a game between the start and end
// query parameters (RFC 3339), newest first. The last 30 days by default.
func (s Server) gameHistory() http.HandlerFunc {
	type response []model.PriceHistoryEntry
	return func(w http.ResponseWriter, r *http.Request) {
		tid := getTraceContext(r.Context()).traceID
		appID, err := appIDVar(r)
		if err != nil {
			s.Logger.Debugf("gameHistory: %v, TraceID: %s", err, tid)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		end := time.Now()
		start := end.Add(-defaultHistoryRange)
		if v := r.URL.Query().Get("end"); v != "" {
			if end, err = time.Parse(time.RFC3339, v); err != nil {
				s.Logger.Debugf("gameHistory: Bad end: %s, TraceID: %s", v, tid)
				http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
				return
			}
		}
		if v := r.URL.Query().Get("start"); v != "" {
			if start, err = time.Parse(time.RFC3339, v); err != nil {
				s.Logger.Debugf("gameHistory: Bad start: %s, TraceID: %s", v, tid)
				http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
				return
			}
		}
		if start.After(end) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		g, err := s.DB.GameFindByAppID(r.Context(), appID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				s.writeJsonResponse(w, response{}, http.StatusNotFound)
				return
			}
			s.Logger.Errorf("gameHistory: Error finding AppID: %d, err: %v, TraceID: %s", appID, err, tid)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		es, err := s.DB.PriceHistoryFindRange(r.Context(), g.ID, start, end)
		if err != nil {
			s.Logger.Errorf("gameHistory: Error getting PriceHistory for AppID: %d, err: %v, TraceID: %s", appID, err, tid)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, append(response{}, es...), http.StatusOK)
	}
}
