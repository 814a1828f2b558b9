package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"steamtracker/internal/database"
	"steamtracker/internal/model"
)

var maxDiscountTarget = decimal.NewFromInt(100)

func (s Server) alertCreate() http.HandlerFunc {
	type request struct {
		AppID       int             `json:"app_id"`
		AlertType   string          `json:"alert_type"`
		TargetValue decimal.Decimal `json:"target_value"`
	}
	type response struct {
		Result string       `json:"result"`
		Alert  *model.Alert `json:"alert,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		tid := getTraceContext(r.Context()).traceID
		uc, ok := s.userOrFail(w, r, "alertCreate")
		if !ok {
			return
		}
		req := request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("alertCreate: Error decoding JSON, err: %v, TraceID: %s", err, tid)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		t, err := model.ParseAlertType(req.AlertType)
		if err != nil {
			s.Logger.Debugf("alertCreate: %v, TraceID: %s", err, tid)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if req.TargetValue.IsNegative() ||
			(t == model.AlertPercentageDiscount && (!req.TargetValue.IsPositive() || req.TargetValue.GreaterThan(maxDiscountTarget))) {
			s.Logger.Debugf("alertCreate: Bad target_value: %s for %s, TraceID: %s", req.TargetValue, t, tid)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		g, err := s.DB.GameFindByAppID(r.Context(), req.AppID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				s.Logger.Debugf("alertCreate: AppID: %d is not tracked, TraceID: %s", req.AppID, tid)
				http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
				return
			}
			s.Logger.Errorf("alertCreate: Error finding AppID: %d, err: %v, TraceID: %s", req.AppID, err, tid)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		a, res, err := s.DB.AlertInsert(r.Context(), model.Alert{
			UserID:      uc.userID,
			GameID:      g.ID,
			Type:        t,
			TargetValue: req.TargetValue,
		})
		if err != nil {
			s.Logger.Errorf("alertCreate: Error inserting Alert for UserID: %s, AppID: %d, err: %v, TraceID: %s",
				uc.userID, req.AppID, err, tid)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if res == database.AlertAlreadyExists {
			s.writeJsonResponse(w, response{Result: res.String()}, http.StatusConflict)
			return
		}
		s.Logger.Infof("alertCreate: UserID: %s created %s Alert: %s for AppID: %d, TraceID: %s", uc.userID, t, a.ID, req.AppID, tid)
		s.writeJsonResponse(w, response{Result: res.String(), Alert: &a}, http.StatusCreated)
	}
}

func (s Server) alertGetAll() http.HandlerFunc {
	type response []model.Alert
	return func(w http.ResponseWriter, r *http.Request) {
		uc, ok := s.userOrFail(w, r, "alertGetAll")
		if !ok {
			return
		}
		as, err := s.DB.AlertsFindByUser(r.Context(), uc.userID)
		if errors.Is(err, model.ErrInvalidData) {
			s.Logger.Warnf("alertGetAll: Skipping invalid Alerts for UserID: %s, err: %v, TraceID: %s",
				uc.userID, err, getTraceContext(r.Context()).traceID)
			err = nil
		}
		if err != nil {
			s.Logger.Errorf("alertGetAll: Error finding Alerts for UserID: %s, err: %v, TraceID: %s",
				uc.userID, err, getTraceContext(r.Context()).traceID)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, append(response{}, as...), http.StatusOK)
	}
}

func (s Server) alertToggle() http.HandlerFunc {
	type request struct {
		IsActive bool `json:"is_active"`
	}
	type response struct {
		Result string `json:"result"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		tid := getTraceContext(r.Context()).traceID
		uc, ok := s.userOrFail(w, r, "alertToggle")
		if !ok {
			return
		}
		req := request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("alertToggle: Error decoding JSON, err: %v, TraceID: %s", err, tid)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		alertID := mux.Vars(r)["alertID"]
		res, err := s.DB.AlertSetActive(r.Context(), alertID, uc.userID, req.IsActive)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
				return
			}
			s.Logger.Errorf("alertToggle: Error toggling AlertID: %s, err: %v, TraceID: %s", alertID, err, tid)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if res == database.AlertAlreadyExists {
			s.writeJsonResponse(w, response{Result: res.String()}, http.StatusConflict)
			return
		}
		s.writeJsonResponse(w, response{Result: "ok"}, http.StatusOK)
	}
}

func (s Server) alertDelete() http.HandlerFunc {
	type response struct {
		Success bool `json:"success"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		uc, ok := s.userOrFail(w, r, "alertDelete")
		if !ok {
			return
		}
		alertID := mux.Vars(r)["alertID"]
		if err := s.DB.AlertDelete(r.Context(), alertID, uc.userID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				s.writeJsonResponse(w, response{Success: false}, http.StatusNotFound)
				return
			}
			s.Logger.Errorf("alertDelete: Error deleting AlertID: %s, err: %v, TraceID: %s",
				alertID, err, getTraceContext(r.Context()).traceID)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, response{Success: true}, http.StatusOK)
	}
}
