package server

import (
	"context"
	"net/http"
)

// adminSync runs a sync cycle and returns its report. The cycle keeps running
// when the client disconnects.
func (s Server) adminSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tid := getTraceContext(r.Context()).traceID
		uc, ok := s.userOrFail(w, r, "adminSync")
		if !ok {
			return
		}
		s.Logger.Infof("adminSync: Sync requested by UserID: %s, TraceID: %s", uc.userID, tid)
		report, err := s.Syncer.RunCycle(context.WithoutCancel(r.Context()))
		if err != nil {
			s.Logger.Errorf("adminSync: Cycle failed, err: %v, TraceID: %s", err, tid)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, report, http.StatusOK)
	}
}
