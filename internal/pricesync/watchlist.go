package pricesync

import (
	"context"
)

// notifyWatchlist emails watch-list users about recorded price drops, at most
// once per user and game within the notify cooldown.
func (s *Syncer) notifyWatchlist(ctx context.Context, drops []priceDrop, report *CycleReport) {
	throttle := Throttle{Window: s.notifyCooldown()}
	for _, d := range drops {
		tracking, err := s.Store.UserGamesFindByApp(ctx, d.game.AppID)
		if err != nil {
			s.Logger.Errorf("notifyWatchlist: Error finding watchers of AppID: %d, err: %v", d.game.AppID, err)
			continue
		}
		for _, t := range tracking {
			now := s.now()
			if !throttle.Allow(t.LastNotifiedAt, now) {
				s.Logger.Debugf("notifyWatchlist: UserID: %s was notified about AppID: %d recently, next at %s",
					t.UserID, t.AppID, throttle.NextAllowed(t.LastNotifiedAt, now).Format("2006-01-02 15:04"))
				report.WatchlistThrottled++
				continue
			}
			to, err := s.Store.UserProfileEmails(ctx, t.UserID)
			if err != nil {
				s.Logger.Errorf("notifyWatchlist: Error finding emails for UserID: %s, err: %v", t.UserID, err)
				continue
			}
			if len(to) == 0 {
				continue
			}
			email, err := composeDropEmail(to, d)
			if err != nil {
				s.Logger.Errorf("notifyWatchlist: Error composing email for UserID: %s, err: %v", t.UserID, err)
				continue
			}
			if _, _, err = s.Notifier.MailjetSend(ctx, email); err != nil {
				s.Logger.Errorf("notifyWatchlist: Error sending email to UserID: %s, err: %v", t.UserID, err)
				report.EmailsFailed++
				continue
			}
			report.EmailsSent++
			report.WatchlistNotified++
			if err = s.Store.UserGameNotifiedUpdate(ctx, t.UserID, t.AppID, now); err != nil {
				s.Logger.Errorf("notifyWatchlist: Error updating last notified for UserID: %s, AppID: %d, err: %v",
					t.UserID, t.AppID, err)
			}
		}
	}
}
