package pricesync

import (
	"context"
	"sort"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"steamtracker/internal/model"
)

// dispatchAlerts sends one email per user covering all of that user's fired
// alerts. Alert state only advances after the email was accepted.
func (s *Syncer) dispatchAlerts(ctx context.Context, fired []firing, report *CycleReport) {
	byUser := make(map[string][]firing)
	for _, f := range fired {
		byUser[f.alert.UserID] = append(byUser[f.alert.UserID], f)
	}
	users := maps.Keys(byUser)
	slices.Sort(users)

	deactivate := s.Config.AlertPolicy == model.AlertPolicyOneShot
	for _, userID := range users {
		fs := byUser[userID]
		sort.SliceStable(fs, func(i, j int) bool { return fs[i].game.Name < fs[j].game.Name })

		to, err := s.Store.UserProfileEmails(ctx, userID)
		if err != nil {
			s.Logger.Errorf("dispatchAlerts: Error finding emails for UserID: %s, err: %v", userID, err)
			continue
		}
		if len(to) == 0 {
			s.Logger.Warnf("dispatchAlerts: No email for UserID: %s, %d alert(s) left pending", userID, len(fs))
			continue
		}

		email, err := composeAlertEmail(to, fs)
		if err != nil {
			s.Logger.Errorf("dispatchAlerts: Error composing email for UserID: %s, err: %v", userID, err)
			continue
		}
		if _, _, err = s.Notifier.MailjetSend(ctx, email); err != nil {
			s.Logger.Errorf("dispatchAlerts: Error sending email to UserID: %s, err: %v", userID, err)
			report.EmailsFailed++
			continue
		}
		report.EmailsSent++

		now := s.now()
		for _, f := range fs {
			if err = s.Store.AlertTrigger(ctx, f.alert.ID, f.price, now, deactivate); err != nil {
				s.Logger.Errorf("dispatchAlerts: Error marking AlertID: %s as triggered, err: %v", f.alert.ID, err)
				continue
			}
			report.AlertsFired++
		}
		s.Logger.Infof("dispatchAlerts: Notified UserID: %s of %d alert(s)", userID, len(fs))
	}
}
