package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/showza/showza-server/internal/notify"
)

// RunReminderSweep finds shows starting one reminder period from now
// (within a 10 minute slice, matching the sweep cadence so shows are picked
// up exactly once) and emails every distinct seat holder.  Recipients fail
// independently: one bad address never stops the rest of the fan-out.
func (s *Service) RunReminderSweep(ctx context.Context) (sent, failed int, err error) {
	now := s.now().UTC()
	windowEnd := now.Add(s.cfg.ReminderEvery)
	windowStart := windowEnd.Add(-10 * time.Minute)

	shows, err := s.store.ShowsStartingBetween(ctx, windowStart, windowEnd)
	if err != nil {
		return 0, 0, fmt.Errorf("list shows in reminder window: %w", err)
	}

	for _, show := range shows {
		holders, err := s.store.HoldersForShows(ctx, []string{show.ID})
		if err != nil {
			return sent, failed, fmt.Errorf("list holders for show %s: %w", show.ID, err)
		}
		if len(holders) == 0 {
			continue
		}
		movie, err := s.store.Movie(ctx, show.MovieID)
		if err != nil {
			return sent, failed, fmt.Errorf("load movie for show %s: %w", show.ID, err)
		}
		users, err := s.store.UsersByIDs(ctx, holders)
		if err != nil {
			return sent, failed, fmt.Errorf("load users for show %s: %w", show.ID, err)
		}
		for _, u := range users {
			subject, body := notify.ReminderEmail(u.Name, movie.Title, show.ShowDateTime)
			if mailErr := s.mailer.Send(notify.Message{To: u.Email, Subject: subject, HTML: body}); mailErr != nil {
				failed++
				s.log.WithError(mailErr).WithFields(logrus.Fields{
					"show_id": show.ID,
					"to":      u.Email,
				}).Warn("reminder send failed")
				continue
			}
			sent++
		}
	}
	return sent, failed, nil
}
