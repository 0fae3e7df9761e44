package eventlog

import (
	"context"
	"time"

	"github.com/ghalamif/PressFlow/internal/domain"
	"github.com/ghalamif/PressFlow/internal/ports"
)

// LogStatus derives collection completion from the event log: a run is
// complete once it has been recorded, or once its stop event is older than
// the stop buffer.
type LogStatus struct {
	Log        ports.EventLog
	StopBuffer time.Duration
	Now        func() time.Time
}

func (s *LogStatus) Status(ctx context.Context, runID string) (ports.RunStatus, error) {
	events, err := s.Log.Events(ctx, runID)
	if err != nil {
		return "", err
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	for _, ev := range events {
		switch ev.Type {
		case domain.EventRecorded:
			return ports.StatusComplete, nil
		case domain.EventStop:
			if now().After(ev.OccurredAt.Add(s.StopBuffer)) {
				return ports.StatusComplete, nil
			}
		}
	}
	return ports.StatusRunning, nil
}

var _ ports.StatusSource = (*LogStatus)(nil)
