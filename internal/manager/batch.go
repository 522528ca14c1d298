package manager

import (
	"context"
	"fmt"
	"time"

	"notifyd/internal/eventbus"
	logx "notifyd/pkg/logx"
)

// SendBatch dispatches every request in order, pacing members through the
// configured limiter. A member counts as succeeded when Send returned a
// non-empty id. Returns the batch id.
func (s *Service) SendBatch(ctx context.Context, batchID string, reqs []SendRequest) string {
	if batchID == "" {
		batchID = fmt.Sprintf("batch:%d", time.Now().UnixNano())
	}

	s.mu.Lock()
	lim := s.limiter
	s.mu.Unlock()

	s.groups.StartBatch(batchID, len(reqs))
	for _, req := range reqs {
		if lim != nil {
			if err := lim.Wait(ctx); err != nil {
				s.groups.BatchAttempt(batchID, "", false)
				continue
			}
		}
		id := s.Send(ctx, req)
		s.groups.BatchAttempt(batchID, id, id != "")
	}

	success, failed := s.groups.FinishBatch(batchID)
	s.log.Info("batch completed",
		logx.String("batch", batchID), logx.Int("success", success), logx.Int("failed", failed))
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{
			Type: eventbus.EventBatchDone,
			Data: eventbus.BatchDoneEvent{ID: batchID, Success: success, Failed: failed},
		})
	}
	return batchID
}
