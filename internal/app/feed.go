package service

import (
	"context"

	"github.com/okian/pagecue/internal/adapters/mq/queue"
	"github.com/okian/pagecue/internal/domain/model"
	"github.com/okian/pagecue/pkg/metrics"
)

// Feed streams page events until ctx is done, the returned cancel is called
// or the service stops. A reader that falls behind loses events rather than
// stalling the presenter.
func (s *Service) Feed(ctx context.Context) (<-chan model.PageEvent, func()) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(s.feedCapacity))

	s.mu.Lock()
	s.feeds[q] = struct{}{}
	metrics.UpdateFeedSubscribers(len(s.feeds))
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closeFeedLocked(q)
	}
	return q.Dequeue(ctx), cancel
}

func (s *Service) closeFeedLocked(q *queue.InMemoryQueue) {
	if _, ok := s.feeds[q]; !ok {
		return
	}
	delete(s.feeds, q)
	_ = q.Close()
	metrics.UpdateFeedSubscribers(len(s.feeds))
}

func (s *Service) closeFeedsLocked() {
	for q := range s.feeds {
		s.closeFeedLocked(q)
	}
}
