package loansvc

import "context"

// SweepOverdue transitions every stale borrowed loan to overdue. Each loan
// is its own transaction; one failure is logged and skipped so the rest of
// the batch still lands.
func (s *service) SweepOverdue(ctx context.Context) (int, error) {
	ids, err := s.loans.ListStaleBorrowed(ctx, s.clk.Now())
	if err != nil {
		return 0, err
	}

	count := 0
	for _, id := range ids {
		applied, err := s.MarkOverdue(ctx, id)
		if err != nil {
			s.log.Warn("overdue sweep: loan transition failed", "loan_id", id, "err", err)
			continue
		}
		if applied {
			count++
		}
	}
	return count, nil
}
