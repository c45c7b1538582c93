package usecases

import (
	"context"

	"github.com/servora/servora/internal/application/ticket/dto"
)

// Stats counts live tickets per status, zero-filled for every status of the
// type. Counts come from the cache when it holds them.
func (s *LifecycleService) Stats(ctx context.Context) (*dto.StatsDTO, error) {
	cacheable := false
	var generation int64
	if s.stats != nil {
		counts, ok, err := s.stats.Get(ctx, s.cfg.Type)
		if err != nil {
			s.logger.Warnw("failed to read stats cache", "error", err)
		} else if ok {
			return dto.ToStatsDTO(s.cfg.Graph, counts), nil
		}
		if generation, err = s.stats.Generation(ctx, s.cfg.Type); err != nil {
			s.logger.Warnw("failed to read stats cache generation", "error", err)
		} else {
			cacheable = true
		}
	}

	counts, err := s.tickets.CountByStatus(ctx, s.cfg.Type)
	if err != nil {
		s.logger.Errorw("failed to count tickets by status", "error", err)
		return nil, gatewayErr(err, "failed to load ticket stats")
	}

	if cacheable {
		stored, err := s.stats.Set(ctx, s.cfg.Type, generation, counts)
		if err != nil {
			s.logger.Warnw("failed to write stats cache", "error", err)
		} else if !stored {
			s.logger.Debugw("stats changed while counting, not cached", "type", s.cfg.Type.String())
		}
	}
	return dto.ToStatsDTO(s.cfg.Graph, counts), nil
}
