package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/danvolkens/haven-hub-api/internal/dto"
	"github.com/danvolkens/haven-hub-api/internal/events"
	"github.com/danvolkens/haven-hub-api/internal/models"
	appErrors "github.com/danvolkens/haven-hub-api/pkg/errors"
	"github.com/danvolkens/haven-hub-api/pkg/export"
)

const (
	winnersPerCollection = 10
	winnerFlagRank       = 3
	topActivityEntries   = 5
)

type winnerPinStore interface {
	ListPublishedWithEngagement(ctx context.Context, accountID string, ids []string) ([]models.Pin, error)
	SetWinnerFlags(ctx context.Context, accountID string, winnerIDs []string) error
}

type winnerStore interface {
	ReplaceForAccount(ctx context.Context, accountID string, winners []models.Winner) error
	ListByAccount(ctx context.Context, accountID string) ([]models.Winner, error)
}

// WinnerService recomputes the engagement ranking per collection and keeps the
// winner flags on pins consistent with it.
type WinnerService struct {
	pins     winnerPinStore
	winners  winnerStore
	activity activityLogger
	emitter  eventEmitter
	cache    *redis.Client
	cacheTTL time.Duration
	metrics  *MetricsService
	logger   *zap.Logger
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
}

// NewWinnerService constructs the service. The cache client may be nil.
func NewWinnerService(
	pins winnerPinStore,
	winners winnerStore,
	activity activityLogger,
	emitter eventEmitter,
	cache *redis.Client,
	cacheTTL time.Duration,
	metrics *MetricsService,
	logger *zap.Logger,
) *WinnerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &WinnerService{
		pins:     pins,
		winners:  winners,
		activity: activity,
		emitter:  emitter,
		cache:    cache,
		cacheTTL: cacheTTL,
		metrics:  metrics,
		logger:   logger,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
	}
}

// score weights saves over clicks over raw engagement rate. Deterministic by
// construction so reruns over unchanged metrics produce identical rankings.
func score(pin models.Pin) float64 {
	return float64(pin.Saves)*4 + float64(pin.Clicks)*3.5 + pin.EngagementRate*250
}

// Refresh recomputes the ranking for an account. A non-empty pinIDs narrows
// the analyzed set; the stored ranking is still replaced wholesale so stale
// rows never survive a partial run.
func (s *WinnerService) Refresh(ctx context.Context, accountID string, pinIDs []string) (*dto.WinnerRefreshResponse, error) {
	pins, err := s.pins.ListPublishedWithEngagement(ctx, accountID, pinIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load published pins")
	}

	byCollection := make(map[models.Collection][]models.Pin)
	for _, pin := range pins {
		collection := pin.Collection
		if collection == "" {
			collection = models.CollectionUncategorized
		}
		byCollection[collection] = append(byCollection[collection], pin)
	}

	collections := make([]models.Collection, 0, len(byCollection))
	for collection := range byCollection {
		collections = append(collections, collection)
	}
	sort.Slice(collections, func(i, j int) bool { return collections[i] < collections[j] })

	now := time.Now().UTC()
	winners := make([]models.Winner, 0, len(byCollection)*winnersPerCollection)
	flagged := make([]string, 0)
	for _, collection := range collections {
		group := byCollection[collection]
		sort.Slice(group, func(i, j int) bool {
			si, sj := score(group[i]), score(group[j])
			if si != sj {
				return si > sj
			}
			return group[i].ID < group[j].ID
		})
		if len(group) > winnersPerCollection {
			group = group[:winnersPerCollection]
		}
		for i, pin := range group {
			metrics, _ := json.Marshal(models.WinnerMetrics{
				Impressions:    pin.Impressions,
				Saves:          pin.Saves,
				Clicks:         pin.Clicks,
				EngagementRate: pin.EngagementRate,
			})
			winners = append(winners, models.Winner{
				AccountID:    accountID,
				PinID:        pin.ID,
				Collection:   collection,
				Rank:         i + 1,
				Score:        score(pin),
				Metrics:      metrics,
				CalculatedAt: now,
			})
			if i < winnerFlagRank {
				flagged = append(flagged, pin.ID)
			}
		}
	}

	if err := s.winners.ReplaceForAccount(ctx, accountID, winners); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace winners")
	}
	if err := s.pins.SetWinnerFlags(ctx, accountID, flagged); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update winner flags")
	}
	s.invalidateCache(ctx, accountID)
	s.metrics.RecordWinnerRefresh(len(winners))

	s.logTopWinners(ctx, accountID, winners, len(pins))
	s.emitter.Publish(ctx, events.Event{
		Type:      events.TypeWinnersRefreshed,
		AccountID: accountID,
		Payload:   map[string]interface{}{"winners": len(winners), "collections": len(byCollection)},
	})

	return &dto.WinnerRefreshResponse{
		Evaluated:   len(pins),
		Winners:     len(winners),
		Collections: len(byCollection),
		RefreshedAt: now,
	}, nil
}

// List returns the current ranking, served from cache when fresh.
func (s *WinnerService) List(ctx context.Context, accountID string) ([]models.Winner, error) {
	cacheKey := winnersCacheKey(accountID)
	if s.cache != nil {
		start := time.Now()
		raw, err := s.cache.Get(ctx, cacheKey).Bytes()
		s.metrics.RecordCacheOperation(err == nil, time.Since(start))
		if err == nil {
			var cached []models.Winner
			if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
				return cached, nil
			}
		}
	}

	winners, err := s.winners.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list winners")
	}

	if s.cache != nil {
		if raw, err := json.Marshal(winners); err == nil {
			if err := s.cache.Set(ctx, cacheKey, raw, s.cacheTTL).Err(); err != nil {
				s.logger.Sugar().Warnw("winner cache write failed", "account_id", accountID, "error", err)
			}
		}
	}
	return winners, nil
}

// Export renders the current ranking as CSV or PDF bytes.
func (s *WinnerService) Export(ctx context.Context, accountID, format string) ([]byte, string, error) {
	winners, err := s.List(ctx, accountID)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Collection", "Rank", "Pin ID", "Score", "Saves", "Clicks", "Engagement Rate", "Calculated At"},
	}
	for _, w := range winners {
		var metrics models.WinnerMetrics
		_ = json.Unmarshal(w.Metrics, &metrics)
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Collection":      string(w.Collection),
			"Rank":            fmt.Sprintf("%d", w.Rank),
			"Pin ID":          w.PinID,
			"Score":           fmt.Sprintf("%.1f", w.Score),
			"Saves":           fmt.Sprintf("%d", metrics.Saves),
			"Clicks":          fmt.Sprintf("%d", metrics.Clicks),
			"Engagement Rate": fmt.Sprintf("%.3f", metrics.EngagementRate),
			"Calculated At":   w.CalculatedAt.Format(time.RFC3339),
		})
	}

	switch format {
	case "", "csv":
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "csv export failed")
		}
		return data, "text/csv", nil
	case "pdf":
		data, err := s.pdf.Render(dataset, "Top Performing Pins")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "pdf export failed")
		}
		return data, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func (s *WinnerService) logTopWinners(ctx context.Context, accountID string, winners []models.Winner, analyzed int) {
	top := make([]models.Winner, len(winners))
	copy(top, winners)
	sort.Slice(top, func(i, j int) bool { return top[i].Score > top[j].Score })
	if len(top) > topActivityEntries {
		top = top[:topActivityEntries]
	}

	entries := make([]map[string]interface{}, 0, len(top))
	for _, w := range top {
		entries = append(entries, map[string]interface{}{
			"pinId": w.PinID, "collection": w.Collection, "rank": w.Rank, "score": w.Score,
		})
	}
	details, _ := json.Marshal(map[string]interface{}{"analyzed": analyzed, "total": len(winners), "top": entries})
	if err := s.activity.Log(ctx, &models.ActivityLog{
		AccountID:  accountID,
		ActionType: "winners_refreshed",
		Module:     models.ModulePins,
		Details:    details,
	}); err != nil {
		s.logger.Sugar().Warnw("activity log failed", "account_id", accountID, "error", err)
	}
}

func (s *WinnerService) invalidateCache(ctx context.Context, accountID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, winnersCacheKey(accountID)).Err(); err != nil {
		s.logger.Sugar().Warnw("winner cache invalidation failed", "account_id", accountID, "error", err)
	}
}

func winnersCacheKey(accountID string) string {
	return "winners:" + accountID
}
