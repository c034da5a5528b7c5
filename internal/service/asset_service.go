package service

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/danvolkens/haven-hub-api/internal/dto"
	"github.com/danvolkens/haven-hub-api/internal/events"
	"github.com/danvolkens/haven-hub-api/internal/models"
	"github.com/danvolkens/haven-hub-api/internal/render"
	appErrors "github.com/danvolkens/haven-hub-api/pkg/errors"
	"github.com/danvolkens/haven-hub-api/pkg/jobs"
	"github.com/danvolkens/haven-hub-api/pkg/storage"
)

type quoteStore interface {
	GetByID(ctx context.Context, accountID, id string) (*models.Quote, error)
	UpdateStatus(ctx context.Context, id string, status models.QuoteStatus) error
	FinishGeneration(ctx context.Context, id string, rendered int) error
}

type assetStore interface {
	Create(ctx context.Context, asset *models.Asset) error
	GetByID(ctx context.Context, id string) (*models.Asset, error)
	ListByIDs(ctx context.Context, accountID string, ids []string) ([]models.Asset, error)
	UpdateStatus(ctx context.Context, id string, status models.AssetStatus, at time.Time) error
}

type objectUploader interface {
	UploadImage(ctx context.Context, prefix, accountID, name string, data []byte, contentType string) (string, string, error)
}

type approvalRouter interface {
	Route(ctx context.Context, in RouteInput) (*RouteResult, error)
}

type activityLogger interface {
	Log(ctx context.Context, entry *models.ActivityLog) error
}

type eventEmitter interface {
	Publish(ctx context.Context, event events.Event)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// renderJobPayload travels through the render queue.
type renderJobPayload struct {
	AccountID string
	QuoteID   string
	Formats   []string
}

// AssetService renders quotes into brand-styled images, gates them on quality,
// and routes the results for approval.
type AssetService struct {
	quotes    quoteStore
	assets    assetStore
	store     objectUploader
	approvals approvalRouter
	activity  activityLogger
	emitter   eventEmitter
	queue     jobDispatcher
	renderer  *render.Renderer
	fetcher   *http.Client
	logger    *zap.Logger
}

// NewAssetService constructs the service.
func NewAssetService(
	quotes quoteStore,
	assets assetStore,
	store objectUploader,
	approvals approvalRouter,
	activity activityLogger,
	emitter eventEmitter,
	queue jobDispatcher,
	renderer *render.Renderer,
	logger *zap.Logger,
) *AssetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssetService{
		quotes:    quotes,
		assets:    assets,
		store:     store,
		approvals: approvals,
		activity:  activity,
		emitter:   emitter,
		queue:     queue,
		renderer:  renderer,
		fetcher:   &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
	}
}

// SetQueue wires the render queue after construction. The queue's handler is
// a method on this service, so the two cannot be built in one step.
func (s *AssetService) SetQueue(queue jobDispatcher) {
	s.queue = queue
}

// GenerateAssets validates the quote, marks it generating and queues the
// render run so the caller returns immediately.
func (s *AssetService) GenerateAssets(ctx context.Context, accountID, quoteID string, req dto.GenerateAssetsRequest) (*dto.GenerateAssetsResponse, error) {
	quote, err := s.quotes.GetByID(ctx, accountID, quoteID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "quote not found")
	}
	if quote.Status == models.QuoteStatusGenerating {
		return nil, appErrors.Clone(appErrors.ErrConflict, "asset generation already running for this quote")
	}

	formats := req.Formats
	if len(formats) == 0 {
		for _, f := range models.DefaultAssetFormats {
			formats = append(formats, f.Name)
		}
	}
	for _, name := range formats {
		if _, ok := resolveFormat(name); !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown format %q", name))
		}
	}

	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "render queue is not running")
	}
	if err := s.quotes.UpdateStatus(ctx, quote.ID, models.QuoteStatusGenerating); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark quote generating")
	}
	if err := s.queue.Enqueue(jobs.Job{
		ID:      quote.ID,
		Type:    "render_assets",
		Payload: renderJobPayload{AccountID: accountID, QuoteID: quote.ID, Formats: formats},
	}); err != nil {
		_ = s.quotes.UpdateStatus(ctx, quote.ID, quote.Status)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue render run")
	}

	return &dto.GenerateAssetsResponse{QuoteID: quote.ID, Formats: len(formats), Status: "queued"}, nil
}

// HandleRenderJob is the queue worker entrypoint for one render run.
func (s *AssetService) HandleRenderJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(renderJobPayload)
	if !ok {
		return fmt.Errorf("unexpected render payload type %T", job.Payload)
	}
	return s.renderQuote(ctx, payload)
}

func (s *AssetService) renderQuote(ctx context.Context, payload renderJobPayload) error {
	quote, err := s.quotes.GetByID(ctx, payload.AccountID, payload.QuoteID)
	if err != nil {
		return fmt.Errorf("load quote for render: %w", err)
	}

	rendered := 0
	renderedIDs := make([]string, 0, len(payload.Formats))
	for _, name := range payload.Formats {
		format, _ := resolveFormat(name)
		asset, err := s.renderOne(ctx, quote, format)
		if err != nil {
			s.logger.Sugar().Warnw("format render failed",
				"quote_id", quote.ID, "format", format.Name, "error", err)
			continue
		}
		rendered++
		renderedIDs = append(renderedIDs, asset.ID)
	}

	if err := s.quotes.FinishGeneration(ctx, quote.ID, rendered); err != nil {
		return fmt.Errorf("finish generation: %w", err)
	}

	details, _ := json.Marshal(map[string]interface{}{
		"quoteId": quote.ID, "rendered": rendered, "requested": len(payload.Formats),
	})
	if err := s.activity.Log(ctx, &models.ActivityLog{
		AccountID:      quote.AccountID,
		ActionType:     "assets_generated",
		Module:         models.ModuleAssets,
		Details:        details,
		ReferenceID:    &quote.ID,
		ReferenceTable: strPtr("quotes"),
	}); err != nil {
		s.logger.Sugar().Warnw("activity log failed", "quote_id", quote.ID, "error", err)
	}

	s.emitter.Publish(ctx, events.Event{
		Type:      events.TypeAssetsGenerated,
		AccountID: quote.AccountID,
		Payload:   map[string]interface{}{"quoteId": quote.ID, "assetIds": renderedIDs},
	})
	return nil
}

// renderOne produces, gates, stores and routes a single format.
func (s *AssetService) renderOne(ctx context.Context, quote *models.Quote, format models.AssetFormat) (*models.Asset, error) {
	var (
		img     image.Image
		quality render.QualityResult
	)

	if quote.MasterImageURL != nil && *quote.MasterImageURL != "" {
		// A hand-picked master image always wins over text rendering and
		// skips the automated gate.
		master, err := s.fetchMaster(ctx, *quote.MasterImageURL)
		if err != nil {
			return nil, err
		}
		img = render.ResizeMaster(master, format)
		quality = render.QualityResult{
			Scores: render.Scores{Readability: 1, Contrast: 1, Composition: 1, Overall: 1},
			Passed: true,
		}
	} else {
		attribution := ""
		if quote.Attribution != nil {
			attribution = *quote.Attribution
		}
		result, err := s.renderer.Render(render.Options{
			Text:        quote.Text,
			Attribution: attribution,
			Rule:        render.RuleFor(quote.Collection),
			Format:      format,
		})
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format.Name, err)
		}
		img = result.Image
		quality = render.CheckQuality(result.Image, result.TextBounds)
	}

	data, err := render.EncodePNG(img)
	if err != nil {
		return nil, err
	}
	key, url, err := s.store.UploadImage(ctx, storage.PathAssets, quote.AccountID,
		fmt.Sprintf("%s-%s.png", quote.ID, format.Name), data, "image/png")
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", format.Name, err)
	}

	flagReasons, _ := json.Marshal(quality.FlagReasons)
	asset := &models.Asset{
		AccountID:        quote.AccountID,
		QuoteID:          quote.ID,
		Format:           format.Name,
		Width:            format.Width,
		Height:           format.Height,
		FileURL:          url,
		FileKey:          key,
		ScoreReadability: quality.Scores.Readability,
		ScoreContrast:    quality.Scores.Contrast,
		ScoreComposition: quality.Scores.Composition,
		ScoreOverall:     quality.Scores.Overall,
		Flags:            quality.Flags,
		FlagReasons:      flagReasons,
	}
	if err := s.assets.Create(ctx, asset); err != nil {
		return nil, fmt.Errorf("persist asset: %w", err)
	}

	scores, _ := json.Marshal(quality.Scores)
	if _, err := s.approvals.Route(ctx, RouteInput{
		AccountID:      quote.AccountID,
		ItemType:       "asset",
		ReferenceID:    asset.ID,
		ReferenceTable: models.ReferenceAssets,
		Module:         models.ModuleAssets,
		Confidence:     quality.Scores.Overall,
		Flags:          quality.Flags,
		Payload:        scores,
	}); err != nil {
		s.logger.Sugar().Warnw("approval routing failed", "asset_id", asset.ID, "error", err)
	}
	return asset, nil
}

func (s *AssetService) fetchMaster(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build master image request: %w", err)
	}
	resp, err := s.fetcher.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch master image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch master image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read master image: %w", err)
	}
	return render.DecodeImage(data)
}

// ApplyAssetVerdict is the approval applier for the assets table.
func (s *AssetService) ApplyAssetVerdict(ctx context.Context, id string, approved bool, at time.Time) error {
	status := models.AssetStatusRejected
	if approved {
		status = models.AssetStatusApproved
	}
	return s.assets.UpdateStatus(ctx, id, status, at)
}

func resolveFormat(name string) (models.AssetFormat, bool) {
	for _, f := range models.DefaultAssetFormats {
		if f.Name == name {
			return f, true
		}
	}
	return models.AssetFormat{}, false
}

func strPtr(s string) *string { return &s }
