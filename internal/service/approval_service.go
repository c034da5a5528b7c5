package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/danvolkens/haven-hub-api/internal/dto"
	"github.com/danvolkens/haven-hub-api/internal/models"
	appErrors "github.com/danvolkens/haven-hub-api/pkg/errors"
)

type approvalStore interface {
	Create(ctx context.Context, item *models.ApprovalItem) (bool, error)
	ListPending(ctx context.Context, accountID string, limit int) ([]models.ApprovalItem, error)
	Resolve(ctx context.Context, id string, status models.ApprovalStatus, at time.Time) error
	GetByID(ctx context.Context, id string) (*models.ApprovalItem, error)
}

type settingsStore interface {
	Get(ctx context.Context, accountID string) (*models.OperatorSettings, error)
}

// artifactApplier pushes a reviewer verdict down to the referenced artifact.
type artifactApplier func(ctx context.Context, id string, approved bool, at time.Time) error

// RouteInput describes one artifact entering the approval gate.
type RouteInput struct {
	AccountID      string
	ItemType       string
	ReferenceID    string
	ReferenceTable string
	Module         string
	Confidence     float64
	Flags          []string
	Payload        []byte
}

// RouteResult reports where the gate sent the artifact.
type RouteResult struct {
	AutoApproved bool
	Queued       bool
}

// ApprovalService routes generated artifacts through the operator-mode gate
// and applies reviewer verdicts back onto them.
type ApprovalService struct {
	approvals approvalStore
	settings  settingsStore
	appliers  map[string]artifactApplier
	threshold float64
	logger    *zap.Logger
}

// NewApprovalService constructs the gate. The default threshold applies when
// an account stores no policy of its own.
func NewApprovalService(approvals approvalStore, settings settingsStore, defaultThreshold float64, logger *zap.Logger) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultThreshold <= 0 || defaultThreshold > 1 {
		defaultThreshold = 0.8
	}
	return &ApprovalService{
		approvals: approvals,
		settings:  settings,
		appliers:  make(map[string]artifactApplier),
		threshold: defaultThreshold,
		logger:    logger,
	}
}

// RegisterApplier wires the verdict handler for one reference table.
func (s *ApprovalService) RegisterApplier(referenceTable string, applier artifactApplier) {
	s.appliers[referenceTable] = applier
}

// Route sends an artifact through the gate. Manual mode queues everything;
// assisted auto-approves clean artifacts above the confidence threshold;
// autonomous auto-approves unconditionally, quality flags included.
func (s *ApprovalService) Route(ctx context.Context, in RouteInput) (*RouteResult, error) {
	settings, err := s.settings.Get(ctx, in.AccountID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load operator settings")
	}

	threshold := s.threshold
	if settings != nil && settings.QualityThreshold > 0 {
		threshold = settings.QualityThreshold
	}
	mode := settings.EffectiveMode(in.Module)
	flagged := len(in.Flags) > 0

	autoApprove := false
	switch mode {
	case models.ModeAutonomous:
		autoApprove = true
	case models.ModeAssisted:
		autoApprove = !flagged && in.Confidence >= threshold
	case models.ModeManual:
		// always a human decision
	}

	if autoApprove {
		if err := s.apply(ctx, in.ReferenceTable, in.ReferenceID, true, time.Now().UTC()); err != nil {
			return nil, err
		}
		s.logger.Sugar().Infow("artifact auto-approved",
			"account_id", in.AccountID, "reference", in.ReferenceID, "mode", mode, "confidence", in.Confidence)
		return &RouteResult{AutoApproved: true}, nil
	}

	priority := 0
	if flagged {
		priority = 1
	}
	inserted, err := s.approvals.Create(ctx, &models.ApprovalItem{
		AccountID:      in.AccountID,
		ItemType:       in.ItemType,
		ReferenceID:    in.ReferenceID,
		ReferenceTable: in.ReferenceTable,
		Payload:        in.Payload,
		Confidence:     in.Confidence,
		Flags:          in.Flags,
		Priority:       priority,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue approval")
	}
	if !inserted {
		s.logger.Sugar().Debugw("approval already open for artifact", "reference", in.ReferenceID, "table", in.ReferenceTable)
	}
	return &RouteResult{Queued: true}, nil
}

// ListPending returns the open review queue.
func (s *ApprovalService) ListPending(ctx context.Context, accountID string, limit int) ([]models.ApprovalItem, error) {
	items, err := s.approvals.ListPending(ctx, accountID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list approvals")
	}
	return items, nil
}

// Resolve records the reviewer's verdict and applies it to the artifact.
func (s *ApprovalService) Resolve(ctx context.Context, accountID, id string, req dto.ResolveApprovalRequest) error {
	item, err := s.approvals.GetByID(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approval item")
	}
	if item == nil || item.AccountID != accountID {
		return appErrors.ErrNotFound
	}
	if item.Status != models.ApprovalStatusPending {
		return appErrors.Clone(appErrors.ErrConflict, "approval already resolved")
	}

	approved := req.Decision == "approved"
	status := models.ApprovalStatusRejected
	if approved {
		status = models.ApprovalStatusApproved
	}
	now := time.Now().UTC()
	if err := s.apply(ctx, item.ReferenceTable, item.ReferenceID, approved, now); err != nil {
		return err
	}
	if err := s.approvals.Resolve(ctx, id, status, now); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve approval")
	}
	return nil
}

func (s *ApprovalService) apply(ctx context.Context, referenceTable, referenceID string, approved bool, at time.Time) error {
	applier, ok := s.appliers[referenceTable]
	if !ok {
		return appErrors.Clone(appErrors.ErrValidation, "unknown approval reference table")
	}
	if err := applier(ctx, referenceID, approved, at); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply approval verdict")
	}
	return nil
}
