package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"koins/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrScanInProgress = errors.New("scan already in progress")

type TextExtractor interface {
	ExtractText(ctx context.Context, h *ImageHandle) ([]models.TextBlock, error)
}

type Coercer interface {
	Coerce(ctx context.Context, kind models.TransactionKind, text string) CoercedTransaction
}

// ScanService drives one receipt through capture, extraction, coercion and
// category validation. At most one scan runs per user at a time.
type ScanService struct {
	extractor TextExtractor
	coercer   Coercer
	logger    *zap.Logger

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

func NewScanService(extractor TextExtractor, coercer Coercer, logger *zap.Logger) *ScanService {
	return &ScanService{
		extractor: extractor,
		coercer:   coercer,
		logger:    logger,
		inFlight:  make(map[uuid.UUID]struct{}),
	}
}

// Scan captures an image from capturer and turns it into a draft.
// Cancellation, denied permission and failed extraction end in an aborted
// result, not an error. A coercion failure still yields a ready draft with
// defaulted fields.
func (s *ScanService) Scan(ctx context.Context, userID uuid.UUID, kind models.TransactionKind, capturer Capturer) (*models.ScanResult, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("invalid transaction kind %q", kind)
	}
	if !s.acquire(userID) {
		return nil, ErrScanInProgress
	}
	defer s.release(userID)

	run := newScanRun(userID, s.logger)

	run.enter(models.ScanCapturing)
	handle, err := capturer.Capture(ctx)
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return run.abort(models.AbortPermissionDenied), nil
	case err != nil:
		run.logger.Error("Capture failed", zap.Error(err))
		return nil, fmt.Errorf("capture: %w", err)
	case handle == nil:
		return run.abort(models.AbortCancelled), nil
	}
	defer func() {
		if err := handle.Close(); err != nil {
			run.logger.Warn("Failed to remove captured image", zap.Error(err))
		}
	}()

	run.enter(models.ScanExtracting)
	blocks, err := s.extractor.ExtractText(ctx, handle)
	if err != nil {
		run.logger.Warn("Text extraction failed", zap.Error(err))
		return run.abort(models.AbortExtractionFailed), nil
	}

	return s.finish(ctx, run, kind, blocks), nil
}

// ScanText runs the pipeline from coercion onward for text recognized
// elsewhere, such as on the device itself.
func (s *ScanService) ScanText(ctx context.Context, userID uuid.UUID, kind models.TransactionKind, lines []string) (*models.ScanResult, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("invalid transaction kind %q", kind)
	}
	if !s.acquire(userID) {
		return nil, ErrScanInProgress
	}
	defer s.release(userID)

	run := newScanRun(userID, s.logger)
	return s.finish(ctx, run, kind, toTextBlocks(lines)), nil
}

func (s *ScanService) finish(ctx context.Context, run *scanRun, kind models.TransactionKind, blocks []models.TextBlock) *models.ScanResult {
	run.enter(models.ScanCoercing)
	coerced := s.coercer.Coerce(ctx, kind, JoinBlocks(blocks))

	run.enter(models.ScanValidating)
	category := models.ValidateCategory(coerced.Category, kind)
	if category != coerced.Category {
		run.logger.Info("Category replaced by default",
			zap.String("suggested", coerced.Category),
			zap.String("category", category),
		)
	}

	draft := AssembleDraft(kind, coerced, category)
	return run.ready(&draft)
}

func (s *ScanService) acquire(userID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[userID]; busy {
		return false
	}
	s.inFlight[userID] = struct{}{}
	return true
}

func (s *ScanService) release(userID uuid.UUID) {
	s.mu.Lock()
	delete(s.inFlight, userID)
	s.mu.Unlock()
}

// scanRun records the states one pipeline run passes through.
type scanRun struct {
	state  models.ScanState
	trace  []models.ScanState
	logger *zap.Logger
}

func newScanRun(userID uuid.UUID, logger *zap.Logger) *scanRun {
	return &scanRun{
		state:  models.ScanIdle,
		trace:  []models.ScanState{models.ScanIdle},
		logger: logger.With(zap.String("user_id", userID.String()), zap.String("scan_id", uuid.NewString())),
	}
}

func (r *scanRun) enter(next models.ScanState) {
	r.logger.Debug("Scan state changed", zap.String("from", string(r.state)), zap.String("to", string(next)))
	r.state = next
	r.trace = append(r.trace, next)
}

func (r *scanRun) abort(reason models.AbortReason) *models.ScanResult {
	r.enter(models.ScanAborted)
	r.logger.Info("Scan aborted", zap.String("reason", string(reason)))
	return &models.ScanResult{State: models.ScanAborted, Reason: reason, Trace: r.trace}
}

func (r *scanRun) ready(draft *models.TransactionDraft) *models.ScanResult {
	r.enter(models.ScanReady)
	r.logger.Info("Scan ready",
		zap.String("category", draft.Category),
		zap.Float64("amount", draft.Amount),
	)
	return &models.ScanResult{State: models.ScanReady, Draft: draft, Trace: r.trace}
}
