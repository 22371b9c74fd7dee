package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"koins/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestScanService(extractor TextExtractor, llm *mockLLM) *ScanService {
	return NewScanService(extractor, NewCoercionService(llm, 0, zap.NewNop()), zap.NewNop())
}

func someImage() *ImageHandle {
	return &ImageHandle{Path: "receipt.jpg", ContentType: "image/jpeg", Size: 10}
}

func TestScan_CoffeeReceiptEndToEnd(t *testing.T) {
	extractor := &stubExtractor{blocks: []models.TextBlock{{Text: "Café Juan Valdez"}, {Text: "TOTAL $8.000"}}}
	llm := new(mockLLM)
	llm.On("GenerateJSON", mock.Anything, mock.MatchedBy(func(req JSONRequest) bool {
		return strings.Contains(req.Prompt, "Café Juan Valdez\nTOTAL $8.000")
	})).Return(`{"description":"Café Juan Valdez","value":8000,"category":"Alimentos"}`, nil)

	svc := newTestScanService(extractor, llm)
	result, err := svc.Scan(context.Background(), uuid.New(), models.KindExpense, stubCapturer{handle: someImage()})
	require.NoError(t, err)

	assert.Equal(t, models.ScanReady, result.State)
	assert.Equal(t, &models.TransactionDraft{
		Kind:        models.KindExpense,
		Description: "Café Juan Valdez",
		Amount:      8000,
		Category:    "Alimentos",
		SourceType:  models.SourceScanned,
		ExpenseType: models.ExpenseTypeInvoice,
	}, result.Draft)
	assert.Equal(t, []models.ScanState{
		models.ScanIdle, models.ScanCapturing, models.ScanExtracting,
		models.ScanCoercing, models.ScanValidating, models.ScanReady,
	}, result.Trace)
}

func TestScan_GibberishFallsBackToDefaults(t *testing.T) {
	extractor := &stubExtractor{blocks: []models.TextBlock{{Text: "asdkfjh"}}}
	llm := new(mockLLM)
	llm.On("GenerateJSON", mock.Anything, mock.Anything).Return(`{"description":"","value":0,"category":""}`, nil)

	result, err := newTestScanService(extractor, llm).Scan(context.Background(), uuid.New(), models.KindExpense, stubCapturer{handle: someImage()})
	require.NoError(t, err)

	require.Equal(t, models.ScanReady, result.State)
	assert.Equal(t, "", result.Draft.Description)
	assert.Equal(t, 0.0, result.Draft.Amount)
	assert.Equal(t, "Otros gastos", result.Draft.Category)
	assert.Equal(t, models.SourceScanned, result.Draft.SourceType)
}

func TestScan_UnknownCategoryReplaced(t *testing.T) {
	extractor := &stubExtractor{blocks: []models.TextBlock{{Text: "Veterinaria Patitas $50.000"}}}
	llm := new(mockLLM)
	llm.On("GenerateJSON", mock.Anything, mock.Anything).Return(`{"description":"Veterinaria","value":50000,"category":"Mascotas"}`, nil)

	result, err := newTestScanService(extractor, llm).Scan(context.Background(), uuid.New(), models.KindExpense, stubCapturer{handle: someImage()})
	require.NoError(t, err)
	assert.Equal(t, "Otros gastos", result.Draft.Category)
	assert.Equal(t, 50000.0, result.Draft.Amount)
}

func TestScan_RemoteFailureStillReady(t *testing.T) {
	extractor := &stubExtractor{blocks: []models.TextBlock{{Text: "Farmacia"}}}
	llm := new(mockLLM)
	llm.On("GenerateJSON", mock.Anything, mock.Anything).Return("", errors.New("503 service unavailable"))

	result, err := newTestScanService(extractor, llm).Scan(context.Background(), uuid.New(), models.KindExpense, stubCapturer{handle: someImage()})
	require.NoError(t, err)
	assert.Equal(t, models.ScanReady, result.State)
	assert.Equal(t, models.TransactionDraft{
		Kind:        models.KindExpense,
		Category:    "Otros gastos",
		SourceType:  models.SourceScanned,
		ExpenseType: models.ExpenseTypeInvoice,
	}, *result.Draft)
}

func TestScan_Aborts(t *testing.T) {
	tests := []struct {
		name      string
		capturer  Capturer
		extractor *stubExtractor
		reason    models.AbortReason
		extracted bool
	}{
		{"cancelled", stubCapturer{}, &stubExtractor{}, models.AbortCancelled, false},
		{"permission denied", stubCapturer{err: ErrPermissionDenied}, &stubExtractor{}, models.AbortPermissionDenied, false},
		{"extraction failed", stubCapturer{handle: someImage()}, &stubExtractor{err: fmt.Errorf("%w: blurry", ErrExtractionFailed)}, models.AbortExtractionFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := new(mockLLM)
			svc := newTestScanService(tt.extractor, llm)

			result, err := svc.Scan(context.Background(), uuid.New(), models.KindExpense, tt.capturer)
			require.NoError(t, err)

			assert.Equal(t, models.ScanAborted, result.State)
			assert.Equal(t, tt.reason, result.Reason)
			assert.Nil(t, result.Draft)
			assert.Equal(t, tt.extracted, tt.extractor.calls > 0)
			llm.AssertNotCalled(t, "GenerateJSON", mock.Anything, mock.Anything)
		})
	}
}

func TestScan_CaptureErrorIsReturned(t *testing.T) {
	svc := newTestScanService(&stubExtractor{}, new(mockLLM))

	_, err := svc.Scan(context.Background(), uuid.New(), models.KindExpense, stubCapturer{err: errors.New("disk full")})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrScanInProgress)
}

func TestScan_InvalidKind(t *testing.T) {
	svc := newTestScanService(&stubExtractor{}, new(mockLLM))
	_, err := svc.Scan(context.Background(), uuid.New(), models.TransactionKind("transfer"), stubCapturer{})
	assert.Error(t, err)
}

// blockingExtractor parks inside ExtractText until released.
type blockingExtractor struct {
	entered chan struct{}
	release chan struct{}
}

func (e *blockingExtractor) ExtractText(ctx context.Context, h *ImageHandle) ([]models.TextBlock, error) {
	close(e.entered)
	<-e.release
	return nil, ErrExtractionFailed
}

func TestScan_SingleFlightPerUser(t *testing.T) {
	extractor := &blockingExtractor{entered: make(chan struct{}), release: make(chan struct{})}
	svc := newTestScanService(extractor, new(mockLLM))
	userID := uuid.New()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = svc.Scan(context.Background(), userID, models.KindExpense, stubCapturer{handle: someImage()})
	}()
	<-extractor.entered

	_, err := svc.Scan(context.Background(), userID, models.KindExpense, stubCapturer{handle: someImage()})
	assert.ErrorIs(t, err, ErrScanInProgress)

	_, err = svc.ScanText(context.Background(), userID, models.KindExpense, []string{"x"})
	assert.ErrorIs(t, err, ErrScanInProgress)

	// another user is not blocked
	other, err := svc.Scan(context.Background(), uuid.New(), models.KindExpense, stubCapturer{})
	require.NoError(t, err)
	assert.Equal(t, models.AbortCancelled, other.Reason)

	close(extractor.release)
	wg.Wait()

	// the slot is free again once the first scan finishes
	again, err := svc.Scan(context.Background(), userID, models.KindExpense, stubCapturer{})
	require.NoError(t, err)
	assert.Equal(t, models.ScanAborted, again.State)
}

func TestScanText_SkipsCaptureAndExtraction(t *testing.T) {
	llm := new(mockLLM)
	llm.On("GenerateJSON", mock.Anything, mock.Anything).Return(`{"description":"Nómina","value":"2.500.000","category":"Salario"}`, nil)

	svc := newTestScanService(&stubExtractor{}, llm)
	result, err := svc.ScanText(context.Background(), uuid.New(), models.KindIncome, []string{"  Nómina marzo ", "", "$2.500.000"})
	require.NoError(t, err)

	assert.Equal(t, []models.ScanState{models.ScanIdle, models.ScanCoercing, models.ScanValidating, models.ScanReady}, result.Trace)
	assert.Equal(t, models.TransactionDraft{
		Kind:        models.KindIncome,
		Description: "Nómina",
		Amount:      2500000,
		Category:    "Salario",
		SourceType:  models.SourceScanned,
	}, *result.Draft)
}

func TestScanText_BlankLinesNeverCallRemote(t *testing.T) {
	llm := new(mockLLM)
	svc := newTestScanService(&stubExtractor{}, llm)

	result, err := svc.ScanText(context.Background(), uuid.New(), models.KindExpense, []string{" ", "\t"})
	require.NoError(t, err)
	assert.Equal(t, models.ScanReady, result.State)
	assert.Equal(t, "Otros gastos", result.Draft.Category)
	llm.AssertNotCalled(t, "GenerateJSON", mock.Anything, mock.Anything)
}
