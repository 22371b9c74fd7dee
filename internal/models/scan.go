package models

// TextBlock is one recognized line of text, in reading order.
type TextBlock struct {
	Text string
}

type ScanState string

const (
	ScanIdle       ScanState = "idle"
	ScanCapturing  ScanState = "capturing"
	ScanExtracting ScanState = "extracting"
	ScanCoercing   ScanState = "coercing"
	ScanValidating ScanState = "validating"
	ScanReady      ScanState = "ready"
	ScanAborted    ScanState = "aborted"
)

type AbortReason string

const (
	AbortCancelled        AbortReason = "cancelled"
	AbortPermissionDenied AbortReason = "permission_denied"
	AbortExtractionFailed AbortReason = "extraction_failed"
)

// ScanResult is the terminal outcome of one pipeline run. Draft is set only
// when State is ScanReady; Reason only when State is ScanAborted.
type ScanResult struct {
	State  ScanState
	Draft  *TransactionDraft
	Reason AbortReason
	Trace  []ScanState
}
