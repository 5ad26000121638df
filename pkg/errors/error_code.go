package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Configuration errors (100-199). Always fatal to the current run.
	ErrCodeInvalidParameter      ErrorCode = 100
	ErrCodeInvalidConfiguration  ErrorCode = 101
	ErrCodeInvalidOrder          ErrorCode = 102
	ErrCodeMissingColumn         ErrorCode = 103
	ErrCodeInsufficientData      ErrorCode = 104
	ErrCodeSignalLength          ErrorCode = 105
	ErrCodeInvalidSlippageModel  ErrorCode = 106
	ErrCodeUnorderedBars         ErrorCode = 107
	ErrCodeInvalidVersion        ErrorCode = 108
	ErrCodeInvalidZeroPolicy     ErrorCode = 109
	ErrCodeInvalidRateSeries     ErrorCode = 110
	ErrCodeStrategyNotRegistered ErrorCode = 111

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202

	// Strategy errors (400-499)
	ErrCodeStrategyRuntimeError ErrorCode = 400
	ErrCodeStrategyExists       ErrorCode = 401

	// Backtest errors (600-699)
	ErrCodeBacktestFailed    ErrorCode = 600
	ErrCodeSnapshotOrder     ErrorCode = 601
	ErrCodeWalkForwardFailed ErrorCode = 602
)

// IsConfigurationCode reports whether the code belongs to the configuration category.
func IsConfigurationCode(code ErrorCode) bool {
	return code >= 100 && code < 200
}
