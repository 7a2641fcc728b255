package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidCredentialSet ErrorCode = 102
	ErrCodeInvalidQuantity      ErrorCode = 103
	ErrCodeQuantityTooLarge     ErrorCode = 104
	ErrCodeInvalidStrategySpec  ErrorCode = 105
	ErrCodeInvalidTick          ErrorCode = 106
	ErrCodeInvalidDirection     ErrorCode = 107

	// Connection errors (200-299)
	ErrCodeConnectionTimeout    ErrorCode = 200
	ErrCodeServerNotFound       ErrorCode = 201
	ErrCodeInvalidCredentials   ErrorCode = 202
	ErrCodeAccountBlocked       ErrorCode = 203
	ErrCodeConnectionFailed     ErrorCode = 204
	ErrCodeNotConnected         ErrorCode = 205
	ErrCodeAlreadyConnecting    ErrorCode = 206
	ErrCodeAccountRefreshFailed ErrorCode = 207

	// Feed errors (300-399)
	ErrCodeTickGenerationFailed ErrorCode = 300
	ErrCodeSubscriberPanic      ErrorCode = 301
	ErrCodeInstrumentNotFound   ErrorCode = 302
	ErrCodeFeedStopped          ErrorCode = 303

	// Indicator errors (400-499)
	ErrCodeIndicatorCalculation ErrorCode = 400
	ErrCodeIndicatorNotFound    ErrorCode = 401

	// Strategy errors (500-599)
	ErrCodeStrategyNotFound   ErrorCode = 500
	ErrCodeStrategyEvaluation ErrorCode = 501
	ErrCodeDuplicateStrategy  ErrorCode = 502

	// Signal errors (600-699)
	ErrCodeNoActiveStrategies ErrorCode = 600
	ErrCodeMonitorRunning     ErrorCode = 601
	ErrCodeMonitorNotRunning  ErrorCode = 602

	// Execution errors (700-799)
	ErrCodeOrderRejected     ErrorCode = 700
	ErrCodeOrderFailed       ErrorCode = 701
	ErrCodeNoMarketPrice     ErrorCode = 702
	ErrCodeTradeNotFound     ErrorCode = 703
	ErrCodeSettlementFailed  ErrorCode = 704
	ErrCodeExecutionDisabled ErrorCode = 705
)
