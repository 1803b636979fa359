package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Parse errors (100-199)
	ErrCodeSyntax          ErrorCode = 100
	ErrCodeUnexpectedToken ErrorCode = 101
	ErrCodeUnterminated    ErrorCode = 102
	ErrCodeInvalidNumber   ErrorCode = 103

	// Runtime faults (200-299)
	ErrCodeTypeMismatch      ErrorCode = 200
	ErrCodeUnknownIdentifier ErrorCode = 201
	ErrCodeIndexOutOfRange   ErrorCode = 202
	ErrCodeDivisionByZero    ErrorCode = 203
	ErrCodeLengthMismatch    ErrorCode = 204
	ErrCodeUnknownFunction   ErrorCode = 205
	ErrCodeArityMismatch     ErrorCode = 206
	ErrCodeUnknownField      ErrorCode = 207
	ErrCodeUnknownSymbol     ErrorCode = 208
	ErrCodeInvalidArgument   ErrorCode = 209

	// Sandbox violations (300-399)
	ErrCodeStepBudgetExceeded ErrorCode = 300
	ErrCodeWallClockExceeded  ErrorCode = 301
	ErrCodeRunCancelled       ErrorCode = 302

	// Order validation errors (400-499)
	ErrCodeInvalidOrder       ErrorCode = 400
	ErrCodeMissingLimitPrice  ErrorCode = 401
	ErrCodeMissingStopPrice   ErrorCode = 402
	ErrCodeMissingBracketLegs ErrorCode = 403
	ErrCodeInvalidQuantity    ErrorCode = 404

	// Engine rejections (500-599)
	ErrCodeOpenOrderCapReached ErrorCode = 500
	ErrCodeOrderNotFound       ErrorCode = 501
	ErrCodeIllegalTransition   ErrorCode = 502

	// Ledger errors (600-699)
	ErrCodePositionNotFound ErrorCode = 600
	ErrCodeInvalidFill      ErrorCode = 601

	// Backtest errors (700-799)
	ErrCodeBacktestConfigError ErrorCode = 700
	ErrCodeBacktestNoData      ErrorCode = 701
	ErrCodeBacktestStoreError  ErrorCode = 702
	ErrCodeVersionMismatch     ErrorCode = 703

	// Data/source errors (800-899)
	ErrCodeDataNotFound     ErrorCode = 800
	ErrCodeQueryFailed      ErrorCode = 801
	ErrCodeScriptRejected   ErrorCode = 802
	ErrCodeInsufficientData ErrorCode = 803
	ErrCodeInvalidDataPath  ErrorCode = 804
)

// Category groups error codes by the failure class they belong to.
type Category string

const (
	CategoryGeneral         Category = "general"
	CategoryParse           Category = "parse_error"
	CategoryRuntimeFault    Category = "runtime_fault"
	CategorySandbox         Category = "sandbox_violation"
	CategoryOrderValidation Category = "order_validation"
	CategoryEngineRejection Category = "engine_rejection"
	CategoryLedger          Category = "ledger"
	CategoryBacktest        Category = "backtest"
	CategoryData            Category = "data"
)

// CategoryOf returns the failure class for an error code.
func CategoryOf(code ErrorCode) Category {
	switch {
	case code >= 100 && code < 200:
		return CategoryParse
	case code >= 200 && code < 300:
		return CategoryRuntimeFault
	case code >= 300 && code < 400:
		return CategorySandbox
	case code >= 400 && code < 500:
		return CategoryOrderValidation
	case code >= 500 && code < 600:
		return CategoryEngineRejection
	case code >= 600 && code < 700:
		return CategoryLedger
	case code >= 700 && code < 800:
		return CategoryBacktest
	case code >= 800 && code < 900:
		return CategoryData
	default:
		return CategoryGeneral
	}
}

// IsFatal reports whether an error code aborts the whole run.
// Parse errors and sandbox violations are fatal; everything else is
// recorded into the run's diagnostics and the pipeline continues.
func IsFatal(code ErrorCode) bool {
	c := CategoryOf(code)

	return c == CategoryParse || c == CategorySandbox
}
