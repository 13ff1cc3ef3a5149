// Package errors provides structured error handling for docrag.
//
// Codes read ERR_NXX_NAME. The hundreds digit N picks the category:
// 1 config, 2 storage and files, 3 network, 4 caller input, anything else
// internal (model and indexing failures live in 5XX).
package errors

// Category groups codes for reporting and MCP mapping.
type Category string

const (
	CategoryConfig     Category = "CONFIG"
	CategoryIO         Category = "IO"
	CategoryNetwork    Category = "NETWORK"
	CategoryValidation Category = "VALIDATION"
	CategoryInternal   Category = "INTERNAL"
)

// Severity tells the CLI whether to abort, fail the command, or only warn.
type Severity string

const (
	SeverityFatal   Severity = "FATAL"
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

const (
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	ErrCodeFileNotFound   = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission = "ERR_202_FILE_PERMISSION"
	ErrCodeDiskFull       = "ERR_203_DISK_FULL"
	ErrCodeCorruptIndex   = "ERR_205_CORRUPT_INDEX"
	ErrCodePersistence    = "ERR_207_PERSISTENCE"

	ErrCodeNetworkTimeout     = "ERR_301_NETWORK_TIMEOUT"
	ErrCodeNetworkUnavailable = "ERR_302_NETWORK_UNAVAILABLE"

	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeQueryEmpty        = "ERR_404_QUERY_EMPTY"
	ErrCodeInvalidPath       = "ERR_406_INVALID_PATH"
	ErrCodeUnsupportedType   = "ERR_408_UNSUPPORTED_TYPE"
	ErrCodeNotFound          = "ERR_409_NOT_FOUND"

	ErrCodeInternal        = "ERR_501_INTERNAL"
	ErrCodeEmbeddingFailed = "ERR_502_EMBEDDING_FAILED"
	ErrCodeSearchFailed    = "ERR_503_SEARCH_FAILED"
	ErrCodeIndexFailed     = "ERR_505_INDEX_FAILED"
	ErrCodeModelLoad       = "ERR_506_MODEL_LOAD"
	// ErrCodeNotReady means the embedding model has not been initialized
	// yet. It clears on its own once the model comes up.
	ErrCodeNotReady = "ERR_507_NOT_READY"
)

var categoryByDigit = map[byte]Category{
	'1': CategoryConfig,
	'2': CategoryIO,
	'3': CategoryNetwork,
	'4': CategoryValidation,
}

// Codes that stop the process, and codes a caller can usefully retry.
// Anything in neither set is a plain SeverityError.
var (
	fatalCodes = map[string]bool{
		ErrCodeCorruptIndex: true,
		ErrCodeDiskFull:     true,
	}
	retryableCodes = map[string]bool{
		ErrCodeNetworkTimeout:     true,
		ErrCodeNetworkUnavailable: true,
		ErrCodeNotReady:           true,
	}
)

func categoryFromCode(code string) Category {
	// "ERR_" is four bytes, the digit follows.
	if len(code) < len("ERR_1XX") {
		return CategoryInternal
	}
	if c, ok := categoryByDigit[code[4]]; ok {
		return c
	}
	return CategoryInternal
}

func severityFromCode(code string) Severity {
	switch {
	case fatalCodes[code]:
		return SeverityFatal
	case retryableCodes[code]:
		return SeverityWarning
	default:
		return SeverityError
	}
}

func isRetryableCode(code string) bool { return retryableCodes[code] }
