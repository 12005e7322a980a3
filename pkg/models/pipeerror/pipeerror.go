package pipeerror

import "fmt"

const (
	PIPE_UNEXPECTED      = "PIPEU"
	PIPE_CONFIG_ERROR    = "PIPEC"
	PIPE_ROUTING_ERROR   = "PIPER"
	PIPE_MIXED_TABLES    = "PIPEM"
	PIPE_KEYGEN_ERROR    = "PIPEK"
	PIPE_SEQUENCE_ERROR  = "PIPES"
	PIPE_MERGE_ERROR     = "PIPEG"
	PIPE_EXECUTION_ERROR = "PIPEX"
	PIPE_INVALID_REQUEST = "PIPEI"
	PIPE_NOT_IMPLEMENTED = "PIPEN"
	PIPE_HINT_ERROR      = "PIPEH"
)

var existingErrorCodeMap = map[string]string{
	PIPE_UNEXPECTED:      "Unexpected error",
	PIPE_CONFIG_ERROR:    "Invalid sharding configuration",
	PIPE_ROUTING_ERROR:   "Routing error",
	PIPE_MIXED_TABLES:    "Mixed sharding, broadcast and single tables",
	PIPE_KEYGEN_ERROR:    "Key generation error",
	PIPE_SEQUENCE_ERROR:  "Sequence error",
	PIPE_MERGE_ERROR:     "Result merge error",
	PIPE_EXECUTION_ERROR: "Execution error",
	PIPE_INVALID_REQUEST: "Invalid request",
	PIPE_NOT_IMPLEMENTED: "Not implemented",
	PIPE_HINT_ERROR:      "Invalid hint",
}

func GetMessageByCode(errorCode string) string {
	rep, ok := existingErrorCodeMap[errorCode]
	if ok {
		return rep
	}
	return "Unexpected error"
}

var _ error = &PipeError{}

// PipeError carries a stable code next to the underlying error so callers
// can tell fatal configuration problems from per-statement failures.
type PipeError struct {
	Err error

	ErrorCode string
}

func New(errorCode string, errorMsg string) *PipeError {
	return &PipeError{
		Err:       fmt.Errorf("%s", errorMsg),
		ErrorCode: errorCode,
	}
}

func Newf(errorCode string, format string, a ...any) *PipeError {
	return &PipeError{
		Err:       fmt.Errorf(format, a...),
		ErrorCode: errorCode,
	}
}

func NewByCode(errorCode string) *PipeError {
	return New(errorCode, GetMessageByCode(errorCode))
}

func (er *PipeError) Error() string {
	return fmt.Sprintf("Code: %s. Name: %s. Description: %s.",
		er.ErrorCode, GetMessageByCode(er.ErrorCode), er.Err)
}

func (er *PipeError) Unwrap() error {
	return er.Err
}

// Code extracts the error code of err, or an empty string when err
// does not carry one.
func Code(err error) string {
	for err != nil {
		if pe, ok := err.(*PipeError); ok {
			return pe.ErrorCode
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
