package errors

import (
	stderrors "errors"

	"github.com/pingcap/errors"
)

// errors for send-task
var (
	// job spec related errors
	ErrBuildJobSpec = errors.Normalize("failed to marshal payload", errors.RFCCodeText("SendTask:ErrBuildJobSpec"))

	// dispatch related errors
	ErrInvalidRequest = errors.Normalize("invalid request to %s", errors.RFCCodeText("SendTask:ErrInvalidRequest"))
	ErrRequestFailed  = errors.Normalize("HTTP request failed (%d): %s", errors.RFCCodeText("SendTask:ErrRequestFailed"))

	// reply related errors
	ErrReplyMalformed = errors.Normalize("malformed reply, error before offset %d: %s", errors.RFCCodeText("SendTask:ErrReplyMalformed"))
	ErrReplyMissingRC = errors.Normalize("reply has no numeric rc field", errors.RFCCodeText("SendTask:ErrReplyMissingRC"))
	ErrReplyInvalidRC = errors.Normalize("reply rc %v is not a valid exit code", errors.RFCCodeText("SendTask:ErrReplyInvalidRC"))

	// config related errors
	ErrConfigDecodeFile  = errors.Normalize("decode config file %s failed", errors.RFCCodeText("SendTask:ErrConfigDecodeFile"))
	ErrConfigUnknownItem = errors.Normalize("unknown config item: %s", errors.RFCCodeText("SendTask:ErrConfigUnknownItem"))
	ErrInitLogger        = errors.Normalize("init logger failed", errors.RFCCodeText("SendTask:ErrInitLogger"))
)

// Wrap attaches err as the cause of rfcError and records the stack.
// It returns nil when err is nil.
func Wrap(rfcError *errors.Error, err error, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return rfcError.Wrap(err).GenWithStackByArgs(args...)
}

// Is reports whether any error in err's chain carries the same RFC code
// as rfcError. Unlike rfcError.Equal it also matches wrapped errors.
func Is(err error, rfcError *errors.Error) bool {
	return stderrors.Is(err, rfcError)
}
