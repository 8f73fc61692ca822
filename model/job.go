package model

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/pingcap/log"
	"go.uber.org/zap"

	derrors "github.com/hanfei1991/sendtask/pkg/errors"
)

// ReservedArgs is the number of leading process arguments that never reach
// the job: the program name and the marker the build tool passes to its
// shell (usually "-c").
const ReservedArgs = 2

// JobSpec is the document submitted to the job scheduler.
type JobSpec struct {
	Argv []string `json:"argv"`
}

// NewJobSpec builds a JobSpec from the raw process argument list. The
// arguments after the reserved ones are kept in order and byte for byte.
func NewJobSpec(processArgs []string) *JobSpec {
	argv := make([]string, 0)
	if len(processArgs) > ReservedArgs {
		argv = append(argv, processArgs[ReservedArgs:]...)
	}
	return &JobSpec{Argv: argv}
}

// Marshal encodes the job document as JSON text.
func (s *JobSpec) Marshal() ([]byte, error) {
	return marshalJobSpec(s)
}

var marshalJobSpec = func(s *JobSpec) ([]byte, error) {
	spec := *s
	if spec.Argv == nil {
		spec.Argv = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(&spec); err != nil {
		return nil, derrors.Wrap(derrors.ErrBuildJobSpec, err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// BuildPayload returns the request body for the given process arguments.
// When the document cannot be built the payload is empty, never partial;
// the scheduler rejects an empty body.
func BuildPayload(processArgs []string) []byte {
	payload, err := NewJobSpec(processArgs).Marshal()
	if err != nil {
		log.L().Warn("failed to marshal payload, sending empty body", zap.Error(err))
		return []byte{}
	}
	return payload
}

// JobReply is the document the scheduler answers with. Only rc is consumed.
type JobReply struct {
	RC float64
}

// ExitCode returns rc truncated toward zero.
func (r *JobReply) ExitCode() int {
	return int(r.RC)
}

// ParseJobReply decodes a scheduler reply. A body that is not JSON returns
// ErrReplyMalformed; a JSON body without a numeric rc returns
// ErrReplyMissingRC. When rc appears more than once the first one is used.
func ParseJobReply(data []byte) (*JobReply, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		if se, ok := err.(*json.SyntaxError); ok {
			return nil, malformedReply(data, se.Offset)
		}
		// Valid JSON, but not an object.
		return nil, derrors.ErrReplyMissingRC.GenWithStackByArgs()
	}
	raw, ok := firstMember(data, "rc")
	if !ok || !isNumberLiteral(raw) {
		return nil, derrors.ErrReplyMissingRC.GenWithStackByArgs()
	}
	rc, err := json.Number(raw).Float64()
	if err != nil {
		return nil, derrors.ErrReplyInvalidRC.GenWithStackByArgs(string(raw))
	}
	if t := math.Trunc(rc); t < math.MinInt32 || t > math.MaxInt32 {
		return nil, derrors.ErrReplyInvalidRC.GenWithStackByArgs(rc)
	}
	return &JobReply{RC: rc}, nil
}

// firstMember returns the value of the first member named key in the JSON
// object data, which must already be known to be valid.
func firstMember(data []byte, key string) (json.RawMessage, bool) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, false
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, false
		}
		if name, _ := tok.(string); name == key {
			return value, true
		}
	}
	return nil, false
}

func isNumberLiteral(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	c := raw[0]
	return c == '-' || (c >= '0' && c <= '9')
}

const maxErrorContext = 32

// malformedReply reports the text the parser stopped at.
func malformedReply(data []byte, offset int64) error {
	start := offset - 1
	if start < 0 {
		start = 0
	}
	if start > int64(len(data)) {
		start = int64(len(data))
	}
	rest := data[start:]
	if len(rest) > maxErrorContext {
		rest = rest[:maxErrorContext]
	}
	return derrors.ErrReplyMalformed.GenWithStackByArgs(offset, string(rest))
}
