// Package sanitize screens script sources before they reach the parser.
package sanitize

import (
	"strings"
	"unicode/utf8"

	"github.com/rxtech-lab/argo-script/pkg/errors"
)

// DefaultMaxScriptBytes bounds accepted script size.
const DefaultMaxScriptBytes = 1 << 16

// denylist holds constructs the sandbox never executes. Scripts have no
// module system, host access or process control, so any mention of these
// is rejected before parsing.
var denylist = []string{
	"import",
	"include",
	"require",
	"eval",
	"exec",
	"system",
	"spawn",
	"syscall",
	"__",
}

// CheckScript rejects sources the runtime refuses to parse: oversized,
// empty, binary, malformed or denylisted input.
func CheckScript(source string) error {
	if strings.TrimSpace(source) == "" {
		return errors.New(errors.ErrCodeScriptRejected, "script is empty")
	}

	if len(source) > DefaultMaxScriptBytes {
		return errors.Newf(errors.ErrCodeScriptRejected, "script exceeds %d bytes", DefaultMaxScriptBytes)
	}

	if strings.ContainsRune(source, 0) {
		return errors.New(errors.ErrCodeScriptRejected, "script contains NUL bytes")
	}

	if !utf8.ValidString(source) {
		return errors.New(errors.ErrCodeScriptRejected, "script is not valid UTF-8")
	}

	lowered := strings.ToLower(source)
	for _, construct := range denylist {
		if strings.Contains(lowered, construct) {
			return errors.Newf(errors.ErrCodeScriptRejected, "script contains forbidden construct %q", construct)
		}
	}

	return nil
}
