package cli

import (
	"errors"

	"github.com/varnalabs/apitestgen/internal/config"
	"github.com/varnalabs/apitestgen/internal/engineerr"
)

// ErrUsage marks errors caused by how the command was invoked rather than by a fault
// in apitestgen. cmd/apitestgen exits with status 2 for them.
var ErrUsage = errors.New("cli usage error")

type usageError struct {
	msg string
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}

// asUsageError converts configuration problems and unreadable or unparseable input
// documents into usage errors. Other errors are returned unchanged.
func asUsageError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, config.ErrInvalid) {
		return newUsageError(err.Error())
	}
	var ee *engineerr.Error
	if errors.As(err, &ee) && ee.Kind == engineerr.ParseFailure {
		return newUsageError("spec: " + ee.Message)
	}
	return err
}
