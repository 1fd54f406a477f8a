// Package classify folds raw probe results into the fixed status taxonomy.
package classify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hamed0406/pingprobe/internal/domain"
	"github.com/hamed0406/pingprobe/internal/probe"
)

type Classifier struct {
	Logger *zap.Logger
}

func New(logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{Logger: logger}
}

// Classify never fails. Anything it does not recognise becomes
// StatusUnknownError; the underlying error only goes to the log.
func (c *Classifier) Classify(t *domain.Target, res probe.Result) (out domain.Outcome) {
	out = domain.Outcome{Target: t, Status: domain.StatusUnknownError}
	defer func() {
		// Error() on a foreign error type can panic too
		if r := recover(); r != nil {
			out = domain.Outcome{Target: t, Status: domain.StatusUnknownError}
			c.Logger.Error("probe_unknown_error",
				zap.String("address", t.Address),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()

	status := Status(res)
	out.Status = status
	switch status {
	case domain.StatusSuccess:
		out.Success = true
		out.LatencyMS = res.RTT.Seconds() * 1000
	case domain.StatusUnknownError:
		c.Logger.Error("probe_unknown_error",
			zap.String("address", t.Address),
			zap.String("type", string(t.Kind)),
			zap.Error(res.Err),
		)
	}
	return out
}

// Status is the pure mapping from a raw result to its taxonomy member.
func Status(res probe.Result) domain.Status {
	if res.Err != nil {
		switch {
		case errors.Is(res.Err, probe.ErrNameLookup):
			return domain.StatusNameLookupError
		case errors.Is(res.Err, probe.ErrTimeout), errors.Is(res.Err, context.DeadlineExceeded):
			return domain.StatusTimeout
		case errors.Is(res.Err, probe.ErrDestinationUnreachable):
			return domain.StatusDestinationUnreachable
		default:
			return domain.StatusUnknownError
		}
	}
	if res.Replies == 1 {
		return domain.StatusSuccess
	}
	return domain.StatusNoResponseError
}
