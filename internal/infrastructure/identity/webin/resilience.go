package webin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/kirillkom/submission-gateway/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "webin status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("webin %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("webin %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// classifyWebinError feeds the circuit breaker. Nothing is retried here: the
// bearer lookup is a single call and rejected tokens are not failures of the
// provider.
func classifyWebinError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: statusErr.StatusCode >= 500,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}

	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
