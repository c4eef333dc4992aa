package ollama

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/tradecorpus/rag-orchestrator/internal/core/domain"
	"github.com/tradecorpus/rag-orchestrator/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "ollama status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("ollama %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("ollama %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

var (
	retryAndRecord = resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	giveUpSilently = resilience.ErrorClassification{}
	recordOnly     = resilience.ErrorClassification{RecordFailure: true}
)

// classifyOllamaError decides retry and breaker behavior for generation and
// embedding calls. Caller cancellation never counts against the breaker.
func classifyOllamaError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return giveUpSilently
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return giveUpSilently
	case resilience.IsCircuitOpen(err):
		return retryAndRecord
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return retryAndRecord
		default:
			// 4xx means the request itself is wrong; retrying the same
			// payload cannot help.
			return giveUpSilently
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return retryAndRecord
	}
	return recordOnly
}

func wrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifyOllamaError(err).Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
