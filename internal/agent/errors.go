package agent

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"charm.land/fantasy"

	"github.com/dotcommander/blgate/internal/errs"
)

// Describe turns an agent run failure into a user-facing error of kind
// errs.ErrRequest. Provider errors get a reason from their status code.
func Describe(err error, model string) errs.Error {
	var providerErr *fantasy.ProviderError
	if errors.As(err, &providerErr) {
		return errs.Error{Kind: errs.ErrRequest, Err: err, Reason: reasonForProviderError(providerErr, model)}
	}
	var e errs.Error
	if errors.As(err, &e) && e.Reason != "" {
		return errs.Error{Kind: errs.ErrRequest, Err: err, Reason: e.Reason}
	}
	return errs.Error{Kind: errs.ErrRequest, Err: err, Reason: fmt.Sprintf("There was a problem running model %s.", model)}
}

func reasonForProviderError(err *fantasy.ProviderError, model string) string {
	switch err.StatusCode {
	case http.StatusNotFound:
		return fmt.Sprintf("Missing model '%s'.", model)
	case http.StatusBadRequest:
		if isContextLengthExceeded(err) {
			return "Maximum prompt size exceeded."
		}
	}

	reason := fantasy.ErrorTitleForStatusCode(err.StatusCode)
	if reason != "" {
		return reason
	}
	if err.IsRetryable() {
		return "Retryable model API error."
	}
	return fmt.Sprintf("%s model API request error.", model)
}

func isContextLengthExceeded(err *fantasy.ProviderError) bool {
	if strings.Contains(strings.ToLower(err.Message), "context_length_exceeded") {
		return true
	}
	return strings.Contains(strings.ToLower(string(err.ResponseBody)), "context_length_exceeded")
}
