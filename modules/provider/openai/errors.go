package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/flemzord/sweagent/internal/provider"
)

var errAuth = errors.New("openai: authentication failed")

// contextLengthMarkers are the phrases the OpenAI-style servers use when a
// request does not fit the model window.
var contextLengthMarkers = []string{"context_length", "context length", "maximum context", "too many tokens"}

// mapHTTPError turns a non-2xx chat completion response from the named
// flavor into a provider sentinel error.
func mapHTTPError(name string, statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	msg := errorMessage(body)
	switch {
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s: %s", provider.ErrRateLimit, name, msg)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return fmt.Errorf("%w (%s): %s", errAuth, name, msg)
	case statusCode == http.StatusBadRequest && mentionsContextLength(msg):
		return fmt.Errorf("%w: %s: %s", provider.ErrContextLength, name, msg)
	case statusCode == http.StatusRequestTimeout || statusCode >= 500:
		return fmt.Errorf("%w: %s: HTTP %d: %s", provider.ErrProviderDown, name, statusCode, msg)
	default:
		return fmt.Errorf("%s: HTTP %d: %s", name, statusCode, msg)
	}
}

// errorMessage extracts error.message from an error body. Some servers
// answer with plain text, which is returned trimmed.
func errorMessage(body []byte) string {
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	return strings.TrimSpace(string(body))
}

func mentionsContextLength(msg string) bool {
	msg = strings.ToLower(msg)
	for _, m := range contextLengthMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// mapConnectionError maps network failures to provider.ErrProviderDown.
// Context errors pass through unchanged.
func mapConnectionError(name string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %s: %w", provider.ErrProviderDown, name, err)
	}
	return fmt.Errorf("%s: %w", name, err)
}
