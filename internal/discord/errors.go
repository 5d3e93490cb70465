package discord

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/prperemyshlev/guild-rejoin/internal/domain"
	"golang.org/x/oauth2"
)

// ErrCodeRejected is returned when the token endpoint refuses an authorization code
var ErrCodeRejected = errors.New("authorization code rejected by provider")

// classifyTransportError maps a failed round trip to the provider error taxonomy.
// A caller-side cancellation is returned as is.
func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", domain.ErrProviderTimeout, err)
	}

	return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
}

// classifyTokenError separates token endpoint rejections from transport failures
func classifyTokenError(err error, rejected error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		code := 0
		if retrieveErr.Response != nil {
			code = retrieveErr.Response.StatusCode
		}
		if retrieveErr.ErrorCode != "" {
			return fmt.Errorf("%w: status %d: %s", rejected, code, retrieveErr.ErrorCode)
		}
		return fmt.Errorf("%w: status %d: %s", rejected, code, string(retrieveErr.Body))
	}

	return classifyTransportError(err)
}
