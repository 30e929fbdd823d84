package gmail

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/mikey/mail-triage/internal/core"
	"github.com/sony/gobreaker"
	"google.golang.org/api/googleapi"
)

// wrapError maps a Gmail API failure onto a boundary error kind
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return core.NewBoundaryError(core.KindTransientNetwork, op, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 401:
			return core.NewBoundaryError(core.KindAuthRevoked, op, err)
		case apiErr.Code == 403:
			if isRateLimit(apiErr) {
				return core.NewBoundaryError(core.KindQuotaExceeded, op, err)
			}
			return core.NewBoundaryError(core.KindAuthRevoked, op, err)
		case apiErr.Code == 404:
			return core.NewBoundaryError(core.KindNotFound, op, err)
		case apiErr.Code == 429:
			return core.NewBoundaryError(core.KindQuotaExceeded, op, err)
		case apiErr.Code >= 500:
			return core.NewBoundaryError(core.KindTransientNetwork, op, err)
		}
		return err
	}

	// Token refresh failures surface as oauth2 errors with invalid_grant
	if strings.Contains(err.Error(), "invalid_grant") {
		return core.NewBoundaryError(core.KindAuthRevoked, op, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return core.NewBoundaryError(core.KindTransientNetwork, op, err)
	}
	return err
}

func isRateLimit(apiErr *googleapi.Error) bool {
	for _, item := range apiErr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded", "dailyLimitExceeded":
			return true
		}
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "rate limit")
}

// tripsBreaker reports whether a failure counts against the circuit breaker.
// Client errors say nothing about the health of the service.
func tripsBreaker(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	return !errors.Is(err, context.Canceled)
}
