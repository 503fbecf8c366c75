package auctionerrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, want: ErrAuth},
		{name: "forbidden", status: http.StatusForbidden, want: ErrAuthorization},
		{name: "not_found", status: http.StatusNotFound, body: "auction 7 not found", want: ErrNotFound},
		{name: "bad_request", status: http.StatusBadRequest, body: "bid too low", want: ErrServer},
		{name: "internal", status: http.StatusInternalServerError, want: ErrServer},
		{name: "bad_gateway", status: http.StatusBadGateway, want: ErrServer},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := FromStatus(tc.status, tc.body)
			require.ErrorIs(t, err, tc.want)
			require.Contains(t, err.Error(), fmt.Sprintf("status %d", tc.status))
			if tc.body != "" {
				require.Contains(t, err.Error(), tc.body)
			}
		})
	}
}

func TestFromStatus_TruncatesLongBodies(t *testing.T) {
	t.Parallel()

	err := FromStatus(http.StatusInternalServerError, strings.Repeat("x", 1000))
	require.Less(t, len(err.Error()), 300)
}

func TestClass(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "bid_too_low", err: ErrBidTooLow, want: ErrValidation},
		{name: "not_connected", err: fmt.Errorf("send: %w", ErrNotConnected), want: ErrTransport},
		{name: "expired", err: ErrSessionExpired, want: ErrAuth},
		{name: "unclassified", err: errors.New("boom"), want: ErrServer},
	}

	for _, tc := range tests {
		require.Equal(t, tc.want, Class(tc.err), tc.name)
	}
}
