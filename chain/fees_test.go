// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lumowallet/lumowallet/netparams"
	"github.com/stretchr/testify/require"
)

func feeParams(url string) *netparams.Params {
	params := netparams.TestNet3Params
	params.FeeEstimateURL = url
	return &params
}

// TestFeeEstimates covers integer and fractional responses.
func TestFeeEstimates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want FeeEstimates
	}{
		{
			name: "integers",
			body: `{"fastestFee":25,"halfHourFee":20,"hourFee":15,` +
				`"economyFee":8,"minimumFee":1}`,
			want: FeeEstimates{25, 20, 15, 8, 1},
		},
		{
			name: "fractions",
			body: `{"fastestFee":2.5,"halfHourFee":1.8,` +
				`"hourFee":1.2,"economyFee":1.01,"minimumFee":1}`,
			want: FeeEstimates{2.5, 1.8, 1.2, 1.01, 1},
		},
	}

	for _, test := range tests {
		srv := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, test.body)
			},
		))

		client, err := NewFeeClient(feeParams(srv.URL), nil)
		require.NoError(t, err)

		est, err := client.Estimates(context.Background())
		srv.Close()

		require.NoError(t, err, test.name)
		require.Equal(t, test.want, est, test.name)
		require.Equal(t, test.want.Fastest, est.Fast())
		require.Equal(t, test.want.HalfHour, est.Medium())
		require.Equal(t, test.want.Hour, est.Slow())
	}
}

// TestFeeEstimatesBadResponse covers malformed and failed responses.
func TestFeeEstimatesBadResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not json", http.StatusOK, "<html>"},
		{"missing field", http.StatusOK, `{"fastestFee":3}`},
		{"server error", http.StatusInternalServerError, "oops"},
	}

	for _, test := range tests {
		srv := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(test.status)
				fmt.Fprint(w, test.body)
			},
		))

		client, err := NewFeeClient(feeParams(srv.URL), nil)
		require.NoError(t, err)

		_, err = client.Estimates(context.Background())
		srv.Close()

		require.Error(t, err, test.name)
	}
}

// TestFeeEstimationUnsupported checks regtest has no fee service.
func TestFeeEstimationUnsupported(t *testing.T) {
	t.Parallel()

	_, err := NewFeeClient(netparams.Regtest.Params(), nil)
	require.ErrorIs(t, err, ErrFeeEstimationUnsupported)
}

// TestFeeRate checks sat/vB estimates convert to wallet rates.
func TestFeeRate(t *testing.T) {
	t.Parallel()

	rate, err := FeeRate(2)
	require.NoError(t, err)
	require.EqualValues(t, 500, rate)
}
