// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/lumowallet/lumowallet/netparams"
	"github.com/lumowallet/lumowallet/wallet"
	"github.com/tidwall/gjson"
)

// FeeEstimates are the recommended fee rates of a mempool.space style
// service, in sat/vB.
type FeeEstimates struct {
	Fastest  float64
	HalfHour float64
	Hour     float64
	Economy  float64
	Minimum  float64
}

// Fast is the rate for confirmation in the next block.
func (f FeeEstimates) Fast() float64 {
	return f.Fastest
}

// Medium is the rate for confirmation within half an hour.
func (f FeeEstimates) Medium() float64 {
	return f.HalfHour
}

// Slow is the rate for confirmation within an hour.
func (f FeeEstimates) Slow() float64 {
	return f.Hour
}

// FeeRate converts a sat/vB estimate to a wallet fee rate.
func FeeRate(satPerVByte float64) (wallet.FeeRate, error) {
	return wallet.FeeRateFromSatPerVByte(satPerVByte)
}

// FeeClient fetches fee estimates for one network.
type FeeClient struct {
	url  string
	http *http.Client
}

// NewFeeClient returns a client for the fee service of params.
// ErrFeeEstimationUnsupported is returned for networks without one.
func NewFeeClient(params *netparams.Params,
	httpClient *http.Client) (*FeeClient, error) {

	if params.FeeEstimateURL == "" {
		return nil, fmt.Errorf("%w: %v", ErrFeeEstimationUnsupported,
			params.Network)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultRequestTimeout}
	}

	return &FeeClient{url: params.FeeEstimateURL, http: httpClient}, nil
}

// Estimates fetches the current recommended rates.
func (f *FeeClient) Estimates(ctx context.Context) (FeeEstimates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return FeeEstimates{}, err
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return FeeEstimates{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return FeeEstimates{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return FeeEstimates{}, &HTTPError{
			URL: f.url, Status: resp.StatusCode, Body: string(body),
		}
	}

	if !gjson.ValidBytes(body) {
		return FeeEstimates{}, fmt.Errorf("invalid fee estimate "+
			"response from %s", f.url)
	}

	fields := gjson.GetManyBytes(
		body, "fastestFee", "halfHourFee", "hourFee", "economyFee",
		"minimumFee",
	)
	for i, name := range []string{
		"fastestFee", "halfHourFee", "hourFee",
	} {
		if !fields[i].Exists() {
			return FeeEstimates{}, fmt.Errorf("fee estimate "+
				"response from %s lacks %s", f.url, name)
		}
	}

	est := FeeEstimates{
		Fastest:  fields[0].Float(),
		HalfHour: fields[1].Float(),
		Hour:     fields[2].Float(),
		Economy:  fields[3].Float(),
		Minimum:  fields[4].Float(),
	}

	log.Debugf("Fee estimates from %s: %+v", f.url, est)

	return est, nil
}
