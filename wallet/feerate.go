// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"fmt"
	"math"

	"github.com/btcsuite/btcd/btcutil"
)

// FeeRate is a fee rate in satoshis per 1000 weight units.
type FeeRate uint64

// witnessScaleFactor is the number of weight units per virtual byte.
const witnessScaleFactor = 4

// FeeRateFromSatPerVByte converts a sat/vB rate, rounding up to the next
// sat/kwu.
func FeeRateFromSatPerVByte(satPerVByte float64) (FeeRate, error) {
	if math.IsNaN(satPerVByte) || math.IsInf(satPerVByte, 0) ||
		satPerVByte < 0 {

		return 0, NewError(ErrInvalidAmount,
			fmt.Sprintf("invalid fee rate %v sat/vB", satPerVByte), nil)
	}

	kwu := satPerVByte * 1000 / witnessScaleFactor

	// Absorb float noise such as 1.1*250 = 275.00000000000006.
	if rounded := math.Round(kwu); math.Abs(kwu-rounded) < 1e-6 {
		return FeeRate(rounded), nil
	}
	return FeeRate(math.Ceil(kwu)), nil
}

// SatPerVByte returns the rate in sat/vB.
func (r FeeRate) SatPerVByte() float64 {
	return float64(r) * witnessScaleFactor / 1000
}

// SatPerKVByte returns the rate in sat/kvB, the unit used by relay policy.
func (r FeeRate) SatPerKVByte() btcutil.Amount {
	return btcutil.Amount(r * witnessScaleFactor)
}

// FeeForVSize returns the fee for a transaction of vsize virtual bytes,
// rounded up.
func (r FeeRate) FeeForVSize(vsize int) btcutil.Amount {
	weight := uint64(vsize) * witnessScaleFactor
	return btcutil.Amount((uint64(r)*weight + 999) / 1000)
}

// String returns the rate formatted as sat/vB.
func (r FeeRate) String() string {
	return fmt.Sprintf("%.2f sat/vB", r.SatPerVByte())
}
