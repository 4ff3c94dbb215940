// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package lumodb

import (
	"encoding/json"
	"fmt"

	"github.com/lumowallet/lumowallet/wallet"
)

// encodeMetadata serializes a metadata record as a JSON object.
func encodeMetadata(meta *wallet.Metadata) (string, error) {
	b, err := json.Marshal(meta)
	if err != nil {
		return "", storeError(ErrSerialization,
			fmt.Sprintf("encode wallet %s", meta.ID), err)
	}
	return string(b), nil
}

// decodeMetadata parses the record stored under key. The key must match the
// id inside the record.
func decodeMetadata(key, value string) (wallet.Metadata, error) {
	var meta wallet.Metadata
	if err := json.Unmarshal([]byte(value), &meta); err != nil {
		return meta, storeError(ErrSerialization,
			fmt.Sprintf("decode wallet %s", key), err)
	}

	if meta.ID.String() != key {
		return meta, storeError(ErrSerialization, fmt.Sprintf("wallet "+
			"record %s holds id %s", key, meta.ID), nil)
	}

	return meta, nil
}
