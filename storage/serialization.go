// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/shelfvec/core"
)

// VectorMUS encodes a vector as a varint length followed by raw float32
// values.
var VectorMUS = ord.NewSliceSer[float32](raw.Float32)

// MarshalVector serializes a vector to bytes.
func MarshalVector(vector []float32) []byte {
	buf := make([]byte, VectorMUS.Size(vector))
	VectorMUS.Marshal(vector, buf)
	return buf
}

// UnmarshalVector deserializes a vector and returns the bytes consumed.
func UnmarshalVector(data []byte) ([]float32, int, error) {
	// Check the declared length against the data before the slice is
	// allocated.
	length, n, err := varint.PositiveInt.Unmarshal(data)
	if err != nil {
		return nil, 0, truncated(err)
	}
	if length < 0 || length > (len(data)-n)/4 {
		return nil, 0, fmt.Errorf("%w: want %d floats, have %d bytes", ErrTruncatedData, length, len(data)-n)
	}

	vector, n, err := VectorMUS.Unmarshal(data)
	if err != nil {
		return nil, 0, truncated(err)
	}
	return vector, n, nil
}

// MarshalPoint serializes a point's vector and JSON payload. The identifier
// is carried by the storage key.
func MarshalPoint(point *core.PointRecord) ([]byte, error) {
	payload, err := json.Marshal(point.Payload)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, VectorMUS.Size(point.Vector)+ord.ByteSlice.Size(payload))
	n := VectorMUS.Marshal(point.Vector, buf)
	ord.ByteSlice.Marshal(payload, buf[n:])
	return buf, nil
}

// UnmarshalPoint deserializes a point written by MarshalPoint.
func UnmarshalPoint(id core.PointID, data []byte) (*core.PointRecord, error) {
	vector, n, err := UnmarshalVector(data)
	if err != nil {
		return nil, err
	}
	body, _, err := ord.ByteSlice.Unmarshal(data[n:])
	if err != nil {
		return nil, truncated(err)
	}
	var payload core.Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	return &core.PointRecord{ID: id, Vector: vector, Payload: payload}, nil
}

func truncated(err error) error {
	if errors.Is(err, mus.ErrTooSmallByteSlice) {
		return fmt.Errorf("%w: %w", ErrTruncatedData, err)
	}
	return err
}
