package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// Session describes one run of an application mode.
type Session struct {
	ID        int64
	StartTime time.Time
	Mode      string
	Config    *string
}

// CFRRecord is one stored channel-metrics row, decoded for readers such as
// the waterfall renderer.
type CFRRecord struct {
	Timestamp          time.Time
	RMSDelaySpread     float64
	CoherenceBandwidth float64
	AnomalyScore       *float64
	CFRMagDB           []float64
}

// encodeVector packs a float64 vector as little-endian bytes for a BLOB
// column.
func encodeVector(v []float64) []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, v)
	return buf.Bytes()
}

// decodeVector is the inverse of encodeVector.
func decodeVector(data []byte) ([]float64, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 8", len(data))
	}
	v := make([]float64, len(data)/8)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &v); err != nil {
		return nil, fmt.Errorf("decoding vector blob: %w", err)
	}
	return v, nil
}
