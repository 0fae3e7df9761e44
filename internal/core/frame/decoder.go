// Package frame decodes the fixed-width binary files written by the
// acquisition hardware.
package frame

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/ghalamif/PressFlow/internal/domain"
)

// ValueSize is the width of one channel value on disk.
const ValueSize = 8

// Decoder turns frame files into raw samples. Channels fixes both the channel
// count and the order of values inside each record.
type Decoder struct {
	Channels []string
}

func NewDecoder(channels []string) *Decoder {
	return &Decoder{Channels: channels}
}

// RecordSize is the byte length of one multi-channel record.
func (d *Decoder) RecordSize() int {
	return len(d.Channels) * ValueSize
}

// DecodeFile reads path and stamps every record using state.
func (d *Decoder) DecodeFile(path string, state *domain.RunState) ([]domain.RawSample, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	return d.Decode(data, state)
}

// Decode converts a buffer of little-endian float64 records. Trailing bytes
// that do not form a complete record are dropped and their count returned.
func (d *Decoder) Decode(data []byte, state *domain.RunState) ([]domain.RawSample, int, error) {
	if len(d.Channels) == 0 {
		return nil, 0, fmt.Errorf("%w: no channels configured", domain.ErrMalformedFrame)
	}
	if !state.Started() {
		return nil, 0, fmt.Errorf("run state not seeded")
	}
	if len(data) == 0 {
		return nil, 0, nil
	}

	size := d.RecordSize()
	n := len(data) / size
	trailing := len(data) % size
	if n == 0 {
		return nil, trailing, fmt.Errorf("%w: %d bytes, record is %d", domain.ErrMalformedFrame, len(data), size)
	}

	out := make([]domain.RawSample, n)
	for i := 0; i < n; i++ {
		rec := data[i*size : (i+1)*size]
		values := make(map[string]float64, len(d.Channels))
		for c, ch := range d.Channels {
			bits := binary.LittleEndian.Uint64(rec[c*ValueSize:])
			values[ch] = Round3(math.Float64frombits(bits))
		}
		seq, ts := state.Next()
		out[i] = domain.RawSample{Seq: seq, Timestamp: ts, Values: values}
	}
	return out, trailing, nil
}

// Encode lays out rows (one slice of channel values per record) in the frame
// format.
func Encode(rows [][]float64) []byte {
	if len(rows) == 0 {
		return nil
	}
	width := len(rows[0])
	buf := make([]byte, 0, len(rows)*width*ValueSize)
	var tmp [ValueSize]byte
	for _, row := range rows {
		for _, v := range row {
			binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
			buf = append(buf, tmp[:]...)
		}
	}
	return buf
}

// Round3 rounds to 3 decimal places.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
