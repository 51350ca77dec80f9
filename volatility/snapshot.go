package volatility

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"
	"google.golang.org/protobuf/encoding/protowire"
)

// Snapshot wire fields. Doubles are packed, values are row-major.
const (
	fieldMoneyness     protowire.Number = 1
	fieldTimes         protowire.Number = 2
	fieldValues        protowire.Number = 3
	fieldInterpolation protowire.Number = 4
	fieldExtrapolation protowire.Number = 5
)

// maxFrameSize bounds the payload ReadFrame accepts.
const maxFrameSize = 64 << 20

var errFrameTooLarge = errors.New("volatility: snapshot frame too large")

// MarshalBinary encodes the surface as a zstd-compressed protobuf message.
func (s *Surface) MarshalBinary() ([]byte, error) {
	s.mu.RLock()
	var b []byte
	b = appendDoubles(b, fieldMoneyness, s.moneyness)
	b = appendDoubles(b, fieldTimes, s.times)
	values := make([]float64, 0, len(s.moneyness)*len(s.times))
	for _, row := range s.grid {
		values = append(values, row...)
	}
	b = appendDoubles(b, fieldValues, values)
	b = protowire.AppendTag(b, fieldInterpolation, protowire.BytesType)
	b = protowire.AppendString(b, s.interpolation)
	b = protowire.AppendTag(b, fieldExtrapolation, protowire.BytesType)
	b = protowire.AppendString(b, s.extrapolation)
	s.mu.RUnlock()

	return compress(b)
}

// UnmarshalBinary replaces the surface with a MarshalBinary encoding.
func (s *Surface) UnmarshalBinary(data []byte) error {
	b, err := decompress(data)
	if err != nil {
		return fmt.Errorf("volatility: decompress snapshot: %w", err)
	}

	var moneyness, times, values []float64
	interpolation, extrapolation := InterpolationNatural, ExtrapolationNatural
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		if typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			continue
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		switch num {
		case fieldMoneyness:
			moneyness, err = unpackDoubles(v)
		case fieldTimes:
			times, err = unpackDoubles(v)
		case fieldValues:
			values, err = unpackDoubles(v)
		case fieldInterpolation:
			interpolation = string(v)
		case fieldExtrapolation:
			extrapolation = string(v)
		}
		if err != nil {
			return fmt.Errorf("volatility: field %d: %w", num, err)
		}
	}

	if len(values) != len(moneyness)*len(times) {
		return fmt.Errorf("volatility: snapshot has %d values for a %dx%d grid", len(values), len(moneyness), len(times))
	}
	grid := make([][]float64, len(moneyness))
	for i := range grid {
		grid[i] = values[i*len(times) : (i+1)*len(times)]
	}
	decoded, err := NewSurface(moneyness, times, grid)
	if err != nil {
		return fmt.Errorf("volatility: %w", err)
	}
	if err := checkInterpolation(interpolation); err != nil {
		return fmt.Errorf("volatility: %w", err)
	}
	if err := checkExtrapolation(extrapolation); err != nil {
		return fmt.Errorf("volatility: %w", err)
	}

	s.mu.Lock()
	s.moneyness, s.times, s.grid = decoded.moneyness, decoded.times, decoded.grid
	s.interpolation, s.extrapolation = interpolation, extrapolation
	s.mu.Unlock()
	return nil
}

// WriteFrame writes the snapshot prefixed with its 8-byte big-endian length.
func (s *Surface) WriteFrame(w io.Writer) error {
	data, err := s.MarshalBinary()
	if err != nil {
		return err
	}
	frame := make([]byte, 8, 8+len(data))
	binary.BigEndian.PutUint64(frame, uint64(len(data)))
	frame = append(frame, data...)
	_, err = w.Write(frame)
	return err
}

// ReadFrame reads one WriteFrame frame. It returns io.EOF when r is
// exhausted before a frame starts.
func ReadFrame(r io.Reader) (*Surface, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint64(header)
	if size > maxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", errFrameTooLarge, size)
	}
	packet := make([]byte, size)
	if _, err := io.ReadFull(r, packet); err != nil {
		return nil, fmt.Errorf("volatility: read frame: %w", err)
	}
	s := &Surface{}
	if err := s.UnmarshalBinary(packet); err != nil {
		return nil, err
	}
	return s, nil
}

func appendDoubles(b []byte, num protowire.Number, xs []float64) []byte {
	packed := make([]byte, 0, 8*len(xs))
	for _, x := range xs {
		packed = protowire.AppendFixed64(packed, math.Float64bits(x))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

func unpackDoubles(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("packed doubles length %d is not a multiple of 8", len(b))
	}
	out := make([]float64, 0, len(b)/8)
	for len(b) > 0 {
		v, n := protowire.ConsumeFixed64(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		out = append(out, math.Float64frombits(v))
		b = b[n:]
	}
	return out, nil
}

func compress(input []byte) ([]byte, error) {
	var b bytes.Buffer
	encoder, err := zstd.NewWriter(&b, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, err
	}
	if _, err := encoder.Write(input); err != nil {
		encoder.Close()
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func decompress(input []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(bytes.NewReader(input), zstd.WithDecoderMaxMemory(maxFrameSize))
	if err != nil {
		return nil, err
	}
	defer decoder.Close()

	var out bytes.Buffer
	if _, err := out.ReadFrom(decoder); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
