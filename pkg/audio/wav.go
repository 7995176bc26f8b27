package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Format describes 16-bit little-endian PCM
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

var errNotWAV = errors.New("not a RIFF/WAVE file")

// parseWAV returns the format and raw samples of a PCM WAV file.
// Only uncompressed 16-bit audio is accepted since that is what the output plays.
func parseWAV(data []byte) (Format, []byte, error) {
	r := bytes.NewReader(data)

	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Format{}, nil, errNotWAV
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return Format{}, nil, errNotWAV
	}

	var format Format
	var haveFormat bool
	for {
		var chunk struct {
			ID   [4]byte
			Size uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return Format{}, nil, errors.New("wav: no data chunk")
			}
			return Format{}, nil, err
		}

		switch string(chunk.ID[:]) {
		case "fmt ":
			var fmtChunk struct {
				AudioFormat   uint16
				Channels      uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}
			if chunk.Size < 16 {
				return Format{}, nil, fmt.Errorf("wav: fmt chunk too short (%d)", chunk.Size)
			}
			if err := binary.Read(r, binary.LittleEndian, &fmtChunk); err != nil {
				return Format{}, nil, fmt.Errorf("wav: fmt chunk: %w", err)
			}
			if fmtChunk.AudioFormat != 1 {
				return Format{}, nil, fmt.Errorf("wav: unsupported encoding %d", fmtChunk.AudioFormat)
			}
			format = Format{
				SampleRate: int(fmtChunk.SampleRate),
				Channels:   int(fmtChunk.Channels),
				BitDepth:   int(fmtChunk.BitsPerSample),
			}
			if format.BitDepth != 16 {
				return Format{}, nil, fmt.Errorf("wav: unsupported bit depth %d", format.BitDepth)
			}
			haveFormat = true
			if _, err := r.Seek(int64(chunk.Size-16)+int64(chunk.Size&1), io.SeekCurrent); err != nil {
				return Format{}, nil, err
			}
		case "data":
			if !haveFormat {
				return Format{}, nil, errors.New("wav: data before fmt chunk")
			}
			size := int(chunk.Size)
			if size > r.Len() {
				size = r.Len()
			}
			samples := make([]byte, size)
			if _, err := io.ReadFull(r, samples); err != nil {
				return Format{}, nil, fmt.Errorf("wav: data chunk: %w", err)
			}
			return format, samples, nil
		default:
			// chunks are word aligned
			if _, err := r.Seek(int64(chunk.Size)+int64(chunk.Size&1), io.SeekCurrent); err != nil {
				return Format{}, nil, err
			}
		}
	}
}

// encodeWAV wraps 16-bit PCM in a WAV container
func encodeWAV(f Format, samples []byte) []byte {
	var buf bytes.Buffer
	blockAlign := f.Channels * f.BitDepth / 8

	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(samples)))
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(&buf, binary.LittleEndian, struct {
		Size          uint32
		AudioFormat   uint16
		Channels      uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
	}{16, 1, uint16(f.Channels), uint32(f.SampleRate), uint32(f.SampleRate * blockAlign), uint16(blockAlign), uint16(f.BitDepth)})
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(samples)))
	buf.Write(samples)
	return buf.Bytes()
}
