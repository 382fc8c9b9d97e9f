// Package wav provides parsing of RIFF/WAVE audio files.
//
// WAVE is the little-endian RIFF container used by virtually every PCM
// recording tool. This parser supports:
//   - Integer PCM at 8, 16, 24 and 32 bits per sample
//   - IEEE float32 data
//   - Mono and multi-channel interleaved frames
//
// Compressed formats (ADPCM, MP3-in-WAV and friends) are not supported.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Errors.
var (
	ErrNotWAVE           = errors.New("wav: not a RIFF/WAVE file")
	ErrUnsupportedFormat = errors.New("wav: unsupported format")
	ErrInvalidFile       = errors.New("wav: invalid file structure")
	ErrMissingChunk      = errors.New("wav: missing required chunk")
)

// Format tags accepted in the fmt chunk.
const (
	formatPCM   = 1
	formatFloat = 3
)

// File represents a parsed WAVE file.
type File struct {
	// Audio metadata
	NumChannels   int
	SampleRate    float64
	BitsPerSample int
	NumSamples    int

	// True when the data chunk held IEEE float samples.
	Float bool

	// Decoded audio data as float32 in range [-1.0, 1.0]
	// Organized as [channel][sample]
	Data [][]float32
}

// Duration returns the audio length in seconds.
func (f *File) Duration() float64 {
	if f.SampleRate <= 0 {
		return 0
	}
	return float64(f.NumSamples) / f.SampleRate
}

// Parse reads and parses a WAVE file from the given reader.
// Returns a File containing the decoded audio data.
func Parse(r io.Reader) (*File, error) {
	// Read RIFF chunk header
	var riffHeader [12]byte
	if _, err := io.ReadFull(r, riffHeader[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	if string(riffHeader[0:4]) != "RIFF" {
		return nil, ErrNotWAVE
	}
	if string(riffHeader[8:12]) != "WAVE" {
		return nil, ErrNotWAVE
	}

	file := &File{}
	var fmtFound, dataFound bool
	var sampleData []byte

	// Walk chunks until EOF
	for {
		var chunkHeader [8]byte
		if _, err := io.ReadFull(r, chunkHeader[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
		}

		chunkID := string(chunkHeader[0:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])

		// RIFF chunks are padded to even boundaries
		paddedSize := chunkSize
		if paddedSize%2 != 0 {
			paddedSize++
		}

		switch chunkID {
		case "fmt ":
			if err := file.parseFmt(r, chunkSize); err != nil {
				return nil, err
			}
			fmtFound = true
			if chunkSize%2 != 0 {
				_, _ = io.CopyN(io.Discard, r, 1)
			}

		case "data":
			sampleData = make([]byte, chunkSize)
			if _, err := io.ReadFull(r, sampleData); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
			}
			dataFound = true
			if chunkSize%2 != 0 {
				_, _ = io.CopyN(io.Discard, r, 1)
			}

		default:
			// Skip unknown chunks (LIST, cue, bext, ...)
			if _, err := io.CopyN(io.Discard, r, int64(paddedSize)); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return nil, fmt.Errorf("%w: failed to skip chunk %s: %w", ErrInvalidFile, chunkID, err)
			}
		}
	}

	if !fmtFound {
		return nil, fmt.Errorf("%w: fmt chunk", ErrMissingChunk)
	}
	if !dataFound {
		return nil, fmt.Errorf("%w: data chunk", ErrMissingChunk)
	}

	if err := file.decodeAudio(sampleData); err != nil {
		return nil, err
	}

	return file, nil
}

// parseFmt parses the fmt chunk.
func (f *File) parseFmt(r io.Reader, size uint32) error {
	// The canonical PCM fmt chunk is 16 bytes; extensions append after it.
	if size < 16 {
		return fmt.Errorf("%w: fmt chunk too small", ErrInvalidFile)
	}

	var hdr [16]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	formatTag := binary.LittleEndian.Uint16(hdr[0:2])
	f.NumChannels = int(binary.LittleEndian.Uint16(hdr[2:4]))
	f.SampleRate = float64(binary.LittleEndian.Uint32(hdr[4:8]))
	f.BitsPerSample = int(binary.LittleEndian.Uint16(hdr[14:16]))

	switch formatTag {
	case formatPCM:
		if f.BitsPerSample != 8 && f.BitsPerSample != 16 && f.BitsPerSample != 24 && f.BitsPerSample != 32 {
			return fmt.Errorf("%w: unsupported PCM bit depth %d", ErrUnsupportedFormat, f.BitsPerSample)
		}
	case formatFloat:
		if f.BitsPerSample != 32 {
			return fmt.Errorf("%w: unsupported float bit depth %d", ErrUnsupportedFormat, f.BitsPerSample)
		}
		f.Float = true
	default:
		return fmt.Errorf("%w: format tag %d", ErrUnsupportedFormat, formatTag)
	}

	if f.NumChannels < 1 || f.NumChannels > 8 {
		return fmt.Errorf("%w: unsupported channel count %d", ErrUnsupportedFormat, f.NumChannels)
	}
	if f.SampleRate <= 0 || f.SampleRate > 384000 {
		return fmt.Errorf("%w: invalid sample rate %v", ErrUnsupportedFormat, f.SampleRate)
	}

	// Skip extension bytes (cbSize and whatever follows)
	if size > 16 {
		if _, err := io.CopyN(io.Discard, r, int64(size-16)); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidFile, err)
		}
	}

	return nil
}

// decodeAudio converts raw interleaved sample bytes to float32 audio data.
func (f *File) decodeAudio(data []byte) error {
	bytesPerSample := f.BitsPerSample / 8
	frameSize := bytesPerSample * f.NumChannels
	if frameSize == 0 {
		return fmt.Errorf("%w: zero frame size", ErrInvalidFile)
	}
	f.NumSamples = len(data) / frameSize

	f.Data = make([][]float32, f.NumChannels)
	for ch := range f.Data {
		f.Data[ch] = make([]float32, f.NumSamples)
	}

	offset := 0
	for frame := 0; frame < f.NumSamples; frame++ {
		for ch := 0; ch < f.NumChannels; ch++ {
			var sample float32

			switch {
			case f.Float:
				bits := binary.LittleEndian.Uint32(data[offset : offset+4])
				sample = math.Float32frombits(bits)
				offset += 4

			case f.BitsPerSample == 8:
				// 8-bit WAVE is unsigned, biased at 128
				sample = (float32(data[offset]) - 128.0) / 128.0
				offset++

			case f.BitsPerSample == 16:
				s := int16(binary.LittleEndian.Uint16(data[offset : offset+2]))
				sample = float32(s) / 32768.0
				offset += 2

			case f.BitsPerSample == 24:
				b0, b1, b2 := data[offset], data[offset+1], data[offset+2]
				// Sign-extend from 24 to 32 bits; WAVE is little-endian so
				// b2 carries the sign.
				var s int32
				if b2&0x80 != 0 {
					s = -1<<24 | int32(b2)<<16 | int32(b1)<<8 | int32(b0)
				} else {
					s = int32(b2)<<16 | int32(b1)<<8 | int32(b0)
				}
				sample = float32(s) / 8388608.0
				offset += 3

			case f.BitsPerSample == 32:
				s := int32(binary.LittleEndian.Uint32(data[offset : offset+4]))
				sample = float32(float64(s) / 2147483648.0)
				offset += 4
			}

			f.Data[ch][frame] = sample
		}
	}

	return nil
}

// StereoPair returns the file's audio as exactly two channels: stereo files
// pass through, mono duplicates into both, and extra channels are dropped.
func (f *File) StereoPair() (left, right []float32) {
	switch {
	case f.NumChannels >= 2:
		return f.Data[0], f.Data[1]
	case f.NumChannels == 1:
		return f.Data[0], f.Data[0]
	default:
		return nil, nil
	}
}
