package looper

/*------------------------------------------------------------------
 *
 * Purpose:	Minimal stereo float32 WAV read/write.
 *
 * Description:	No WAV-decoding library appears anywhere in the example
 *		pack, so this is one of the module's few standard-library
 *		-only pieces (see DESIGN.md). The writer emits a 44-byte
 *		canonical RIFF/WAVE header with format tag 3 (IEEE float),
 *		plus raw interleaved samples. The reader (also used for
 *		user-supplied click samples) assumes that same 44-byte
 *		layout and checks only the RIFF/WAVE tags, channel count
 *		and bit depth; it does not check the format tag or sample
 *		rate. No compressed or exotic chunk layouts are supported.
 *
 *------------------------------------------------------------------*/

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	wavFormatIEEEFloat = 3
	wavChannels        = 2
	wavBitsPerSample   = 32
	wavHeaderSize      = 44
)

var ErrNotWAV = errors.New("looper: not a recognised stereo float32 WAV file")

// WriteWAVFile writes frames (interleaved L,R,L,R,... float32) as a stereo
// float32 WAV file, via write-then-rename for atomicity (Design Notes §9).
func WriteWAVFile(path string, frames []float32) error {
	var tmp = path + ".tmp"

	var f, createErr = os.Create(tmp)
	if createErr != nil {
		return fmt.Errorf("%w: %v", ErrFilesystem, createErr)
	}

	if writeErr := writeWAV(f, frames); writeErr != nil {
		f.Close()
		os.Remove(tmp)

		return fmt.Errorf("%w: %v", ErrFilesystem, writeErr)
	}

	if closeErr := f.Close(); closeErr != nil {
		return fmt.Errorf("%w: %v", ErrFilesystem, closeErr)
	}

	if renameErr := os.Rename(tmp, path); renameErr != nil {
		return fmt.Errorf("%w: %v", ErrFilesystem, renameErr)
	}

	return nil
}

func writeWAV(w io.Writer, frames []float32) error {
	var dataBytes = len(frames) * 4
	var byteRate = SampleRate * wavChannels * (wavBitsPerSample / 8)
	var blockAlign = wavChannels * (wavBitsPerSample / 8)

	var header [wavHeaderSize]byte
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataBytes))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], wavFormatIEEEFloat)
	binary.LittleEndian.PutUint16(header[22:24], wavChannels)
	binary.LittleEndian.PutUint32(header[24:28], SampleRate)
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], wavBitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataBytes))

	if _, writeErr := w.Write(header[:]); writeErr != nil {
		return writeErr
	}

	return binary.Write(w, binary.LittleEndian, frames)
}

// ReadWAVFile reads a stereo float32 WAV file back into interleaved frames.
func ReadWAVFile(path string) ([]float32, error) {
	var data, readErr = os.ReadFile(path)
	if readErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrFilesystem, readErr)
	}

	return parseWAV(data)
}

func parseWAV(data []byte) ([]float32, error) {
	if len(data) < wavHeaderSize {
		return nil, ErrNotWAV
	}

	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}

	var channels = binary.LittleEndian.Uint16(data[22:24])
	var bits = binary.LittleEndian.Uint16(data[34:36])

	if channels != wavChannels || bits != wavBitsPerSample {
		return nil, ErrNotWAV
	}

	var dataSize = binary.LittleEndian.Uint32(data[40:44])
	var payload = data[wavHeaderSize:]

	if uint32(len(payload)) < dataSize {
		dataSize = uint32(len(payload))
	}

	var nSamples = int(dataSize) / 4
	var frames = make([]float32, nSamples)

	if err := binary.Read(bytes.NewReader(payload[:nSamples*4]), binary.LittleEndian, frames); err != nil {
		return nil, err
	}

	return frames, nil
}
