// ABOUTME: Audio source abstraction for streaming from files or a test tone
// ABOUTME: Supports WAV, MP3, FLAC, and OGG files with automatic decoding
package server

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// Source provides interleaved signed 16-bit PCM samples
type Source interface {
	// Read fills samples with interleaved PCM. Returns the number of samples
	// read, or io.EOF once the source is exhausted.
	Read(samples []int16) (int, error)
	// SampleRate returns the sample rate of the audio
	SampleRate() int
	// Channels returns the number of channels
	Channels() int
	// Close closes the audio source
	Close() error
}

// NewSource creates an audio source from a file path. An empty path returns
// the test tone generator. File sources loop forever.
func NewSource(path string) (Source, error) {
	if path == "" {
		return NewToneSource(), nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		return NewWAVSource(path)
	case ".mp3":
		return NewMP3Source(path)
	case ".flac":
		return NewFLACSource(path)
	case ".ogg":
		return NewOGGSource(path)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s (supported: .wav, .mp3, .flac, .ogg)", ext)
	}
}

// WAVSource reads from a WAV file
type WAVSource struct {
	file       *os.File
	decoder    *wav.Decoder
	buf        *goaudio.IntBuffer
	sampleRate int
	channels   int
	bitDepth   int
}

// NewWAVSource creates a new WAV audio source
func NewWAVSource(filePath string) (*WAVSource, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("not a valid WAV file: %s", filePath)
	}

	log.Printf("Loaded WAV: %s (sample rate: %d Hz, channels: %d, bit depth: %d)",
		filepath.Base(filePath), decoder.SampleRate, decoder.NumChans, decoder.BitDepth)

	return &WAVSource{
		file:       f,
		decoder:    decoder,
		buf:        &goaudio.IntBuffer{Data: make([]int, 4096)},
		sampleRate: int(decoder.SampleRate),
		channels:   int(decoder.NumChans),
		bitDepth:   int(decoder.BitDepth),
	}, nil
}

func (s *WAVSource) Read(samples []int16) (int, error) {
	if cap(s.buf.Data) < len(samples) {
		s.buf.Data = make([]int, len(samples))
	}
	s.buf.Data = s.buf.Data[:len(samples)]

	n, err := s.decoder.PCMBuffer(s.buf)
	if err != nil {
		return 0, err
	}

	if n == 0 {
		// Loop the audio - seek back to start and re-open the decoder
		if _, seekErr := s.file.Seek(0, 0); seekErr != nil {
			return 0, fmt.Errorf("failed to seek to start: %w", seekErr)
		}
		s.decoder = wav.NewDecoder(s.file)
		if !s.decoder.IsValidFile() {
			return 0, fmt.Errorf("WAV file invalid after rewind")
		}
		n, err = s.decoder.PCMBuffer(s.buf)
		if err != nil {
			return 0, err
		}
	}

	for i := 0; i < n; i++ {
		samples[i] = wavSampleToInt16(s.buf.Data[i], s.bitDepth)
	}

	return n, nil
}

func (s *WAVSource) SampleRate() int { return s.sampleRate }
func (s *WAVSource) Channels() int   { return s.channels }
func (s *WAVSource) Close() error {
	return s.file.Close()
}

// wavSampleToInt16 scales a decoded WAV sample to the 16-bit range
func wavSampleToInt16(v, bitDepth int) int16 {
	switch bitDepth {
	case 8:
		// 8-bit WAV is unsigned
		return int16((v - 128) << 8)
	case 16:
		return int16(v)
	case 24:
		return int16(v >> 8)
	case 32:
		return int16(v >> 16)
	default:
		return int16(v)
	}
}

// MP3Source reads from an MP3 file
type MP3Source struct {
	file       *os.File
	decoder    *mp3.Decoder
	sampleRate int
	channels   int
	buf        []byte
}

// NewMP3Source creates a new MP3 audio source
func NewMP3Source(filePath string) (*MP3Source, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	log.Printf("Loaded MP3: %s (sample rate: %d Hz)",
		filepath.Base(filePath), decoder.SampleRate())

	return &MP3Source{
		file:       f,
		decoder:    decoder,
		sampleRate: decoder.SampleRate(),
		channels:   2, // MP3 decoder outputs stereo
	}, nil
}

func (s *MP3Source) Read(samples []int16) (int, error) {
	// The decoder outputs little-endian int16 bytes
	numBytes := len(samples) * 2
	if cap(s.buf) < numBytes {
		s.buf = make([]byte, numBytes)
	}

	n, err := s.decoder.Read(s.buf[:numBytes])
	if err != nil && err != io.EOF {
		return 0, err
	}

	numSamples := n / 2
	for i := 0; i < numSamples; i++ {
		samples[i] = int16(uint16(s.buf[i*2]) | uint16(s.buf[i*2+1])<<8)
	}

	if err == io.EOF {
		// Loop the audio - seek back to start
		if _, seekErr := s.file.Seek(0, 0); seekErr != nil {
			return numSamples, fmt.Errorf("failed to seek to start: %w", seekErr)
		}
		newDecoder, decErr := mp3.NewDecoder(s.file)
		if decErr != nil {
			return numSamples, fmt.Errorf("failed to create new decoder: %w", decErr)
		}
		s.decoder = newDecoder
	}

	return numSamples, nil
}

func (s *MP3Source) SampleRate() int { return s.sampleRate }
func (s *MP3Source) Channels() int   { return s.channels }
func (s *MP3Source) Close() error {
	return s.file.Close()
}

// FLACSource reads from a FLAC file
type FLACSource struct {
	file       *os.File
	stream     *flac.Stream
	sampleRate int
	channels   int
	bitDepth   int
	pending    []int16
	pendingBuf []int16
}

// NewFLACSource creates a new FLAC audio source
func NewFLACSource(filePath string) (*FLACSource, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	sampleRate := int(info.SampleRate)
	channels := int(info.NChannels)
	bitDepth := int(info.BitsPerSample)

	log.Printf("Loaded FLAC: %s (sample rate: %d Hz, channels: %d, bit depth: %d)",
		filepath.Base(filePath), sampleRate, channels, bitDepth)

	return &FLACSource{
		file:       f,
		stream:     stream,
		sampleRate: sampleRate,
		channels:   channels,
		bitDepth:   bitDepth,
	}, nil
}

func (s *FLACSource) Read(samples []int16) (int, error) {
	filled := 0
	for filled < len(samples) {
		if len(s.pending) == 0 {
			if err := s.refill(); err != nil {
				if filled > 0 {
					return filled, nil
				}
				return 0, err
			}
		}

		n := copy(samples[filled:], s.pending)
		s.pending = s.pending[n:]
		filled += n
	}

	return filled, nil
}

// refill parses the next FLAC frame into the pending buffer, looping back
// to the start of the file at EOF
func (s *FLACSource) refill() error {
	frame, err := s.stream.ParseNext()
	if err == io.EOF {
		if _, seekErr := s.file.Seek(0, 0); seekErr != nil {
			return fmt.Errorf("failed to seek to start: %w", seekErr)
		}
		newStream, decErr := flac.New(s.file)
		if decErr != nil {
			return fmt.Errorf("failed to create new stream: %w", decErr)
		}
		s.stream = newStream
		frame, err = s.stream.ParseNext()
	}
	if err != nil {
		return err
	}

	blockSize := int(frame.BlockSize)
	if cap(s.pendingBuf) < blockSize*s.channels {
		s.pendingBuf = make([]int16, blockSize*s.channels)
	}
	buf := s.pendingBuf[:blockSize*s.channels]

	for i := 0; i < blockSize; i++ {
		for ch := 0; ch < s.channels; ch++ {
			buf[i*s.channels+ch] = s.flacSampleToInt16(frame.Subframes[ch].Samples[i])
		}
	}
	s.pending = buf

	return nil
}

// flacSampleToInt16 scales a FLAC sample from its native bit depth to 16-bit
func (s *FLACSource) flacSampleToInt16(v int32) int16 {
	shift := s.bitDepth - 16
	if shift > 0 {
		return int16(v >> shift)
	}
	return int16(v << -shift)
}

func (s *FLACSource) SampleRate() int { return s.sampleRate }
func (s *FLACSource) Channels() int   { return s.channels }
func (s *FLACSource) Close() error {
	return s.file.Close()
}

// OGGSource reads from an OGG Vorbis file
type OGGSource struct {
	file       *os.File
	decoder    *oggvorbis.Reader
	sampleRate int
	channels   int
	scratch    []float32
}

// NewOGGSource creates a new OGG Vorbis audio source
func NewOGGSource(filePath string) (*OGGSource, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open OGG file: %w", err)
	}

	decoder, err := oggvorbis.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode OGG: %w", err)
	}

	log.Printf("Loaded OGG: %s (sample rate: %d Hz, channels: %d)",
		filepath.Base(filePath), decoder.SampleRate(), decoder.Channels())

	return &OGGSource{
		file:       f,
		decoder:    decoder,
		sampleRate: decoder.SampleRate(),
		channels:   decoder.Channels(),
	}, nil
}

func (s *OGGSource) Read(samples []int16) (int, error) {
	// The decoder requires a whole number of frames per read
	want := len(samples) - len(samples)%s.channels
	if want == 0 {
		return 0, nil
	}
	if cap(s.scratch) < want {
		s.scratch = make([]float32, want)
	}

	n, err := s.decoder.Read(s.scratch[:want])
	if n == 0 && err == io.EOF {
		// Loop the audio - seek back to start
		if _, seekErr := s.file.Seek(0, 0); seekErr != nil {
			return 0, fmt.Errorf("failed to seek to start: %w", seekErr)
		}
		newDecoder, decErr := oggvorbis.NewReader(s.file)
		if decErr != nil {
			return 0, fmt.Errorf("failed to create new decoder: %w", decErr)
		}
		s.decoder = newDecoder
		n, err = s.decoder.Read(s.scratch[:want])
	}
	if err != nil && err != io.EOF {
		return 0, err
	}

	for i := 0; i < n; i++ {
		samples[i] = floatSampleToInt16(s.scratch[i])
	}

	return n, nil
}

func (s *OGGSource) SampleRate() int { return s.sampleRate }
func (s *OGGSource) Channels() int   { return s.channels }
func (s *OGGSource) Close() error {
	return s.file.Close()
}

// floatSampleToInt16 converts a [-1, 1] sample to 16-bit PCM with clamping
func floatSampleToInt16(v float32) int16 {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int16(v * 32767)
}
