package sstv

import (
	"encoding/binary"
	"fmt"
	"log"

	"github.com/google/uuid"
)

/*
 * Streaming Extension Wrapper
 *
 * Wraps Decoder as a push-audio/pull-messages AudioExtension, the same
 * shape this pack's own sstv.SSTVExtension uses to plug a decoder into
 * its audio-extension framework. Each terminated image is framed as one
 * message in this pack's own binary image_line format ([type:1][line:4]
 * [width:4][rgb:...], big-endian) carrying the whole raster, plus
 * mode_detected and complete messages from the same catalogue. A status
 * tag is defined but never sent.
 */

// Wire message type tags, a narrowed subset of this pack's own
// protocol (register.go's GetInfo "output_format").
const (
	msgTypeImageLine    byte = 0x01
	msgTypeModeDetected byte = 0x02
	msgTypeStatus       byte = 0x03
	msgTypeComplete     byte = 0x05
)

// AudioExtensionParams describes the PCM stream an extension will
// receive, mirroring this pack's own extension parameter struct.
type AudioExtensionParams struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// AudioExtension is the minimal push-audio/pull-messages interface this
// pack's audio pipeline expects of a decoder plugin.
type AudioExtension interface {
	Start(audioChan <-chan []int16, resultChan chan<- []byte) error
	Stop() error
	GetName() string
}

// SSTVExtension adapts Decoder to AudioExtension: it pulls PCM off
// audioChan, estimates frequency in fixed-size blocks, steps the
// decoder, and frames every mode detection and terminated image onto
// resultChan as wire messages.
type SSTVExtension struct {
	cfg       Config
	catalogue *Catalogue
	decoder   *Decoder
	metrics   *Metrics
	sessionID string
	blockSize int

	stop chan struct{}
	done chan struct{}
}

// NewSSTVExtension validates audioParams against the mono/16-bit
// requirement the demodulator assumes and builds a decoder around a
// fresh per-session log tag and metrics sink.
func NewSSTVExtension(audioParams AudioExtensionParams, overrides map[string]interface{}, metrics *Metrics) (*SSTVExtension, error) {
	if audioParams.Channels != 1 {
		return nil, fmt.Errorf("sstv: extension requires mono audio, got %d channels", audioParams.Channels)
	}
	if audioParams.BitsPerSample != 16 {
		return nil, fmt.Errorf("sstv: extension requires 16-bit audio, got %d bits", audioParams.BitsPerSample)
	}

	cfg := DefaultConfig()
	cfg.SampleRate = float64(audioParams.SampleRate)
	if v, ok := overrides["enable_vis_fast_path"].(bool); ok {
		cfg.EnableVISFastPath = v
	}
	if v, ok := overrides["sync_threshold_hz"].(float64); ok {
		cfg.SyncThresholdHz = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()
	catalogue := NewCatalogue(cfg.SampleRate)
	if err := catalogue.Validate(); err != nil {
		return nil, err
	}

	decoder := NewDecoder(catalogue, cfg)
	decoder.SetLogTag(fmt.Sprintf("[SSTV Extension %s]", sessionID[:8]))
	decoder.SetMetrics(metrics)

	log.Printf("[SSTV Extension] session %s created: sample_rate=%d vis_fast_path=%v",
		sessionID, audioParams.SampleRate, cfg.EnableVISFastPath)

	return &SSTVExtension{
		cfg:       cfg,
		catalogue: catalogue,
		decoder:   decoder,
		metrics:   metrics,
		sessionID: sessionID,
		blockSize: int(cfg.SampleRate / 10), // ~100ms blocks, small enough for low line-commit latency
	}, nil
}

// GetName identifies this extension to the audio pipeline.
func (e *SSTVExtension) GetName() string { return "sstv" }

// Start consumes audioChan until it closes or Stop is called, emitting
// wire messages on resultChan for every mode detection and committed
// image. It blocks until the session ends.
func (e *SSTVExtension) Start(audioChan <-chan []int16, resultChan chan<- []byte) error {
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	defer close(e.done)

	var pending SlidingPCMBuffer
	sampleIndex := 0
	var lastModeName string

	flush := func(samples []int16) {
		if len(samples) < 2 {
			return
		}
		freqs, err := EstimateFrequencies(samples, e.cfg)
		if err != nil {
			log.Printf("[SSTV Extension] session %s: %v", e.sessionID, err)
			return
		}
		for _, f := range freqs {
			result := e.decoder.Step(sampleIndex, f)
			sampleIndex++

			if e.decoder.mode != nil && e.decoder.mode.Name != lastModeName {
				lastModeName = e.decoder.mode.Name
				resultChan <- encodeModeDetected(lastModeName)
			}
			if result != nil {
				lastModeName = ""
				resultChan <- encodeImageSnapshot(result)
				resultChan <- encodeComplete(result.Mode.Height)
			}
		}
	}

	for {
		select {
		case <-e.stop:
			if final := e.decoder.Finish(); final != nil {
				resultChan <- encodeImageSnapshot(final)
				resultChan <- encodeComplete(final.Mode.Height)
			}
			return nil
		case samples, ok := <-audioChan:
			if !ok {
				if final := e.decoder.Finish(); final != nil {
					resultChan <- encodeImageSnapshot(final)
					resultChan <- encodeComplete(final.Mode.Height)
				}
				return nil
			}
			pending.Write(samples)
			if pending.Available() >= e.blockSize {
				flush(pending.Drain())
			}
		}
	}
}

// Stop signals Start's audio loop to terminate, flushing any partial
// image, and waits for it to return.
func (e *SSTVExtension) Stop() error {
	if e.stop == nil {
		return nil
	}
	close(e.stop)
	<-e.done
	return nil
}

// encodeModeDetected frames a mode_detected message: [type:1][name_len:1][name:len].
func encodeModeDetected(name string) []byte {
	buf := make([]byte, 2+len(name))
	buf[0] = msgTypeModeDetected
	buf[1] = byte(len(name))
	copy(buf[2:], name)
	return buf
}

// encodeImageSnapshot frames every raster row the decoder committed as
// a single image_line message carrying the whole raster at once:
// [type:1][line:4][width:4][rgb:width*height*3], big-endian. Streaming
// one message per row is also valid against this format; Decoder only
// exposes whole-raster Results (see Process/Step), so the extension
// frames the accumulated raster as row 0 of a width x height block.
func encodeImageSnapshot(r *Result) []byte {
	width := r.Mode.Width
	height := r.Mode.Height
	buf := make([]byte, 1+4+4+width*height*3)
	buf[0] = msgTypeImageLine
	binary.BigEndian.PutUint32(buf[1:5], 0)
	binary.BigEndian.PutUint32(buf[5:9], uint32(width))

	off := 9
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			buf[off] = byte(ClampChannel(r.Raster.At(row, col, 0)))
			buf[off+1] = byte(ClampChannel(r.Raster.At(row, col, 1)))
			buf[off+2] = byte(ClampChannel(r.Raster.At(row, col, 2)))
			off += 3
		}
	}
	return buf
}

// encodeComplete frames a complete message: [type:1][total_lines:4].
func encodeComplete(totalLines int) []byte {
	buf := make([]byte, 5)
	buf[0] = msgTypeComplete
	binary.BigEndian.PutUint32(buf[1:5], uint32(totalLines))
	return buf
}
