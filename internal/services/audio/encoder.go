package audio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/jonas747/ogg"
	"github.com/vuongmanhnghia/guild-player/pkg/logger"
)

var (
	// ErrEncodingFailed is returned when encoding fails
	ErrEncodingFailed = errors.New("audio encoding failed")
	// ErrAlreadyPlaying is returned when already playing
	ErrAlreadyPlaying = errors.New("already playing")
)

// AudioEncoder turns a local file or remote stream into Opus frames via ffmpeg
type AudioEncoder struct {
	ffmpegPath string
	logger     *logger.Logger
}

// NewAudioEncoder creates a new audio encoder
func NewAudioEncoder(ffmpegPath string, log *logger.Logger) *AudioEncoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &AudioEncoder{
		ffmpegPath: ffmpegPath,
		logger:     log,
	}
}

// EncodeOptions contains options for encoding
type EncodeOptions struct {
	Volume      int    // 0-100, default 100
	Bitrate     int    // in kbps, default 128
	Application string // audio, voip, or lowdelay
	BufferSize  int    // frames buffered ahead of the sender

	// ReconnectOnStall makes ffmpeg reconnect when a remote stream stalls
	ReconnectOnStall bool
}

// DefaultEncodeOptions returns default encoding options
func DefaultEncodeOptions() *EncodeOptions {
	return &EncodeOptions{
		Volume:      100,
		Bitrate:     128,
		Application: "audio",
		BufferSize:  1024,
	}
}

// FFmpegArgs builds the ffmpeg command line for an input
func FFmpegArgs(input string, options *EncodeOptions) []string {
	if options == nil {
		options = DefaultEncodeOptions()
	}

	args := make([]string, 0, 32)
	if options.ReconnectOnStall {
		args = append(args,
			"-reconnect", "1",
			"-reconnect_streamed", "1",
			"-reconnect_delay_max", "5",
		)
	}

	args = append(args,
		"-i", input,
		"-vn",
		"-map", "0:a",
	)

	if options.Volume > 0 && options.Volume != 100 {
		args = append(args, "-filter:a", fmt.Sprintf("volume=%.2f", float64(options.Volume)/100))
	}

	args = append(args,
		"-acodec", "libopus",
		"-f", "ogg",
		"-compression_level", "5",
		"-ar", "48000",
		"-ac", "2",
		"-b:a", fmt.Sprintf("%d", options.Bitrate*1000),
		"-application", options.Application,
		"-frame_duration", "20",
		"-loglevel", "error",
		"pipe:1",
	)
	return args
}

// EncodeStream starts ffmpeg for the input and returns a channel of Opus frames.
// Cancelling ctx kills ffmpeg; the frame channel is closed when encoding ends.
func (e *AudioEncoder) EncodeStream(ctx context.Context, input string, options *EncodeOptions) (<-chan []byte, <-chan error, error) {
	if options == nil {
		options = DefaultEncodeOptions()
	}

	cmd := exec.CommandContext(ctx, e.ffmpegPath, FFmpegArgs(input, options)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get ffmpeg stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get ffmpeg stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("%w: failed to start ffmpeg: %v", ErrEncodingFailed, err)
	}

	e.logger.WithField("input", truncateInput(input)).Debug("📻 FFmpeg encoding started")

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			e.logger.WithField("ffmpeg", scanner.Text()).Warn("FFmpeg output")
		}
	}()

	frameChannel := make(chan []byte, options.BufferSize)
	errorChannel := make(chan error, 1)

	go e.readFrames(ctx, cmd, stdout, frameChannel, errorChannel)

	return frameChannel, errorChannel, nil
}

// readFrames decodes the OGG stream into Opus packets, paced at real time
func (e *AudioEncoder) readFrames(ctx context.Context, cmd *exec.Cmd, stdout io.Reader, frameChannel chan []byte, errorChannel chan error) {
	defer close(frameChannel)
	defer close(errorChannel)
	defer func() {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
		cmd.Wait()
	}()

	decoder := ogg.NewPacketDecoder(ogg.NewDecoder(stdout))

	frameCount := 0
	frameInterval := 20 * time.Millisecond
	startTime := time.Now()

	// Opus header and comment packets
	skipPackets := 2

	for {
		packet, _, err := decoder.Decode()
		if err != nil {
			if err == io.EOF || ctx.Err() != nil {
				e.logger.WithField("frames", frameCount).Debug("Encoding completed")
				return
			}
			if frameCount > 0 {
				e.logger.WithError(err).WithField("frames", frameCount).Warn("⚠️ Encoding ended after frames")
				return
			}
			errorChannel <- fmt.Errorf("%w: %v", ErrEncodingFailed, err)
			return
		}

		if skipPackets > 0 {
			skipPackets--
			continue
		}

		if len(packet) == 0 {
			continue
		}
		frameCount++

		// Keep the encoder at playback rate so the buffer does not balloon
		expectedTime := startTime.Add(time.Duration(frameCount) * frameInterval)
		if wait := time.Until(expectedTime); wait > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}

		select {
		case frameChannel <- packet:
		case <-ctx.Done():
			return
		}
	}
}

func truncateInput(input string) string {
	if len(input) <= 80 {
		return input
	}
	return input[:80] + "..."
}

// IsRemote reports whether an audio path is a network stream
func IsRemote(audioPath string) bool {
	return strings.HasPrefix(audioPath, "http://") || strings.HasPrefix(audioPath, "https://")
}
