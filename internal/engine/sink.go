package engine

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// Sink receives interleaved stereo s16le PCM.
type Sink interface {
	io.WriteCloser
	Name() string
}

// Sink kinds accepted by OpenSink.
const (
	SinkAuto = "auto"
	SinkPipe = "pipe"
	SinkNull = "null"
)

// PlayerCommand describes a system audio player reading raw PCM on stdin.
type PlayerCommand struct {
	Name string
	Path string
	Args []string
}

// DetectPlayer searches PATH for a player that accepts raw PCM.
// Priority: pacat > pw-cat > aplay > play (sox) > ffplay
func DetectPlayer(sampleRate int) (*PlayerCommand, error) {
	rate := strconv.Itoa(sampleRate)

	candidates := []struct {
		bin  string
		name string
		args []string
	}{
		{"pacat", "pacat", []string{"--raw", "--format=s16le", "--rate=" + rate, "--channels=2", "--latency-msec=50", "--playback"}},
		{"pw-cat", "pw-cat", []string{"--playback", "--format=s16", "--rate=" + rate, "--channels=2", "--latency=50ms", "-"}},
		{"aplay", "aplay", []string{"-t", "raw", "-f", "S16_LE", "-r", rate, "-c", "2", "-q"}},
		{"play", "sox", []string{"-t", "raw", "-e", "signed", "-b", "16", "-c", "2", "-r", rate, "-", "-d", "-q"}},
		{"ffplay", "ffplay", []string{
			"-nodisp", "-autoexit",
			"-f", "s16le", "-ac", "2", "-ar", rate,
			"-probesize", "32", "-analyzeduration", "0",
			"-i", "pipe:0", "-loglevel", "quiet",
		}},
	}

	for _, c := range candidates {
		if path, err := exec.LookPath(c.bin); err == nil {
			return &PlayerCommand{Name: c.name, Path: path, Args: c.args}, nil
		}
	}
	return nil, ErrNoAudioSink
}

// OpenSink opens a sink of the given kind. SinkAuto tries a pipe and falls
// back to a null sink when no player is installed.
func OpenSink(kind string, sampleRate int) (Sink, error) {
	switch kind {
	case SinkNull:
		return NullSink{}, nil
	case SinkPipe, SinkAuto, "":
		player, err := DetectPlayer(sampleRate)
		if err != nil {
			if kind == SinkPipe {
				return nil, err
			}
			slog.Warn("No audio player found, running silent", "error", err)
			return NullSink{}, nil
		}
		return NewPipeSink(player)
	default:
		return nil, fmt.Errorf("unknown sink type: %s", kind)
	}
}

// NullSink discards everything.
type NullSink struct{}

func (NullSink) Write(p []byte) (int, error) { return len(p), nil }
func (NullSink) Close() error                { return nil }
func (NullSink) Name() string                { return SinkNull }

// PipeSink feeds a player process through its stdin.
type PipeSink struct {
	name  string
	cmd   *exec.Cmd
	stdin io.WriteCloser

	closeOnce sync.Once
	exited    chan struct{}
}

// NewPipeSink starts the player process.
func NewPipeSink(player *PlayerCommand) (*PipeSink, error) {
	cmd := exec.Command(player.Path, player.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdin of %s: %w", player.Name, err)
	}
	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, fmt.Errorf("failed to start %s: %w", player.Name, err)
	}

	s := &PipeSink{name: player.Name, cmd: cmd, stdin: stdin, exited: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		if err != nil {
			slog.Warn("Audio player exited", "player", player.Name, "error", err)
		}
		close(s.exited)
	}()

	slog.Info("Audio sink started", "player", player.Name, "path", player.Path)
	return s, nil
}

func (s *PipeSink) Name() string { return s.name }

func (s *PipeSink) Write(p []byte) (int, error) {
	n, err := s.stdin.Write(p)
	if err != nil {
		return n, fmt.Errorf("%w: %v", ErrSinkClosed, err)
	}
	return n, nil
}

// Close closes stdin and kills the player if it does not exit on its own.
func (s *PipeSink) Close() error {
	s.closeOnce.Do(func() {
		s.stdin.Close()
		select {
		case <-s.exited:
		case <-time.After(500 * time.Millisecond):
			if s.cmd.Process != nil {
				_ = s.cmd.Process.Kill()
			}
			<-s.exited
		}
	})
	return nil
}

// floatToBytes converts stereo float samples to interleaved s16le with a
// soft limiter in front of the hard clip.
func floatToBytes(in [][2]float64, out []byte) {
	for i, frame := range in {
		for ch, v := range frame {
			if v > 0.8 {
				v = 0.8 + 0.2*(1.0-1.0/(1.0+(v-0.8)*5.0))
			} else if v < -0.8 {
				v = -0.8 - 0.2*(1.0-1.0/(1.0+(-v-0.8)*5.0))
			}
			v = min(max(v, -1), 1)
			binary.LittleEndian.PutUint16(out[i*4+ch*2:], uint16(int16(v*32767)))
		}
	}
}
