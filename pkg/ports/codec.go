package ports

import (
	"context"
)

// AudioCodec selects the codec for mixed audio output.
type AudioCodec string

const (
	// AudioAAC targets MP4 containers.
	AudioAAC AudioCodec = "aac"
	// AudioOpus targets WebM containers.
	AudioOpus AudioCodec = "opus"
)

// FilterChain describes the per-clip audio transform applied before
// mixing: trim to the clip duration, rebase the clip's internal clock to
// zero, silence-pad the front by the clip's start time, then silence-pad
// the tail so the chain reaches the full export duration.
type FilterChain struct {
	TrimDuration    float64 // seconds; 0 = no trim
	ResetTimestamps bool
	DelaySeconds    float64 // front padding; 0 = none
	PadToDuration   float64 // minimum total length; 0 = no tail padding
}

// StreamInfo describes an encoded stream.
type StreamInfo struct {
	Duration float64 // seconds
	HasVideo bool
	HasAudio bool
	Format   string // container format name, e.g. "mp4", "webm", "wav"
}

// CodecEngine executes audio/video commands on in-memory byte buffers.
// Implementations surface resource exhaustion distinguishably: errors
// from an out-of-memory condition satisfy
// errors.Is(err, pipeline.ErrResourceExhausted).
type CodecEngine interface {
	// DemuxAudio isolates the audio track of a muxed source and
	// returns it as an intermediate PCM stream. Sources without an
	// audio track are an error.
	DemuxAudio(ctx context.Context, src []byte) ([]byte, error)

	// TransformAudio applies a filter chain to a single audio source
	// and returns the transformed intermediate stream.
	TransformAudio(ctx context.Context, src []byte, chain FilterChain) ([]byte, error)

	// MixAudio additively combines the inputs. The mix spans the
	// longest input and is trimmed to exactly duration seconds.
	MixAudio(ctx context.Context, inputs [][]byte, duration float64, codec AudioCodec) ([]byte, error)

	// MuxStreamCopy combines one video and one audio stream into a
	// single container without re-encoding either, mapping the first
	// video and first audio stream and trimming to duration seconds.
	MuxStreamCopy(ctx context.Context, video, audio []byte, duration float64) ([]byte, error)

	// Probe inspects an encoded stream.
	Probe(ctx context.Context, stream []byte) (StreamInfo, error)
}
