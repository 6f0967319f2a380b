package mocks

import (
	"context"

	"github.com/user/clipforge/pkg/ports"
)

// CodecEngine is a mock implementation of ports.CodecEngine.
type CodecEngine struct {
	DemuxAudioFunc     func(ctx context.Context, src []byte) ([]byte, error)
	TransformAudioFunc func(ctx context.Context, src []byte, chain ports.FilterChain) ([]byte, error)
	MixAudioFunc       func(ctx context.Context, inputs [][]byte, duration float64, codec ports.AudioCodec) ([]byte, error)
	MuxStreamCopyFunc  func(ctx context.Context, video, audio []byte, duration float64) ([]byte, error)
	ProbeFunc          func(ctx context.Context, stream []byte) (ports.StreamInfo, error)

	// Recorded calls for verification
	DemuxCalls     int
	TransformCalls []ports.FilterChain
	MixCalls       []MixCall
	MuxCalls       []MuxCall
	ProbeCalls     int
}

// MixCall records one call to MixAudio.
type MixCall struct {
	Inputs   int
	Duration float64
	Codec    ports.AudioCodec
}

// MuxCall records one call to MuxStreamCopy.
type MuxCall struct {
	VideoLen int
	AudioLen int
	Duration float64
}

func (m *CodecEngine) DemuxAudio(ctx context.Context, src []byte) ([]byte, error) {
	m.DemuxCalls++
	if m.DemuxAudioFunc != nil {
		return m.DemuxAudioFunc(ctx, src)
	}
	return src, nil
}

func (m *CodecEngine) TransformAudio(ctx context.Context, src []byte, chain ports.FilterChain) ([]byte, error) {
	m.TransformCalls = append(m.TransformCalls, chain)
	if m.TransformAudioFunc != nil {
		return m.TransformAudioFunc(ctx, src, chain)
	}
	return src, nil
}

func (m *CodecEngine) MixAudio(ctx context.Context, inputs [][]byte, duration float64, codec ports.AudioCodec) ([]byte, error) {
	m.MixCalls = append(m.MixCalls, MixCall{Inputs: len(inputs), Duration: duration, Codec: codec})
	if m.MixAudioFunc != nil {
		return m.MixAudioFunc(ctx, inputs, duration, codec)
	}
	var out []byte
	for _, in := range inputs {
		out = append(out, in...)
	}
	return out, nil
}

func (m *CodecEngine) MuxStreamCopy(ctx context.Context, video, audio []byte, duration float64) ([]byte, error) {
	m.MuxCalls = append(m.MuxCalls, MuxCall{VideoLen: len(video), AudioLen: len(audio), Duration: duration})
	if m.MuxStreamCopyFunc != nil {
		return m.MuxStreamCopyFunc(ctx, video, audio, duration)
	}
	out := make([]byte, 0, len(video)+len(audio))
	out = append(out, video...)
	out = append(out, audio...)
	return out, nil
}

func (m *CodecEngine) Probe(ctx context.Context, stream []byte) (ports.StreamInfo, error) {
	m.ProbeCalls++
	if m.ProbeFunc != nil {
		return m.ProbeFunc(ctx, stream)
	}
	return ports.StreamInfo{Duration: 1, HasVideo: true, HasAudio: true, Format: "mp4"}, nil
}

var _ ports.CodecEngine = (*CodecEngine)(nil)
