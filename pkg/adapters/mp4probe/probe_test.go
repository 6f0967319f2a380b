package mp4probe

import (
	"bytes"
	"testing"

	"github.com/Eyevinn/mp4ff/mp4"
)

func encodeInit(t *testing.T, init *mp4.InitSegment) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := init.Encode(&buf); err != nil {
		t.Fatalf("encode init segment: %v", err)
	}
	return buf.Bytes()
}

func TestProbe_VideoAndAudioTracks(t *testing.T) {
	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(30000, "video", "und")
	init.AddEmptyTrack(48000, "audio", "und")
	init.Moov.Mvhd.Timescale = 1000
	init.Moov.Mvhd.Duration = 5000

	info, err := Probe(encodeInit(t, init))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !info.HasVideo || !info.HasAudio {
		t.Errorf("expected both tracks, got %+v", info)
	}
	if info.Duration != 5 {
		t.Errorf("expected 5s duration, got %f", info.Duration)
	}
	if info.Format != "mp4" {
		t.Errorf("expected mp4 format, got %q", info.Format)
	}
}

func TestProbe_VideoOnly(t *testing.T) {
	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(30000, "video", "und")

	info, err := Probe(encodeInit(t, init))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !info.HasVideo || info.HasAudio {
		t.Errorf("expected video only, got %+v", info)
	}
}

func TestProbe_RejectsNonMP4(t *testing.T) {
	if _, err := Probe([]byte{0x1A, 0x45, 0xDF, 0xA3, 0x00, 0x00}); err == nil {
		t.Fatal("a WebM stream must not probe as MP4")
	}
	if _, err := Probe([]byte("not media at all")); err == nil {
		t.Fatal("garbage must not probe as MP4")
	}
}
