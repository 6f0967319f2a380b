package pipeline

// =============================================================================
// Data Model
// =============================================================================

// ClipKind identifies the media kind of a clip.
type ClipKind string

const (
	KindVideo ClipKind = "video"
	KindImage ClipKind = "image"
	KindAudio ClipKind = "audio"
)

// Clip is a timed placement of one media asset on the timeline.
// StartTime + Duration defines the clip's occupied interval, in seconds.
// Clips of the same kind may overlap; the pipeline never assumes
// non-overlap (visual stacking is the layout engine's concern).
type Clip struct {
	ID        string
	Kind      ClipKind
	Name      string
	StartTime float64
	Duration  float64

	// Linkage fields. On a video clip, HasLinkedAudio/LinkedAudioID
	// mark that a separate audio clip already carries its soundtrack.
	// On an audio clip, SourceVideoID/LinkedVideoID point back at the
	// video clip whose sound it carries, and SourceClipID names the
	// origin asset shared by re-imports.
	HasLinkedAudio bool
	LinkedAudioID  string
	SourceVideoID  string
	SourceClipID   string
	LinkedVideoID  string

	// DerivedFromVideo marks an audio clip synthesized from a video
	// clip's embedded soundtrack.
	DerivedFromVideo bool

	// RawSource holds the clip's raw media bytes. It is borrowed by
	// every stage and never mutated.
	RawSource []byte
}

// End returns the end of the clip's occupied interval in seconds.
func (c Clip) End() float64 {
	return c.StartTime + c.Duration
}

// ExportRequest is the immutable input of one export invocation.
type ExportRequest struct {
	Clips []Clip

	// AudioLinks is the explicit videoID -> audioID link table
	// maintained by the upstream timeline editor. When a video clip
	// appears here, the entry is authoritative; the flag heuristics
	// only run for clips absent from the table (legacy/untagged data).
	AudioLinks map[string]string

	// NominalDuration is the UI-level timeline length in seconds. It
	// is a ceiling: the true export duration is derived from clip
	// placement.
	NominalDuration float64

	Width     int
	Height    int
	FrameRate float64
}

// ExportResult is the outcome of a successful export.
type ExportResult struct {
	Artifact     []byte
	MimeType     string
	DurationUsed float64
	HasAudio     bool
	// Degraded reports that the artifact was produced by the
	// lower-fidelity fallback strategy (no alpha channel).
	Degraded bool
}

// =============================================================================
// Audio Source Resolution Stage Types
// =============================================================================

// ResolveAudioInput contains the clip list and the explicit link table.
type ResolveAudioInput struct {
	Clips      []Clip
	AudioLinks map[string]string
}

// ResolveAudioResult contains the final clip set, including any
// synthesized virtual audio clips.
type ResolveAudioResult struct {
	Clips       []Clip
	Synthesized int
}

// AudioClips returns only the audio clips of the resolved set.
func (r ResolveAudioResult) AudioClips() []Clip {
	var out []Clip
	for _, c := range r.Clips {
		if c.Kind == KindAudio {
			out = append(out, c)
		}
	}
	return out
}

// =============================================================================
// Duration Resolution Stage Types
// =============================================================================

// DurationInput contains the full clip set (including virtual audio
// clips) and the nominal timeline duration.
type DurationInput struct {
	Clips           []Clip
	NominalDuration float64
}

// DurationResult contains the resolved export duration.
type DurationResult struct {
	// ActualDuration is the true export length in seconds: the last
	// clip's end time, or the nominal duration for an empty clip set.
	ActualDuration float64
}

// =============================================================================
// Frame Capture Stage Types
// =============================================================================

// CaptureInput contains parameters for the frame capture loop.
type CaptureInput struct {
	Duration  float64 // resolved export duration in seconds
	FrameRate float64
	Width     int
	Height    int

	// PreserveAlpha keeps transparency in the encoded stream when the
	// codec supports it. The degraded strategy disables it.
	PreserveAlpha bool

	// Paced enables schedule-based frame pacing: each frame is
	// dispatched at frameIndex * idealInterval relative to stage
	// start, so a slow render cycle does not accumulate drift. When
	// false, a fixed minimal delay of FixedDelayMs is used instead.
	Paced        bool
	FixedDelayMs int

	OnProgress ProgressFunc
}

// CaptureResult contains the encoded video stream.
type CaptureResult struct {
	Video      []byte
	MimeType   string
	FrameCount int
}

// =============================================================================
// Audio Mix Stage Types
// =============================================================================

// MixInput contains the resolved audio clip set and the target duration.
type MixInput struct {
	Clips    []Clip
	Duration float64

	// VideoMimeType selects the mixed stream's codec so the combine
	// stage can mux by stream copy into the video's container.
	VideoMimeType string

	OnProgress ProgressFunc
}

// MixResult contains the mixed audio stream. A nil Audio with a nil
// error means "no audio": the pipeline proceeds video-only.
type MixResult struct {
	Audio   []byte
	Mixed   int // clips that contributed to the mix
	Dropped int // clips dropped after preparation failures
}

// =============================================================================
// Stream Combine Stage Types
// =============================================================================

// CombineInput contains the encoded streams to mux.
type CombineInput struct {
	Video    []byte
	Audio    []byte // may be nil or empty
	Duration float64
	MimeType string // the video stream's MIME type
}

// CombineResult contains the final artifact.
type CombineResult struct {
	Artifact []byte
	MimeType string
	HasAudio bool
}
