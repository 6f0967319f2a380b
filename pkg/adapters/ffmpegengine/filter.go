package ffmpegengine

import (
	"fmt"
	"math"
	"strings"

	"github.com/user/clipforge/pkg/ports"
)

// buildFilterChain renders a FilterChain as an ffmpeg -af expression.
// Filter order matters: trim before the timestamp reset, delay after
// it, pad last so the tail silence survives the other filters.
func buildFilterChain(chain ports.FilterChain) string {
	var filters []string

	if chain.TrimDuration > 0 {
		filters = append(filters, fmt.Sprintf("atrim=duration=%s", formatSeconds(chain.TrimDuration)))
	}
	if chain.ResetTimestamps {
		filters = append(filters, "asetpts=PTS-STARTPTS")
	}
	if chain.DelaySeconds > 0 {
		ms := int(math.Round(chain.DelaySeconds * 1000))
		filters = append(filters, fmt.Sprintf("adelay=%d:all=1", ms))
	}
	if chain.PadToDuration > 0 {
		filters = append(filters, fmt.Sprintf("apad=whole_dur=%s", formatSeconds(chain.PadToDuration)))
	}

	return strings.Join(filters, ",")
}

// buildMixGraph renders the -filter_complex expression summing n
// prepared inputs. duration=longest keeps every input audible to its
// end; normalize=0 keeps the sum additive instead of averaged. The
// final atrim clamps filter padding overshoot.
func buildMixGraph(n int, duration float64) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "[%d:a]", i)
	}
	fmt.Fprintf(&b, "amix=inputs=%d:duration=longest:normalize=0", n)
	if duration > 0 {
		fmt.Fprintf(&b, ",atrim=duration=%s", formatSeconds(duration))
	}
	b.WriteString("[out]")
	return b.String()
}

// formatSeconds trims trailing zeros so filter strings stay readable
// in logs.
func formatSeconds(s float64) string {
	out := fmt.Sprintf("%.6f", s)
	out = strings.TrimRight(out, "0")
	out = strings.TrimRight(out, ".")
	return out
}
