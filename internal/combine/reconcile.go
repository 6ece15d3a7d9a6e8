package combine

import "math"

// Mode says how the scene is stretched or cut to fit the narration
type Mode string

const (
	Freeze Mode = "freeze" // hold the last frame until the narration ends
	Trim   Mode = "trim"   // cut the scene shortly after the narration ends
	Exact  Mode = "exact"
)

// DefaultPadSec is the tail kept after the narration when trimming
const DefaultPadSec = 0.5

// durations closer than this are treated as equal; ffprobe reports ms
const tolerance = 0.001

// Plan is the outcome of reconciling scene and narration lengths
type Plan struct {
	Mode      Mode    `json:"mode"`
	HoldSec   float64 `json:"hold_sec,omitempty"`
	OutputSec float64 `json:"output_sec"`
}

// Reconcile decides the final length. A longer narration freezes the last
// frame for the difference. A shorter one ends pad seconds after the
// narration: the scene is trimmed when it runs past that point, and its last
// frame is held when it ends earlier. A negative pad counts as zero.
func Reconcile(sceneSec, audioSec, pad float64) Plan {
	if pad < 0 {
		pad = 0
	}
	switch {
	case math.Abs(audioSec-sceneSec) < tolerance:
		return Plan{Mode: Exact, OutputSec: sceneSec}
	case audioSec > sceneSec:
		return Plan{Mode: Freeze, HoldSec: audioSec - sceneSec, OutputSec: audioSec}
	case audioSec+pad > sceneSec:
		return Plan{Mode: Freeze, HoldSec: audioSec + pad - sceneSec, OutputSec: audioSec + pad}
	default:
		return Plan{Mode: Trim, OutputSec: audioSec + pad}
	}
}
