package engine

// Operation names understood by an engine process. Requests and responses
// are newline-delimited JSON on the engine's stdin and stdout.
//
// The bench ops run Trials identical queries back to back and reply with
// ElapsedNS, the engine's own clock reading around the batch.
const (
	OpResolution    = "resolution"
	OpSetResolution = "set_resolution"
	OpRebuild       = "rebuild"
	OpExtent        = "extent"
	OpFindPath      = "find_path"
	OpRaycast       = "raycast"
	OpBenchPath     = "bench_path"
	OpBenchRaycast  = "bench_raycast"
	OpShutdown      = "shutdown"
)

// Raycast modes.
const (
	ModeOctree  = "octree"
	ModePhysics = "physics"
)

// Request is a single engine operation.
type Request struct {
	Op         string       `json:"op"`
	Resolution float64      `json:"resolution,omitempty"`
	Start      *Vector      `json:"start,omitempty"`
	End        *Vector      `json:"end,omitempty"`
	Query      *QueryConfig `json:"query,omitempty"`
	Mode       string       `json:"mode,omitempty"`
	Trials     int          `json:"trials,omitempty"`
}

// Response answers one Request. Error is set when OK is false.
type Response struct {
	OK         bool     `json:"ok"`
	Error      string   `json:"error,omitempty"`
	Resolution float64  `json:"resolution,omitempty"`
	Extent     float64  `json:"extent,omitempty"`
	Points     []Vector `json:"points,omitempty"`
	Length     float64  `json:"length,omitempty"`
	Iterations int64    `json:"iterations,omitempty"`
	Hit        bool     `json:"hit,omitempty"`
	Point      *Vector  `json:"point,omitempty"`
	ElapsedNS  int64    `json:"elapsed_ns,omitempty"`
}
