package ultrahdr

const (
	sdrWhiteNits = 203.0
	pqMaxNits    = 10000.0
	hlgMaxNits   = 1000.0
)

const (
	defaultGainMapScale   = 4
	defaultBaseQuality    = 95
	defaultPrimaryQuality = 95
	defaultGainMapQuality = 85
	defaultGamma          = 1.0
	defaultHDRWhiteNits   = 1000.0
)

const (
	jpegrVersion = "1.0"
)

const (
	// kJobSzInRows is the row-count granularity of a single tile-queue job,
	// matching the original library's job sizing for gain-map generate/apply.
	kJobSzInRows = 16

	// maxWorkers bounds the worker pool regardless of detected core count.
	maxWorkers = 4
)

// maxBufferSize is the largest raw pixel buffer the editor will allocate a
// scratch copy for in one step (3840x2160 4:2:0 at 1.5 bytes/px).
const maxBufferSize = 3840 * 2160 * 3 / 2
