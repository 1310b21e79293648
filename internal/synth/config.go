package synth

// Layout selects which eye columns a generated table carries.
type Layout string

// Eye column layouts.
const (
	LayoutEyeRegion Layout = "eye_lmk" // FeatureExtraction -eye landmarks
	LayoutFace2D    Layout = "face_2d" // 68-point 2D face landmarks
	LayoutPlugin    Layout = "plugin"  // precomputed eye_lmk_EAR_avg and p_scale
)

// Config holds generation parameters.
type Config struct {
	Subjects   int      // number of subjects
	Frames     int      // frames per recording
	Conditions []string // one recording per subject and condition
	FPS        float64  // frame rate for timestamps
	Seed       uint64   // identical seeds give identical files
	// LowConfidence is the fraction of frames given a tracker confidence
	// below 0.5.
	LowConfidence float64
	Layout        Layout
	// Effect scales how strongly conditions shift EAR, gaze and pose.
	Effect float64
}

// DefaultConfig returns a small three-condition dataset.
func DefaultConfig() Config {
	return Config{
		Subjects:      3,
		Frames:        450,
		Conditions:    []string{"0", "5", "10"},
		FPS:           30,
		Seed:          1,
		LowConfidence: 0.02,
		Layout:        LayoutEyeRegion,
		Effect:        1,
	}
}
