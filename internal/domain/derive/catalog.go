package derive

import "regexp"

// Raw columns every input table must carry.
const (
	ColFrame      = "frame"
	ColTimestamp  = "timestamp"
	ColConfidence = "confidence"
)

// Derived channel names.
const (
	ChannelEAR           = "ear"
	ChannelPupilScale    = "p_scale"
	ChannelHeadPoseMag   = "head_pose_mag"
	ChannelGazeMag       = "gaze_mag"
	ChannelHeadPoseR     = "head_pose_r"
	ChannelHeadPoseTheta = "head_pose_theta"
	ChannelGazeR         = "gaze_r"
	ChannelGazeTheta     = "gaze_theta"
)

// Pass-through pose and gaze columns as written by OpenFace.
const (
	ColGazeX  = "gaze_angle_x"
	ColGazeY  = "gaze_angle_y"
	ColPoseRx = "pose_Rx"
	ColPoseRy = "pose_Ry"
	ColPoseRz = "pose_Rz"
)

// Upstream-provided replacements for derived channels.
const (
	colEARPlugin = "eye_lmk_EAR_avg" // FeatureExtraction -eye
	colPDMScale  = "p_scale"         // FeatureExtraction -pdmparams
)

var actionUnit = regexp.MustCompile(`^AU\d{2}_[rc]$`)

var passThrough = map[string]bool{
	ColGazeX: true, ColGazeY: true,
	ColPoseRx: true, ColPoseRy: true, ColPoseRz: true,
	"pose_Tx": true, "pose_Ty": true, "pose_Tz": true,
	"gaze_0_x": true, "gaze_0_y": true, "gaze_0_z": true,
	"gaze_1_x": true, "gaze_1_y": true, "gaze_1_z": true,
}

// Eye landmark layouts, listed in canonical p0..p5 order.
var (
	// eye_lmk_* region landmarks (FeatureExtraction -eye).
	eyeRegionLeft  = EyeLayout("eye_lmk_", [6]int{36, 40, 38, 42, 46, 44})
	eyeRegionRight = EyeLayout("eye_lmk_", [6]int{8, 12, 10, 14, 18, 16})
	// 68-point 2D face landmarks (FeatureExtraction -2Dfp).
	faceLeft  = EyeLayout("", [6]int{36, 37, 38, 39, 40, 41})
	faceRight = EyeLayout("", [6]int{42, 43, 44, 45, 46, 47})
)

// Lookup returns the metric that derives channel. poseAxes is the explicit
// head-pose axis set for this run; polar head pose uses its first two axes.
func Lookup(channel string, poseAxes []string) (Metric, bool) {
	switch channel {
	case ChannelEAR:
		return Metric{Channel: channel, Sources: []Source{
			Column(colEARPlugin),
			AspectRatio{Label: "eye_lmk", Left: eyeRegionLeft, Right: eyeRegionRight},
			AspectRatio{Label: "face_2d", Left: faceLeft, Right: faceRight},
		}}, true
	case ChannelPupilScale:
		return Metric{Channel: channel, Sources: []Source{
			Column(colPDMScale),
			Distance{Label: "eye_lmk_pupil", Pairs: [][2]PointColumns{
				{Landmark("eye_lmk_", 51), Landmark("eye_lmk_", 55)},
				{Landmark("eye_lmk_", 23), Landmark("eye_lmk_", 27)},
			}},
			Distance{Label: "face_2d_pupil", Pairs: [][2]PointColumns{
				{Landmark("", 68), Landmark("", 81)},
			}},
		}}, true
	case ChannelHeadPoseMag:
		return Metric{Channel: channel, Sources: []Source{Magnitude(poseAxes)}}, true
	case ChannelGazeMag:
		return Metric{Channel: channel, Sources: []Source{Magnitude{ColGazeX, ColGazeY}}}, true
	case ChannelHeadPoseR, ChannelHeadPoseTheta:
		if len(poseAxes) < 2 {
			return Metric{}, false
		}
		part := Radius
		if channel == ChannelHeadPoseTheta {
			part = Angle
		}
		return Metric{Channel: channel, Sources: []Source{PolarOf{X: poseAxes[0], Y: poseAxes[1], Part: part}}}, true
	case ChannelGazeR, ChannelGazeTheta:
		part := Radius
		if channel == ChannelGazeTheta {
			part = Angle
		}
		return Metric{Channel: channel, Sources: []Source{PolarOf{X: ColGazeX, Y: ColGazeY, Part: part}}}, true
	}
	if passThrough[channel] || actionUnit.MatchString(channel) {
		return Metric{Channel: channel, Sources: []Source{Column(channel)}}, true
	}
	return Metric{}, false
}
