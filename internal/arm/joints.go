package arm

import "math"

// NumJoints is the width of the joint command sent to the simulator.
const NumJoints = 11

// Joint indices with a fixed meaning in the command vector.
const (
	JointShoulder   = 0
	JointSlide      = 1
	JointUpperArm   = 3
	JointElbow      = 5
	JointWrist      = 7
	JointPaddleTilt = 9
	JointPaddleSpin = 10
)

// ReadyTilt is the paddle tilt used for the ready pose and the don't-wait stance.
const ReadyTilt = 1.1

type Joints [NumJoints]float64

// Neutral is the resting pose the simulator starts from.
func Neutral() Joints {
	var j Joints
	j[JointPaddleSpin] = math.Pi / 2
	return j
}

// WithArm writes an arm-model output onto the four positioning joints.
func (j Joints) WithArm(a [4]float64) Joints {
	j[JointShoulder] = a[0]
	j[JointUpperArm] = a[1]
	j[JointElbow] = a[2]
	j[JointWrist] = a[3]
	return j
}

func (j Joints) Slice() []float64 {
	return append([]float64(nil), j[:]...)
}

// SmashTilt keeps the paddle perpendicular to the table at stance height z.
func SmashTilt(z float64) float64 {
	return -2.3 + z*z*1.3
}
