package geometry

// FilterHorizontal keeps segments whose orientation lies within tolDeg of
// 0°, 180° or 360°, in either direction of travel. Order is preserved.
func FilterHorizontal(segs []Segment, tolDeg float64) []Segment {
	var out []Segment
	for _, s := range segs {
		if IsHorizontal(s.Angle(), tolDeg) {
			out = append(out, s)
		}
	}
	return out
}

// IsHorizontal reports whether an angle in [0, 360) is within tolDeg of
// horizontal. Bounds are inclusive.
func IsHorizontal(angle, tolDeg float64) bool {
	return (angle >= 0 && angle <= tolDeg) ||
		(angle >= 180-tolDeg && angle <= 180+tolDeg) ||
		(angle >= 360-tolDeg && angle <= 360)
}
