package fusion

// axisFilter is a 1-D predict-then-correct estimator for one position axis.
// Predict inflates uncertainty by the process noise; correct blends the
// measurement in proportion to the current uncertainty against the
// measurement's own variance. Repeated consistent measurements shrink the
// variance and converge the state; a single outlier only moves the state
// by the gain, which stays below 1.

// predictAxis advances position by velocity over dt seconds and inflates
// the variance.
func predictAxis(pos, vel, variance, processNoise, dt float64) (newPos, newVar float64) {
	return pos + vel*dt, variance + processNoise*dt
}

// correctAxis blends measurement z into the predicted position. measVar is
// the measurement variance (larger = trusted less). Returns the corrected
// position, the shrunk variance, and the gain applied.
func correctAxis(pos, variance, z, measVar float64) (newPos, newVar, gain float64) {
	if variance <= 0 {
		variance = 1e-6
	}
	gain = variance / (variance + measVar)
	newPos = pos + gain*(z-pos)
	newVar = (1 - gain) * variance
	return newPos, newVar, gain
}
