package nn

import "math"

// sigmoid is the logistic function 1/(1+e^-z).
func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// sigmoidGrad is σ' expressed through s = σ(z).
func sigmoidGrad(s float64) float64 {
	return s * (1 - s)
}
