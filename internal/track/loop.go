package track

import "math"

// loopCoef holds the tau1/tau2 time constants of a discrete 2nd-order
// loop filter, computed the way Borre & Akos's "A Software-Defined GPS
// and Galileo Receiver" derives them from a target noise bandwidth and
// damping ratio -- the de-facto standard formula every open-source GPS
// SDR receiver (and spec.md §9's "Kaplan parameters" note) traces back
// to.
type loopCoef struct {
	tau1, tau2 float64
}

// calcLoopCoef derives (tau1, tau2) for a loop with noise bandwidth bwHz,
// damping zeta, and gain k (1.0 for the DLL code-only loop, 0.25 for the
// Costas PLL per the standard derivation).
func calcLoopCoef(bwHz, zeta, k float64) loopCoef {
	wn := bwHz * 8 * zeta / (4*zeta*zeta + 1)
	return loopCoef{
		tau1: k / (wn * wn),
		tau2: 2 * zeta / wn,
	}
}

// filter is a running 2nd-order digital loop filter: given a new
// discriminator output and the integration period, it returns the
// correction to apply to the NCO this step.
type filter struct {
	coef       loopCoef
	integrator float64
}

func newFilter(coef loopCoef) *filter {
	return &filter{coef: coef}
}

// Update advances the filter by one integration period pdi (seconds)
// given the latest discriminator output disc, and returns the NCO
// correction (proportional + integral terms).
func (f *filter) Update(disc, pdi float64) float64 {
	f.integrator += disc * pdi / f.coef.tau1
	proportional := disc * f.coef.tau2 / f.coef.tau1
	return f.integrator + proportional
}

// CostasDiscriminator is the 2-quadrant Costas PLL discriminator
// atan(QP/IP), insensitive to 180-degree navigation-bit phase flips
// (spec.md §4.5).
func CostasDiscriminator(ip, qp float64) float64 {
	if ip == 0 {
		if qp == 0 {
			return 0
		}
		return math.Copysign(math.Pi/2, qp)
	}
	return math.Atan(qp / ip)
}

// DLLDiscriminator is the non-coherent early-minus-late code
// discriminator (|E|-|L|)/(|E|+|L|) (spec.md §4.5).
func DLLDiscriminator(ieq, ilq complex128) float64 {
	e := cmplxAbs(ieq)
	l := cmplxAbs(ilq)
	if e+l == 0 {
		return 0
	}
	return (e - l) / (e + l)
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
