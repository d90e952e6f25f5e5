package model

import (
	"math"
)

// BarrierOut prices a single-barrier knock-out option with no rebate (Reiner-Rubinstein),
// monitored continuously on spot until expiry. forward is the forward to expiry; the
// carry is implied from spot and forward.
func BarrierOut(phi float64, down bool, spot, forward, strike, barrier, sigma, tau float64) float64 {
	if (down && spot <= barrier) || (!down && spot >= barrier) {
		return 0
	}
	if tau <= 0 || sigma <= 0 {
		return Intrinsic(phi, forward, strike)
	}

	sd := sigma * math.Sqrt(tau)
	b := math.Log(forward/spot) / tau
	mu := (b - 0.5*sigma*sigma) / (sigma * sigma)
	eta := 1.0
	if !down {
		eta = -1
	}
	hs := barrier / spot

	x1 := math.Log(spot/strike)/sd + (1+mu)*sd
	x2 := math.Log(spot/barrier)/sd + (1+mu)*sd
	y1 := math.Log(barrier*barrier/(spot*strike))/sd + (1+mu)*sd
	y2 := math.Log(barrier/spot)/sd + (1+mu)*sd

	a := phi*forward*N(phi*x1) - phi*strike*N(phi*x1-phi*sd)
	bb := phi*forward*N(phi*x2) - phi*strike*N(phi*x2-phi*sd)
	c := phi*forward*math.Pow(hs, 2*(mu+1))*N(eta*y1) - phi*strike*math.Pow(hs, 2*mu)*N(eta*y1-eta*sd)
	d := phi*forward*math.Pow(hs, 2*(mu+1))*N(eta*y2) - phi*strike*math.Pow(hs, 2*mu)*N(eta*y2-eta*sd)

	call := phi > 0
	above := strike > barrier
	var v float64
	switch {
	case down && call && above:
		v = a - c
	case down && call:
		v = bb - d
	case !down && call && above:
		v = 0
	case !down && call:
		v = a - bb + c - d
	case down && above:
		v = a - bb + c - d
	case down:
		v = 0
	case above:
		v = bb - d
	default:
		v = a - c
	}
	return math.Max(v, 0)
}

// BarrierIn prices the knock-in complement through in + out = vanilla.
func BarrierIn(phi float64, down bool, spot, forward, strike, barrier, sigma, tau float64) float64 {
	return math.Max(Black(phi, forward, strike, sigma, tau)-BarrierOut(phi, down, spot, forward, strike, barrier, sigma, tau), 0)
}

// doubleBarrierTerms is the truncation of the Ikeda-Kunitomo series on each side.
const doubleBarrierTerms = 5

// DoubleBarrierOut prices a knock-out option between flat barriers lower < upper
// (Ikeda-Kunitomo, no curvature, no rebate).
func DoubleBarrierOut(phi, spot, forward, strike, lower, upper, sigma, tau float64) float64 {
	if spot <= lower || spot >= upper {
		return 0
	}
	if tau <= 0 || sigma <= 0 {
		return Intrinsic(phi, forward, strike)
	}
	// region of the terminal spot where the payoff is positive
	lo, hi := math.Max(strike, lower), upper
	if phi < 0 {
		lo, hi = lower, math.Min(strike, upper)
	}
	if lo >= hi {
		return 0
	}

	sd := sigma * math.Sqrt(tau)
	b := math.Log(forward/spot) / tau
	mu := 2*b/(sigma*sigma) + 1
	drift := (b + 0.5*sigma*sigma) * tau
	lnS, lnL, lnU := math.Log(spot), math.Log(lower), math.Log(upper)

	sumF, sumK := 0.0, 0.0
	for n := -doubleBarrierTerms; n <= doubleBarrierTerms; n++ {
		fn := float64(n)
		shift := 2 * fn * (lnU - lnL)
		refl := 2*(fn+1)*lnL - 2*fn*lnU - lnS

		d1 := (lnS + shift - math.Log(lo) + drift) / sd
		d2 := (lnS + shift - math.Log(hi) + drift) / sd
		d3 := (refl - math.Log(lo) + drift) / sd
		d4 := (refl - math.Log(hi) + drift) / sd

		w1 := math.Exp(fn * mu * (lnU - lnL))
		w1k := math.Exp(fn * (mu - 2) * (lnU - lnL))
		r := (fn+1)*lnL - fn*lnU - lnS
		w3 := math.Exp(mu * r)
		w3k := math.Exp((mu - 2) * r)

		sumF += w1*(N(d1)-N(d2)) - w3*(N(d3)-N(d4))
		sumK += w1k*(N(d1-sd)-N(d2-sd)) - w3k*(N(d3-sd)-N(d4-sd))
	}
	v := phi * (forward*sumF - strike*sumK)
	return math.Max(v, 0)
}

// DoubleBarrierIn prices the knock-in complement.
func DoubleBarrierIn(phi, spot, forward, strike, lower, upper, sigma, tau float64) float64 {
	return math.Max(Black(phi, forward, strike, sigma, tau)-DoubleBarrierOut(phi, spot, forward, strike, lower, upper, sigma, tau), 0)
}
