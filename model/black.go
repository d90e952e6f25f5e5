// Package model holds closed-form and semi-analytic pricing kernels. Prices are undiscounted
// (forward measure) unless a function says otherwise; phi is +1 for calls and -1 for puts.
package model

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// N is the standard normal CDF.
func N(x float64) float64 {
	return stdNormal.CDF(x)
}

// Intrinsic returns max(phi*(forward-strike), 0).
func Intrinsic(phi, forward, strike float64) float64 {
	return math.Max(phi*(forward-strike), 0)
}

// Black prices a European option on a lognormal forward.
func Black(phi, forward, strike, sigma, tau float64) float64 {
	if tau <= 0 || sigma <= 0 || forward <= 0 || strike <= 0 {
		return Intrinsic(phi, forward, strike)
	}
	sd := sigma * math.Sqrt(tau)
	d1 := (math.Log(forward/strike) + 0.5*sd*sd) / sd
	d2 := d1 - sd
	return phi * (forward*N(phi*d1) - strike*N(phi*d2))
}

// BlackNormal prices a European option on a normally distributed forward (Bachelier).
func BlackNormal(phi, forward, strike, sigma, tau float64) float64 {
	if tau <= 0 || sigma <= 0 {
		return Intrinsic(phi, forward, strike)
	}
	sd := sigma * math.Sqrt(tau)
	dd := (forward - strike) / sd
	return phi*(forward-strike)*N(phi*dd) + sd*stdNormal.Prob(dd)
}
