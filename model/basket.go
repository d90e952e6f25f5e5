package model

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

const (
	// factorBound truncates the common factor integral to [-factorBound, factorBound].
	factorBound = 7.5
	factorNodes = 48
	// lossBuckets is the resolution of the conditional loss distribution.
	lossBuckets = 200
)

// Obligor is one name of a one-factor Gaussian copula pool. PD is the default probability
// to the horizon, Weight the fraction of pool notional, Beta the factor loading.
type Obligor struct {
	PD       float64
	Weight   float64
	Recovery float64
	Beta     float64
}

// ExpectedBaseLoss returns E[min(L, k)] for the pool loss L (fraction of pool notional)
// of a heterogeneous pool, by bucketed loss recursion conditional on the common factor.
func ExpectedBaseLoss(pool []Obligor, k float64) float64 {
	return integrateFactor(func(m float64) float64 {
		return conditionalBaseLoss(pool, m, k)
	})
}

// ExpectedTrancheLoss returns the expected loss of the [attach, detach] tranche as a
// fraction of tranche notional.
func ExpectedTrancheLoss(pool []Obligor, attach, detach float64) float64 {
	if detach <= attach {
		return 0
	}
	return (ExpectedBaseLoss(pool, detach) - ExpectedBaseLoss(pool, attach)) / (detach - attach)
}

// LHPExpectedBaseLoss returns E[min(L, k)] for a large homogeneous pool with flat
// correlation rho, default probability pd and recovery.
func LHPExpectedBaseLoss(pd, recovery, rho, k float64) float64 {
	if k <= 0 || pd <= 0 {
		return 0
	}
	if pd >= 1 {
		return math.Min(1-recovery, k)
	}
	rho = clampCorrelation(rho)
	c := stdNormal.Quantile(pd)
	sr, s1 := math.Sqrt(rho), math.Sqrt(1-rho)
	return integrateFactor(func(m float64) float64 {
		return math.Min((1-recovery)*N((c-sr*m)/s1), k)
	})
}

// LHPExpectedTrancheLoss combines two base tranches with their own correlations
// (base correlation) into the expected loss of [attach, detach] per unit tranche notional.
func LHPExpectedTrancheLoss(pd, recovery, rhoAttach, rhoDetach, attach, detach float64) float64 {
	if detach <= attach {
		return 0
	}
	upper := LHPExpectedBaseLoss(pd, recovery, rhoDetach, detach)
	lower := 0.0
	if attach > 0 {
		lower = LHPExpectedBaseLoss(pd, recovery, rhoAttach, attach)
	}
	return math.Max(upper-lower, 0) / (detach - attach)
}

func integrateFactor(f func(m float64) float64) float64 {
	return quad.Fixed(func(m float64) float64 {
		return f(m) * stdNormal.Prob(m)
	}, -factorBound, factorBound, factorNodes, quad.Legendre{}, 0)
}

func clampCorrelation(rho float64) float64 {
	return math.Min(math.Max(rho, 1e-6), 0.999)
}

func conditionalPD(pd, beta, m float64) float64 {
	switch {
	case pd <= 0:
		return 0
	case pd >= 1:
		return 1
	}
	beta = math.Min(math.Max(beta, 0), 0.9995)
	return N((stdNormal.Quantile(pd) - beta*m) / math.Sqrt(1-beta*beta))
}

// conditionalBaseLoss builds the loss distribution given the factor and returns E[min(L,k)].
// Each name's loss is split linearly between the two nearest buckets.
func conditionalBaseLoss(pool []Obligor, m, k float64) float64 {
	maxLoss := 0.0
	for _, o := range pool {
		maxLoss += o.Weight * (1 - o.Recovery)
	}
	if maxLoss <= 0 {
		return 0
	}
	unit := maxLoss / lossBuckets
	dist := make([]float64, lossBuckets+1)
	next := make([]float64, lossBuckets+1)
	dist[0] = 1

	for _, o := range pool {
		p := conditionalPD(o.PD, o.Beta, m)
		if p == 0 {
			continue
		}
		steps := o.Weight * (1 - o.Recovery) / unit
		lo := int(math.Floor(steps))
		frac := steps - float64(lo)
		for j := range next {
			next[j] = dist[j] * (1 - p)
		}
		for j, mass := range dist {
			if mass == 0 {
				continue
			}
			a := min(j+lo, lossBuckets)
			b := min(j+lo+1, lossBuckets)
			next[a] += mass * p * (1 - frac)
			next[b] += mass * p * frac
		}
		dist, next = next, dist
	}

	el := 0.0
	for j, mass := range dist {
		el += mass * math.Min(float64(j)*unit, k)
	}
	return el
}
