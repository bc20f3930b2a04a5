package scoring

import "math"

// Sample is one labeled prediction: the ground-truth intent, the predicted
// intent and the classifier confidence. The sentinel label marks an
// out-of-scope utterance.
type Sample struct {
	TrueLabel  string  `json:"true_label"`
	Predicted  string  `json:"predicted"`
	Confidence float64 `json:"confidence"`
}

// OOSStats computes acceptance/rejection error rates for out-of-scope
// utterance handling over a fixed sample set.
type OOSStats struct {
	sentinel string
	samples  []Sample
}

// NewOOSStats creates statistics over the given samples. sentinel is the
// label value marking out-of-scope ground truth and predictions.
func NewOOSStats(sentinel string, samples []Sample) *OOSStats {
	return &OOSStats{sentinel: sentinel, samples: samples}
}

// FAR is the false acceptance rate at the given threshold: the fraction of
// truly out-of-scope samples that were confidently predicted as in-scope.
// Zero out-of-scope samples yield 0.0.
func (o *OOSStats) FAR(threshold float64) float64 {
	oos, accepted := 0, 0
	for _, s := range o.samples {
		if s.TrueLabel != o.sentinel {
			continue
		}
		oos++
		if s.Confidence >= threshold && s.Predicted != o.sentinel {
			accepted++
		}
	}
	if oos == 0 {
		return 0.0
	}
	return float64(accepted) / float64(oos)
}

// FRR is the false rejection rate at the given threshold: the fraction of
// truly in-scope samples rejected either by low confidence or by an
// out-of-scope prediction. Zero in-scope samples yield 0.0.
func (o *OOSStats) FRR(threshold float64) float64 {
	inScope, rejected := 0, 0
	for _, s := range o.samples {
		if s.TrueLabel == o.sentinel {
			continue
		}
		inScope++
		if s.Confidence < threshold || s.Predicted == o.sentinel {
			rejected++
		}
	}
	if inScope == 0 {
		return 0.0
	}
	return float64(rejected) / float64(inScope)
}

// Calibration summarizes the per-class confidence distributions and how well
// they separate.
type Calibration struct {
	InScopeMean   float64 `json:"in_scope_mean"`
	InScopeStdDev float64 `json:"in_scope_stddev"`
	InScopeCount  int     `json:"in_scope_count"`
	OOSMean       float64 `json:"oos_mean"`
	OOSStdDev     float64 `json:"oos_stddev"`
	OOSCount      int     `json:"oos_count"`
	Separability  float64 `json:"separability"`
	Quality       string  `json:"quality"`
}

// Calibrate reports per-class confidence mean/stddev and a separability
// index (in-scope mean minus OOS mean, over the average stddev), bucketed
// into excellent/good/fair/poor.
func (o *OOSStats) Calibrate() Calibration {
	var inScope, oos []float64
	for _, s := range o.samples {
		if s.TrueLabel == o.sentinel {
			oos = append(oos, s.Confidence)
		} else {
			inScope = append(inScope, s.Confidence)
		}
	}

	c := Calibration{
		InScopeCount: len(inScope),
		OOSCount:     len(oos),
	}
	c.InScopeMean, c.InScopeStdDev = meanStdDev(inScope)
	c.OOSMean, c.OOSStdDev = meanStdDev(oos)

	avgStd := (c.InScopeStdDev + c.OOSStdDev) / 2
	if avgStd > 0 {
		c.Separability = (c.InScopeMean - c.OOSMean) / avgStd
	}

	switch {
	case c.Separability > 2.0:
		c.Quality = "excellent"
	case c.Separability > 1.0:
		c.Quality = "good"
	case c.Separability > 0.5:
		c.Quality = "fair"
	default:
		c.Quality = "poor"
	}
	return c
}

// ThresholdPoint is one evaluated grid threshold.
type ThresholdPoint struct {
	Threshold float64 `json:"threshold"`
	FAR       float64 `json:"far"`
	FRR       float64 `json:"frr"`
	Sum       float64 `json:"sum"`
	Gap       float64 `json:"gap"`
}

// Target asks OptimizeThreshold to match a specific FAR or FRR instead of
// the equal-error-rate point. Metric is "far" or "frr".
type Target struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
}

// OptimizeResult is the grid sweep outcome.
type OptimizeResult struct {
	Grid []ThresholdPoint `json:"grid"`
	Best ThresholdPoint   `json:"best"`
	EER  float64          `json:"eer"`
}

// OptimizeThreshold sweeps thresholds on a fixed 0.05-step grid over
// [0.05, 0.95]. With a target it selects the threshold whose FAR (or FRR) is
// closest to the target value; without one it selects the point minimizing
// |FAR-FRR|, the equal-error-rate point. EER is reported as the mean of FAR
// and FRR at the selected point.
func (o *OOSStats) OptimizeThreshold(target *Target) OptimizeResult {
	var res OptimizeResult

	for step := 1; step <= 19; step++ {
		t := float64(step) * 0.05
		far := o.FAR(t)
		frr := o.FRR(t)
		res.Grid = append(res.Grid, ThresholdPoint{
			Threshold: t,
			FAR:       far,
			FRR:       frr,
			Sum:       far + frr,
			Gap:       math.Abs(far - frr),
		})
	}

	best := res.Grid[0]
	bestCost := optimizeCost(best, target)
	for _, p := range res.Grid[1:] {
		if cost := optimizeCost(p, target); cost < bestCost {
			best = p
			bestCost = cost
		}
	}

	res.Best = best
	res.EER = (best.FAR + best.FRR) / 2
	return res
}

func optimizeCost(p ThresholdPoint, target *Target) float64 {
	if target == nil {
		return p.Gap
	}
	if target.Metric == "frr" {
		return math.Abs(p.FRR - target.Value)
	}
	return math.Abs(p.FAR - target.Value)
}

func meanStdDev(values []float64) (mean, stddev float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}
