package main

import "math"

// McNemarResult compares paired pass/fail outcomes of the two modes.
// B counts queries where only baseline failed, C where only coached failed.
type McNemarResult struct {
	B    int     `json:"b"`
	C    int     `json:"c"`
	Chi2 float64 `json:"chi2"`
	P    float64 `json:"p"`
}

// mcnemar runs the continuity corrected McNemar test (df=1).
func mcnemar(baselineFail, coachedFail []bool) McNemarResult {
	var res McNemarResult
	for i := range baselineFail {
		bf, cf := baselineFail[i], coachedFail[i]
		if bf && !cf {
			res.B++
		}
		if !bf && cf {
			res.C++
		}
	}
	denom := float64(res.B + res.C)
	if denom == 0 {
		res.P = 1
		return res
	}
	res.Chi2 = math.Pow(math.Max(math.Abs(float64(res.B-res.C))-1, 0), 2) / denom
	z := math.Sqrt(res.Chi2)
	cdf := 0.5 * (1 + math.Erf(z/math.Sqrt2))
	res.P = 2 * (1 - cdf)
	return res
}
