package geostat

import (
	"fmt"
	"math"
	"math/rand"

	vec3d "github.com/flywave/go3d/float64/vec3"
	"gonum.org/v1/gonum/stat"
)

// CVRecord is one held-out observation with its prediction under the
// model trained on the remaining folds. Residual is observed minus
// predicted.
type CVRecord struct {
	X         float64
	Y         float64
	Observed  float64
	Predicted float64
	Residual  float64
}

// CrossValidate runs seeded k-fold cross-validation of ordinary kriging
// under a fixed variogram model. The fold permutation is deterministic
// for a given seed, every observation is held out exactly once, and
// records come back in observation order. A fold count above the
// observation count degrades to leave-one-out.
func CrossValidate(ps *PointSet, model VariogramModel, k int, seed int64) ([]CVRecord, error) {
	n := ps.Len()
	if k < 2 {
		return nil, fmt.Errorf("cross-validation: fold count %d, need at least 2", k)
	}
	if n < 3 {
		return nil, fmt.Errorf("cross-validation: %w: %d observations, need at least 3", ErrVariogramFit, n)
	}
	if k > n {
		k = n
	}

	fold := make([]int, n)
	for i, p := range rand.New(rand.NewSource(seed)).Perm(n) {
		fold[p] = i % k
	}

	records := make([]CVRecord, n)
	for f := 0; f < k; f++ {
		trainPos := make([]vec3d.T, 0, n)
		for i := range ps.pos {
			if fold[i] != f {
				trainPos = append(trainPos, ps.pos[i])
			}
		}
		kr, err := NewKriging(newPointSet(trainPos, ps.target, ps.srs), model)
		if err != nil {
			return nil, fmt.Errorf("cross-validation fold %d: %w", f, err)
		}
		for i := range ps.pos {
			if fold[i] != f {
				continue
			}
			pred, _, err := kr.Predict(ps.pos[i][0], ps.pos[i][1])
			if err != nil {
				return nil, fmt.Errorf("cross-validation fold %d: %v", f, err)
			}
			obs := ps.pos[i][2]
			records[i] = CVRecord{
				X:         ps.pos[i][0],
				Y:         ps.pos[i][1],
				Observed:  obs,
				Predicted: pred,
				Residual:  obs - pred,
			}
		}
	}
	return records, nil
}

// Summary reduces cross-validation records to the root mean squared
// error and the mean error of the residuals.
func Summary(records []CVRecord) (rmse, me float64) {
	if len(records) == 0 {
		return 0, 0
	}
	res := make([]float64, len(records))
	var sq float64
	for i, r := range records {
		res[i] = r.Residual
		sq += pow2(r.Residual)
	}
	return math.Sqrt(sq / float64(len(records))), stat.Mean(res, nil)
}
