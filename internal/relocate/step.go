package relocate

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"

	"github.com/quakelab/ddlocate/internal/model"
)

// nParams is the number of unknowns: dx, dy, dz, dt.
const nParams = 4

// solveStep solves the damped normal equations (JᵀJ + λI)Δp = Jᵀr as the
// equivalent augmented least-squares problem
//
//	| J        |      | r |
//	| sqrt(λ)I | Δp ≈ | 0 |
//
// via QR, which tolerates ill-conditioned Jacobians without forming JᵀJ.
func solveStep(sys *System, damping float64) (model.Offset, error) {
	if sys.Used < nParams {
		return model.Offset{}, eris.Wrapf(ErrSingularSystem,
			"%d usable observations for %d unknowns", sys.Used, nParams)
	}

	n := sys.Used
	aug := mat.NewDense(n+nParams, nParams, nil)
	aug.Slice(0, n, 0, nParams).(*mat.Dense).Copy(sys.Jac)
	sqrtLambda := math.Sqrt(damping)
	for i := 0; i < nParams; i++ {
		aug.Set(n+i, i, sqrtLambda)
	}

	rhs := mat.NewVecDense(n+nParams, nil)
	for i, r := range sys.Residuals {
		rhs.SetVec(i, r)
	}

	var qr mat.QR
	qr.Factorize(aug)
	update := mat.NewVecDense(nParams, nil)
	if err := qr.SolveVecTo(update, false, rhs); err != nil {
		return model.Offset{}, eris.Wrapf(err, "relocate: least-squares solve (lambda=%g)", damping)
	}

	out := model.Offset{
		DxKm:  update.AtVec(0),
		DyKm:  update.AtVec(1),
		DzKm:  update.AtVec(2),
		DtSec: update.AtVec(3),
	}
	for _, v := range out.Vec() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return model.Offset{}, eris.Wrapf(ErrSingularSystem,
				"non-finite update at lambda=%g", damping)
		}
	}
	return out, nil
}

// dampedStep retries solveStep with growing damping until it succeeds or
// the damping cap is reached.
func dampedStep(sys *System, damping, factor, maxDamping float64) (model.Offset, float64, error) {
	lambda := damping
	for {
		update, err := solveStep(sys, lambda)
		if err == nil {
			return update, lambda, nil
		}
		if eris.Is(err, ErrSingularSystem) && sys.Used < nParams {
			return model.Offset{}, lambda, err
		}
		if lambda >= maxDamping {
			return model.Offset{}, lambda, eris.Wrapf(ErrSingularSystem,
				"solve failed at maximum damping %g: %v", maxDamping, err)
		}
		lambda = math.Min(math.Max(lambda*factor, factor), maxDamping)
	}
}
