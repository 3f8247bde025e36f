package relocate

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"

	"github.com/quakelab/ddlocate/internal/model"
)

// Estimate computes the parameter covariance from the final linearized
// system: residual variance Σr²/dof scaled into (JᵀJ)⁻¹, where the inverse
// comes from the SVD pseudo-inverse of J so rank-deficient systems stay
// positive semi-definite. It runs once, after the solver reaches a
// terminal state.
func Estimate(jac *mat.Dense, residuals []float64, dof int) (*model.Uncertainty, error) {
	if dof <= 0 {
		return nil, eris.Wrapf(ErrInsufficientData, "%d degrees of freedom", dof)
	}

	var ss float64
	for _, r := range residuals {
		ss += r * r
	}
	variance := ss / float64(dof)

	var svd mat.SVD
	if ok := svd.Factorize(jac, mat.SVDThin); !ok {
		return nil, eris.Wrap(ErrSingularSystem, "svd of final jacobian failed")
	}
	values := svd.Values(nil)
	var v mat.Dense
	svd.VTo(&v)

	// (JᵀJ)⁻¹ = V S⁻² Vᵀ, dropping singular values below the numerical
	// rank cutoff.
	cutoff := values[0] * 1e-12
	cov := make([][]float64, nParams)
	for i := range cov {
		cov[i] = make([]float64, nParams)
	}
	for i := 0; i < nParams; i++ {
		for j := i; j < nParams; j++ {
			var sum float64
			for k, s := range values {
				if s <= cutoff {
					continue
				}
				sum += v.At(i, k) * v.At(j, k) / (s * s)
			}
			c := variance * sum
			cov[i][j] = c
			cov[j][i] = c
		}
	}

	unc := &model.Uncertainty{Covariance: cov}
	for i := 0; i < nParams; i++ {
		unc.StdErr[i] = math.Sqrt(math.Max(0, cov[i][i]))
	}

	ellipse(cov, unc)
	ellipsoid(cov, unc)
	return unc, nil
}

// ellipse fills the one-sigma epicentral error ellipse from the (dx, dy)
// covariance sub-block.
func ellipse(cov [][]float64, unc *model.Uncertainty) {
	sub := mat.NewSymDense(2, []float64{
		cov[0][0], cov[0][1],
		cov[0][1], cov[1][1],
	})
	var eig mat.EigenSym
	if ok := eig.Factorize(sub, true); !ok {
		return
	}
	vals := eig.Values(nil) // ascending
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	unc.EllipseMajorKm = math.Sqrt(math.Max(0, vals[1]))
	unc.EllipseMinorKm = math.Sqrt(math.Max(0, vals[0]))

	// Azimuth of the major axis, clockwise from north; the eigenvector is
	// (east, north).
	az := math.Atan2(vecs.At(0, 1), vecs.At(1, 1)) * 180.0 / math.Pi
	if az < 0 {
		az += 180.0
	}
	if az >= 180.0 {
		az -= 180.0
	}
	unc.EllipseAzimuthDeg = az
}

// ellipsoid fills the one-sigma spatial error ellipsoid semi-axes from the
// (dx, dy, dz) covariance sub-block, descending.
func ellipsoid(cov [][]float64, unc *model.Uncertainty) {
	sub := mat.NewSymDense(3, []float64{
		cov[0][0], cov[0][1], cov[0][2],
		cov[0][1], cov[1][1], cov[1][2],
		cov[0][2], cov[1][2], cov[2][2],
	})
	var eig mat.EigenSym
	if ok := eig.Factorize(sub, false); !ok {
		return
	}
	vals := eig.Values(nil)
	for i := 0; i < 3; i++ {
		unc.EllipsoidKm[i] = math.Sqrt(math.Max(0, vals[2-i]))
	}
}
