// Package relocate implements the master-event relative relocation core: a
// damped Gauss-Newton (Geiger) solver for the offset of a slave event with
// respect to a fixed master, driven by differential travel-time
// observations at common stations.
package relocate

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/quakelab/ddlocate/internal/model"
	"github.com/quakelab/ddlocate/internal/traveltime"
)

// Solver relocates one doublet. A Solver holds no per-run mutable state
// shared between calls other than its immutable inputs, so independent
// doublets may run in parallel with separate Solver values sharing one
// Model.
type Solver struct {
	master model.Event
	mdl    traveltime.Model
	opts   Options
	log    *zap.Logger
}

// New constructs a solver for the given master event and travel-time
// model. Master depth is validated against the model range here, before
// any iteration can start.
func New(master model.Event, mdl traveltime.Model, opts Options) (*Solver, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if master.DepthKm < 0 || master.DepthKm > mdl.MaxDepthKm() {
		return nil, eris.Wrapf(ErrInput, "master depth %.3f km outside model range [0, %.3f]",
			master.DepthKm, mdl.MaxDepthKm())
	}
	return &Solver{master: master, mdl: mdl, opts: opts, log: zap.L()}, nil
}

// Solve runs the relocation for one observation set. Non-convergence is
// reported through Solution.Status, not an error; errors are reserved for
// the fatal input and singular-system cases.
func (s *Solver) Solve(obs *model.ObservationSet) (*model.Solution, error) {
	if usable := obs.Usable(); usable < nParams {
		return nil, eris.Wrapf(ErrInput, "%d usable observations, need at least %d", usable, nParams)
	}

	sol, err := s.run(obs)
	if err != nil {
		return nil, err
	}

	if s.opts.RejectOutliers && sol.Status == model.StatusConverged {
		if trimmed := s.rejectOutliers(obs, sol); trimmed != nil {
			// One repetition only; a second pass could oscillate.
			resol, err := s.run(trimmed)
			if err != nil {
				s.log.Warn("outlier re-run failed, keeping first-pass solution", zap.Error(err))
				return sol, nil
			}
			return resol, nil
		}
	}
	return sol, nil
}

// Evaluate builds the residual system at a fixed trial offset without
// iterating, returning the per-observation report and the weighted RMS.
// It backs the check command, where an externally obtained offset is
// scored against the observations.
func (s *Solver) Evaluate(obs *model.ObservationSet, trial model.Offset) ([]model.Residual, float64, error) {
	if usable := obs.Usable(); usable == 0 {
		return nil, 0, eris.Wrap(ErrInput, "no usable observations")
	}
	b := newBuilder(s.master, obs, s.mdl, s.opts.MinStationDistKm, s.log)
	sys, err := b.build(trial)
	if err != nil {
		return nil, 0, err
	}
	return sys.Report, sys.RMS(), nil
}

// iterState carries the loop bookkeeping between iterations.
type iterState struct {
	offset    model.Offset
	cost      float64
	iteration int
}

// run is one full solver pass over the observation set.
func (s *Solver) run(obs *model.ObservationSet) (*model.Solution, error) {
	b := newBuilder(s.master, obs, s.mdl, s.opts.MinStationDistKm, s.log)

	status := model.StatusInitialized
	cur := iterState{cost: math.Inf(1)}
	best := cur
	lambda := s.opts.Damping
	increases := 0

	for it := 0; it < s.opts.MaxIterations; it++ {
		status = model.StatusIterating

		sys, err := b.build(cur.offset)
		if err != nil {
			return nil, err
		}
		if sys.Used < nParams {
			return nil, eris.Wrapf(ErrSingularSystem,
				"iteration %d: %d usable observations after exclusions", it, sys.Used)
		}
		if s.opts.OnIteration != nil {
			s.opts.OnIteration(sys.snapshot(cur.offset, it))
		}

		update, usedLambda, err := dampedStep(sys, lambda, s.opts.DampingFactor, s.opts.MaxDamping)
		if err != nil {
			return nil, eris.Wrapf(err, "iteration %d (cost %.6g)", it, sys.Cost)
		}
		lambda = usedLambda

		improved := sys.Cost <= cur.cost
		if improved {
			increases = 0
			lambda = math.Max(lambda/s.opts.DampingFactor, s.opts.Damping)
		} else {
			increases++
			lambda = math.Min(lambda*s.opts.DampingFactor, s.opts.MaxDamping)
		}

		prevCost := cur.cost
		cur = iterState{offset: cur.offset.Add(update), cost: sys.Cost, iteration: it + 1}
		if sys.Cost <= best.cost {
			best = iterState{offset: cur.offset, cost: sys.Cost, iteration: it + 1}
		}

		s.log.Debug("iteration",
			zap.Int("n", it),
			zap.Float64("cost", sys.Cost),
			zap.Float64("update_norm", update.Norm()),
			zap.Float64("lambda", lambda),
			zap.Int("used", sys.Used),
			zap.Int("excluded", sys.Excluded),
		)

		if update.Norm() < s.opts.Tolerance && sys.Cost <= prevCost {
			status = model.StatusConverged
			break
		}
		if increases > s.opts.DivergenceLimit {
			status = model.StatusDiverged
			// Report the best offset seen, not the runaway one.
			cur = best
			break
		}
	}
	if status == model.StatusIterating {
		status = model.StatusMaxIter
	}

	return s.finalize(b, cur, status)
}

// finalize rebuilds the system at the terminal offset and assembles the
// Solution, including the covariance when there are degrees of freedom.
func (s *Solver) finalize(b *builder, final iterState, status model.SolveStatus) (*model.Solution, error) {
	sys, err := b.build(final.offset)
	if err != nil {
		return nil, err
	}
	if sys.Used < nParams {
		return nil, eris.Wrapf(ErrSingularSystem,
			"final system has %d usable observations", sys.Used)
	}

	sol := &model.Solution{
		Offset:     final.offset,
		Residuals:  sys.Report,
		RMS:        sys.RMS(),
		Iterations: final.iteration,
		Status:     status,
		Converged:  status == model.StatusConverged,
		Used:       sys.Used,
		Excluded:   sys.Excluded,
	}

	unc, err := Estimate(sys.Jac, sys.Residuals, sys.Used-nParams)
	switch {
	case err == nil:
		sol.Uncertainty = unc
	case eris.Is(err, ErrInsufficientData):
		// The location stands; only the covariance is withheld.
		s.log.Warn("covariance withheld", zap.Error(err))
	default:
		return nil, err
	}

	if status != model.StatusConverged {
		s.log.Warn("solver did not converge",
			zap.String("status", string(status)),
			zap.Int("iterations", final.iteration),
			zap.Float64("cost", final.cost),
		)
	}
	return sol, nil
}

// rejectOutliers returns a reweighted copy of the observation set with
// residuals beyond the configured threshold zero-weighted, or nil when
// nothing qualifies.
func (s *Solver) rejectOutliers(obs *model.ObservationSet, sol *model.Solution) *model.ObservationSet {
	var sum float64
	n := 0
	for _, r := range sol.Residuals {
		if !r.Excluded {
			sum += r.Value * r.Value
			n++
		}
	}
	if n == 0 {
		return nil
	}
	std := math.Sqrt(sum / float64(n))
	if std == 0 {
		return nil
	}

	limit := s.opts.OutlierThreshold * std
	out := obs
	rejected := 0
	for _, r := range sol.Residuals {
		if r.Excluded || math.Abs(r.Value) <= limit {
			continue
		}
		out = out.Reweight(model.Key{Station: r.Station, Phase: r.Phase}, 0)
		rejected++
		s.log.Info("observation rejected as outlier",
			zap.String("station", r.Station),
			zap.String("phase", r.Phase),
			zap.Float64("residual", r.Value),
			zap.Float64("limit", limit),
		)
	}
	if rejected == 0 || out.Usable() < nParams {
		return nil
	}
	return out
}
