package relocate

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/quakelab/ddlocate/internal/geodesy"
	"github.com/quakelab/ddlocate/internal/model"
	"github.com/quakelab/ddlocate/internal/traveltime"
)

// exclusion reasons recorded on per-observation residual reports.
const (
	reasonZeroWeight = "zero_weight"
	reasonNearField  = "near_field"
	reasonModelRange = "model_range"
)

// System is the weighted linearized system for one trial offset: the
// residual vector, the Jacobian of predicted differential time with
// respect to (dx, dy, dz, dt), and per-observation bookkeeping.
type System struct {
	Residuals []float64  // weighted residuals, usable rows only
	Jac       *mat.Dense // len(Residuals) x 4, weighted
	Cost      float64    // weighted sum of squared residuals
	Used      int
	Excluded  int
	Report    []model.Residual // one entry per observation, insertion order
}

// RMS returns the root-mean-square weighted residual.
func (s *System) RMS() float64 {
	if s.Used == 0 {
		return 0
	}
	return math.Sqrt(s.Cost / float64(s.Used))
}

// snapshot copies the system into a per-iteration record for the trial
// that produced it. The copies are independent of the solver's buffers.
func (s *System) snapshot(offset model.Offset, iteration int) model.TrialState {
	ts := model.TrialState{
		Offset:    offset,
		Iteration: iteration,
		Cost:      s.Cost,
		Residuals: append([]float64(nil), s.Residuals...),
	}
	if s.Jac != nil {
		ts.Jacobian = make([][]float64, s.Used)
		for i := range ts.Jacobian {
			ts.Jacobian[i] = mat.Row(nil, i, s.Jac)
		}
	}
	return ts
}

// builder evaluates trial offsets against the observation set. Master-side
// predictions never change, so they are computed once and cached.
type builder struct {
	master      model.Event
	obs         *model.ObservationSet
	mdl         traveltime.Model
	minDistKm   float64
	log         *zap.Logger
	masterCache map[model.Key]traveltime.Prediction
}

func newBuilder(master model.Event, obs *model.ObservationSet, mdl traveltime.Model, minDistKm float64, log *zap.Logger) *builder {
	return &builder{
		master:      master,
		obs:         obs,
		mdl:         mdl,
		minDistKm:   minDistKm,
		log:         log,
		masterCache: make(map[model.Key]traveltime.Prediction, obs.Len()),
	}
}

// masterPrediction returns the cached master-side prediction for an
// observation, computing it on first use.
func (b *builder) masterPrediction(o model.Observation) (traveltime.Prediction, error) {
	k := o.Key()
	if p, ok := b.masterCache[k]; ok {
		return p, nil
	}
	dist, _ := geodesy.DistAz(b.master.Latitude, b.master.Longitude, o.Station.Latitude, o.Station.Longitude)
	p, err := b.mdl.Predict(o.Phase, b.master.DepthKm, dist)
	if err != nil {
		return traveltime.Prediction{}, err
	}
	b.masterCache[k] = p
	return p, nil
}

// build assembles the weighted residual vector and Jacobian for the trial
// offset. Per-observation model-range failures and near-field stations are
// excluded from the system for this iteration only.
func (b *builder) build(trial model.Offset) (*System, error) {
	slaveLat, slaveLon := geodesy.Shift(b.master.Latitude, b.master.Longitude, trial.DxKm, trial.DyKm)
	slaveDepth := b.master.DepthKm + trial.DzKm

	all := b.obs.All()
	sys := &System{Report: make([]model.Residual, 0, len(all))}
	var rows []float64 // flattened Jacobian rows

	for _, o := range all {
		rep := model.Residual{
			Station:  o.Station.Name,
			Phase:    o.Phase,
			Weight:   o.Weight,
			Observed: o.DiffTime,
		}
		if o.Weight == 0 {
			rep.Excluded = true
			rep.Reason = reasonZeroWeight
			sys.Report = append(sys.Report, rep)
			continue
		}

		dist, az := geodesy.DistAz(slaveLat, slaveLon, o.Station.Latitude, o.Station.Longitude)
		if geodesy.Km(dist) < b.minDistKm {
			b.log.Warn("station excluded in near field",
				zap.String("station", o.Station.Name),
				zap.String("phase", o.Phase),
				zap.Float64("dist_km", geodesy.Km(dist)),
			)
			rep.Excluded = true
			rep.Reason = reasonNearField
			sys.Report = append(sys.Report, rep)
			sys.Excluded++
			continue
		}

		masterPred, err := b.masterPrediction(o)
		if err == nil {
			var slavePred traveltime.Prediction
			slavePred, err = b.mdl.Predict(o.Phase, slaveDepth, dist)
			if err == nil {
				predDiff := slavePred.TimeSec + trial.DtSec - masterPred.TimeSec
				resid := o.Weight * (o.DiffTime - predDiff)

				// Horizontal slowness projected onto the local east/north
				// axes through the station azimuth from the trial location.
				ph := slavePred.DtDd / geodesy.KmPerDeg // s/km
				azRad := az * math.Pi / 180.0
				sys.Residuals = append(sys.Residuals, resid)
				rows = append(rows,
					o.Weight*(-ph*math.Sin(azRad)),
					o.Weight*(-ph*math.Cos(azRad)),
					o.Weight*slavePred.DtDh,
					o.Weight,
				)
				sys.Cost += resid * resid
				sys.Used++

				rep.Predicted = predDiff
				rep.Value = resid
				sys.Report = append(sys.Report, rep)
				continue
			}
		}
		if !eris.Is(err, traveltime.ErrModelRange) && !eris.Is(err, traveltime.ErrUnknownPhase) {
			return nil, eris.Wrapf(err, "relocate: predict %s/%s", o.Station.Name, o.Phase)
		}
		b.log.Warn("station excluded, outside model range",
			zap.String("station", o.Station.Name),
			zap.String("phase", o.Phase),
			zap.Float64("dist_deg", dist),
			zap.Error(err),
		)
		rep.Excluded = true
		rep.Reason = reasonModelRange
		sys.Report = append(sys.Report, rep)
		sys.Excluded++
	}

	if sys.Used > 0 {
		sys.Jac = mat.NewDense(sys.Used, 4, rows)
	}
	return sys, nil
}
