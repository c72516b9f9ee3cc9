package googfit

import (
	"math"
	"strconv"
	"time"
)

// WorkoutTypeRowingMachine is the only workout type produced by DailyConcept2
const WorkoutTypeRowingMachine = "Rowing Machine"

// powerConstant converts a rowing pace (seconds per meter) into watts
const powerConstant = 2.8

// Dataset is the response body of a dataset query. An empty day carries
// `"point": []`, a missing or null point list is malformed.
type Dataset struct {
	DataSourceID   string   `json:"dataSourceId"`
	MinStartTimeNs string   `json:"minStartTimeNs"`
	MaxEndTimeNs   string   `json:"maxEndTimeNs"`
	Point          []*Point `json:"point"`
}

// Point is a single sample in a dataset
type Point struct {
	StartTimeNanos string   `json:"startTimeNanos"`
	EndTimeNanos   string   `json:"endTimeNanos"`
	DataTypeName   string   `json:"dataTypeName,omitempty"`
	Value          []*Value `json:"value"`
}

// Value holds one typed value of a point, only one field is set
type Value struct {
	IntVal *int64   `json:"intVal,omitempty"`
	FpVal  *float64 `json:"fpVal,omitempty"`
}

func (p *Point) start() (int64, error) {
	n, err := strconv.ParseInt(p.StartTimeNanos, 10, 64)
	if err != nil {
		return 0, malformed("point.startTimeNanos", err)
	}
	return n, nil
}

func (p *Point) end() (int64, error) {
	n, err := strconv.ParseInt(p.EndTimeNanos, 10, 64)
	if err != nil {
		return 0, malformed("point.endTimeNanos", err)
	}
	return n, nil
}

func (p *Point) first() (*Value, error) {
	if len(p.Value) == 0 || p.Value[0] == nil {
		return nil, malformed("point.value", nil)
	}
	return p.Value[0], nil
}

func (p *Point) intVal() (int64, error) {
	v, err := p.first()
	if err != nil {
		return 0, err
	}
	if v.IntVal == nil {
		return 0, malformed("point.value[0].intVal", nil)
	}
	return *v.IntVal, nil
}

func (p *Point) fpVal() (float64, error) {
	v, err := p.first()
	if err != nil {
		return 0, err
	}
	if v.FpVal == nil {
		return 0, malformed("point.value[0].fpVal", nil)
	}
	return *v.FpVal, nil
}

// Workout is a single rowing session
type Workout struct {
	StartNanos int64   `json:"start_ns"`
	EndNanos   int64   `json:"end_ns"`
	Distance   float64 `json:"distance_m"`
	Type       string  `json:"type"`
}

// Start returns the start of the workout in the location
func (w *Workout) Start(loc *time.Location) time.Time {
	return time.Unix(0, w.StartNanos).In(loc)
}

// Duration of the workout
func (w *Workout) Duration() time.Duration {
	return time.Duration(w.EndNanos - w.StartNanos)
}

// DurationSeconds returns the duration in (fractional) seconds
func (w *Workout) DurationSeconds() float64 {
	return float64(w.EndNanos-w.StartNanos) / 1e9
}

// Watts estimates the average power from the pace over the workout
func (w *Workout) Watts() (float64, error) {
	if w.Distance <= 0 {
		return 0, &InvalidWorkoutError{Workout: w, Reason: "no distance"}
	}
	secs := w.DurationSeconds()
	if secs <= 0 {
		return 0, &InvalidWorkoutError{Workout: w, Reason: "no duration"}
	}
	pace := secs / w.Distance
	return powerConstant / math.Pow(pace, 3), nil
}

// WattHours returns the energy produced over the workout
func (w *Workout) WattHours() (float64, error) {
	watts, err := w.Watts()
	if err != nil {
		return 0, err
	}
	return watts * w.DurationSeconds() / 3600, nil
}
