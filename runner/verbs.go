package runner

// Units at the external-interface boundary: ConcreteTask fields like
// cadence and lc_duration arrive in seconds, matching the queue envelope
// and store schema; everywhere a value crosses into the lightcurve
// package it is converted to days first, since ArbitraryRaster.Times is
// always in days end-to-end.

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"plato-wp36.eu/testbench/arena"
	"plato-wp36.eu/testbench/iterate"
	"plato-wp36.eu/testbench/lightcurve"
	"plato-wp36.eu/testbench/synth"
	"plato-wp36.eu/testbench/tda"
	"plato-wp36.eu/testbench/telemetry"
)

const secondsPerDay = 86400.0

type verbFunc func(ctx context.Context, e *execution, task iterate.ConcreteTask) error

// verbTable maps every recognized verb to its handler. An unrecognized
// verb is a task failure, caught by runTask's caller.
var verbTable = map[string]verbFunc{
	"null":              verbNull,
	"error":             verbError,
	"psls_synthesise":   synthesiseVerb("psls_synthesise", synth.PSLS{}),
	"batman_synthesise": synthesiseVerb("batman_synthesise", synth.Batman{}),
	"multiplication":    verbMultiplication,
	"binning":           verbBinning,
	"verify":            verbVerify,
	"transit_search":    verbTransitSearch,
	"delete":            verbDelete,
}

// targetField names, per verb, the handle field that identifies the
// task's subject for telemetry (RunTimeRecord/ResultRecord target_name).
var targetField = map[string]string{
	"psls_synthesise":   "target",
	"batman_synthesise": "target",
	"multiplication":    "output",
	"binning":           "target",
	"verify":            "source",
	"transit_search":    "source",
	"delete":            "source",
}

// taskIdentity derives the (target_name, tda_code) pair a task's timer
// and results are filed under. Both default to empty when the verb
// carries no such concept (null, error).
func taskIdentity(task iterate.ConcreteTask, verb string) (targetName, tdaCode string) {
	if field, ok := targetField[verb]; ok {
		if h, err := handleValue(task, field); err == nil {
			targetName = h.Filename
		}
	}
	if verb == "transit_search" {
		if name, ok := task["tda_name"].(string); ok {
			tdaCode = name
		}
	}
	return
}

// 4.6.1 null — no-op, used for smoke tests.
func verbNull(ctx context.Context, e *execution, task iterate.ConcreteTask) error {
	return nil
}

// 4.6.2 error — force a failure, used to exercise the error path.
func verbError(ctx context.Context, e *execution, task iterate.ConcreteTask) error {
	return fmt.Errorf("runner: error task forced a failure")
}

// synthesiseVerb builds the psls_synthesise/batman_synthesise handler:
// synthesize against specs, write the product to the target handle, and
// track it for clean_up if it landed in the archive.
func synthesiseVerb(name string, synthesiser synth.Synthesiser) verbFunc {
	return func(ctx context.Context, e *execution, task iterate.ConcreteTask) error {
		target, err := handleValue(task, "target")
		if err != nil {
			return err
		}
		specs, err := specsFromTask(task)
		if err != nil {
			return err
		}

		raster, err := synthesiser.Synthesise(ctx, specs)
		if err != nil {
			return fmt.Errorf("runner: %s: %w", name, err)
		}

		if err := e.runner.Arena.Put(target, raster); err != nil {
			return fmt.Errorf("runner: %s: writing product: %w", name, err)
		}
		if target.Source == arena.SourceArchive {
			e.trackArchiveHandle(target)
		}
		return nil
	}
}

// 4.6.5 multiplication — output := input_1 * resample(input_2 onto
// input_1.times), via the area-preserving resampler.
func verbMultiplication(ctx context.Context, e *execution, task iterate.ConcreteTask) error {
	input1, err := handleValue(task, "input_1")
	if err != nil {
		return err
	}
	input2, err := handleValue(task, "input_2")
	if err != nil {
		return err
	}
	output, err := handleValue(task, "output")
	if err != nil {
		return err
	}

	left, err := e.runner.Arena.Get(input1)
	if err != nil {
		return fmt.Errorf("runner: multiplication: reading input_1: %w", err)
	}
	right, err := e.runner.Arena.Get(input2)
	if err != nil {
		return fmt.Errorf("runner: multiplication: reading input_2: %w", err)
	}

	product, err := lightcurve.Multiply(left, right)
	if err != nil {
		return fmt.Errorf("runner: multiplication: %w", err)
	}

	if err := e.runner.Arena.Put(output, product); err != nil {
		return fmt.Errorf("runner: multiplication: writing output: %w", err)
	}
	if output.Source == arena.SourceArchive {
		e.trackArchiveHandle(output)
	}
	return nil
}

// 4.6.6 binning — rebin source onto arange(min(t), max(t), cadence/86400)
// using the same area-preserving operator; force first and last output
// fluxes to 1 to suppress edge artifacts (done inside lightcurve.Rebin).
func verbBinning(ctx context.Context, e *execution, task iterate.ConcreteTask) error {
	source, err := handleValue(task, "source")
	if err != nil {
		return err
	}
	target, err := handleValue(task, "target")
	if err != nil {
		return err
	}
	cadenceSeconds, err := floatValue(task, "cadence")
	if err != nil {
		return err
	}

	raster, err := e.runner.Arena.Get(source)
	if err != nil {
		return fmt.Errorf("runner: binning: reading source: %w", err)
	}
	if raster.Len() == 0 {
		return fmt.Errorf("runner: binning: source raster is empty")
	}

	outputTimes := lightcurve.Arange(raster.Times[0], raster.Times[raster.Len()-1], cadenceSeconds/secondsPerDay)
	rebinned, err := lightcurve.Rebin(raster, outputTimes)
	if err != nil {
		return fmt.Errorf("runner: binning: %w", err)
	}

	if err := e.runner.Arena.Put(target, rebinned); err != nil {
		return fmt.Errorf("runner: binning: writing target: %w", err)
	}
	if target.Source == arena.SourceArchive {
		e.trackArchiveHandle(target)
	}
	return nil
}

// 4.6.7 verify — estimate the sampling interval and run both independent
// fixed-step checks, logging their error counts.
func verbVerify(ctx context.Context, e *execution, task iterate.ConcreteTask) error {
	source, err := handleValue(task, "source")
	if err != nil {
		return err
	}

	raster, err := e.runner.Arena.Get(source)
	if err != nil {
		return fmt.Errorf("runner: verify: reading source: %w", err)
	}

	dt, err := lightcurve.EstimateSamplingInterval(raster.Times)
	if err != nil {
		return fmt.Errorf("runner: verify: %w", err)
	}

	errs1 := lightcurve.CheckFixedStep(raster.Times, dt)
	errs2 := lightcurve.CheckFixedStepV2(raster.Times, dt)

	e.runner.Logger.WithFields(map[string]interface{}{
		"sampling_interval":    dt,
		"fixed_step_errors":    len(errs1),
		"fixed_step_errors_v2": len(errs2),
	}).Info("runner: verify complete")
	return nil
}

// 4.6.8 transit_search — dispatch to the named TDA, quality-control the
// returned period estimate against the source's own orbital_period
// metadata (pass within +/-10%), and submit a ResultRecord.
func verbTransitSearch(ctx context.Context, e *execution, task iterate.ConcreteTask) error {
	source, err := handleValue(task, "source")
	if err != nil {
		return err
	}
	lcDurationSeconds, err := floatValue(task, "lc_duration")
	if err != nil {
		return err
	}
	tdaName, err := stringValue(task, "tda_name")
	if err != nil {
		return err
	}
	settings, err := searchSettingsFromTask(task)
	if err != nil {
		return err
	}

	raster, err := e.runner.Arena.Get(source)
	if err != nil {
		return fmt.Errorf("runner: transit_search: reading source: %w", err)
	}

	algorithm, err := e.runner.TDARegistry.Lookup(tdaName)
	if err != nil {
		return fmt.Errorf("runner: transit_search: %w", err)
	}

	summary, extended, err := algorithm.Search(ctx, *raster, lcDurationSeconds/secondsPerDay, settings)
	if err != nil {
		return fmt.Errorf("runner: transit_search: %w", err)
	}

	outcome := "FAIL"
	if orbitalPeriod, ok := raster.Metadata["orbital_period"].(float64); ok {
		tolerance := orbitalPeriod * 0.1
		if math.Abs(summary.Period-orbitalPeriod) <= tolerance {
			outcome = "PASS"
		}
	}

	resultSummary := map[string]interface{}{
		"period":           summary.Period,
		"transit_duration": summary.TransitDuration,
		"depth":            summary.Depth,
		"signal_strength":  summary.SignalStrength,
		"outcome":          outcome,
	}
	if extended.Periodogram != nil {
		resultSummary["periodogram"] = extended.Periodogram
	}

	record := telemetry.ResultRecord{
		JobName:       e.jobName,
		TDACode:       tdaName,
		TargetName:    source.Filename,
		TaskName:      "transit_search",
		Parameters:    e.jobParameters,
		Timestamp:     nowSeconds(),
		ResultSummary: resultSummary,
	}
	if err := e.runner.ResultSink.Record(record); err != nil {
		return fmt.Errorf("runner: transit_search: submitting result: %w", err)
	}
	return nil
}

// 4.6.9 delete — remove a named artifact from whichever backend its
// handle names.
func verbDelete(ctx context.Context, e *execution, task iterate.ConcreteTask) error {
	source, err := handleValue(task, "source")
	if err != nil {
		return err
	}
	if err := e.runner.Arena.Remove(source); err != nil {
		return fmt.Errorf("runner: delete: %w", err)
	}
	return nil
}

// --- field parsing -------------------------------------------------
//
// Iteration-expanded descriptors substitute placeholders textually before
// re-parsing as JSON, which requires every placeholder to sit inside a
// quoted string literal. A field that is conceptually numeric may
// therefore decode as a JSON string rather than a number; every numeric
// accessor below accepts both.

func handleValue(m map[string]interface{}, field string) (arena.Handle, error) {
	obj, err := objectValue(m, field)
	if err != nil {
		return arena.Handle{}, err
	}
	source, _ := obj["source"].(string)
	directory, _ := obj["directory"].(string)
	filename, _ := obj["filename"].(string)
	return arena.Handle{Source: arena.Source(source), Directory: directory, Filename: filename}, nil
}

func objectValue(m map[string]interface{}, field string) (map[string]interface{}, error) {
	raw, ok := m[field]
	if !ok {
		return nil, fmt.Errorf("runner: task missing %q", field)
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("runner: %q is not an object", field)
	}
	return obj, nil
}

func stringValue(m map[string]interface{}, field string) (string, error) {
	raw, ok := m[field]
	if !ok {
		return "", fmt.Errorf("runner: task missing %q", field)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("runner: %q is not a string", field)
	}
	return s, nil
}

func floatValue(m map[string]interface{}, field string) (float64, error) {
	raw, ok := m[field]
	if !ok {
		return 0, fmt.Errorf("runner: task missing %q", field)
	}
	return coerceFloat(raw, field)
}

func optionalFloat(m map[string]interface{}, field string) (float64, error) {
	raw, ok := m[field]
	if !ok {
		return 0, nil
	}
	return coerceFloat(raw, field)
}

func coerceFloat(raw interface{}, field string) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("runner: field %q: parsing %q as a number: %w", field, v, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("runner: field %q has unsupported type %T", field, raw)
	}
}

func optionalBool(m map[string]interface{}, field string) (*bool, error) {
	raw, ok := m[field]
	if !ok {
		return nil, nil
	}
	switch v := raw.(type) {
	case bool:
		b := v
		return &b, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("runner: field %q: parsing %q as a bool: %w", field, v, err)
		}
		return &b, nil
	default:
		return nil, fmt.Errorf("runner: field %q has unsupported type %T", field, raw)
	}
}

// specsFromTask parses the nested "specs" object shared by
// psls_synthesise and batman_synthesise into synth.Specs.
func specsFromTask(task iterate.ConcreteTask) (synth.Specs, error) {
	specs, err := objectValue(task, "specs")
	if err != nil {
		return synth.Specs{}, err
	}

	duration, err := floatValue(specs, "duration")
	if err != nil {
		return synth.Specs{}, err
	}
	planetRadius, err := floatValue(specs, "planet_radius")
	if err != nil {
		return synth.Specs{}, err
	}
	orbitalPeriod, err := floatValue(specs, "orbital_period")
	if err != nil {
		return synth.Specs{}, err
	}
	semiMajorAxis, err := floatValue(specs, "semi_major_axis")
	if err != nil {
		return synth.Specs{}, err
	}
	orbitalAngle, err := floatValue(specs, "orbital_angle")
	if err != nil {
		return synth.Specs{}, err
	}
	impactParameter, err := optionalFloat(specs, "impact_parameter")
	if err != nil {
		return synth.Specs{}, err
	}
	eccentricity, err := optionalFloat(specs, "eccentricity")
	if err != nil {
		return synth.Specs{}, err
	}
	noise, err := optionalFloat(specs, "noise")
	if err != nil {
		return synth.Specs{}, err
	}
	samplingCadence, err := optionalFloat(specs, "sampling_cadence")
	if err != nil {
		return synth.Specs{}, err
	}
	enableTransits, err := optionalBool(specs, "enable_transits")
	if err != nil {
		return synth.Specs{}, err
	}

	return synth.Specs{
		Duration:        duration,
		PlanetRadius:    planetRadius,
		OrbitalPeriod:   orbitalPeriod,
		SemiMajorAxis:   semiMajorAxis,
		OrbitalAngle:    orbitalAngle,
		ImpactParameter: impactParameter,
		Eccentricity:    eccentricity,
		Noise:           noise,
		SamplingCadence: samplingCadence,
		EnableTransits:  enableTransits,
	}, nil
}

// searchSettingsFromTask parses the optional "search_settings" object
// carried by transit_search into tda.Settings.
func searchSettingsFromTask(task iterate.ConcreteTask) (tda.Settings, error) {
	raw, ok := task["search_settings"]
	if !ok {
		return tda.Settings{}, nil
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return tda.Settings{}, fmt.Errorf("runner: %q is not an object", "search_settings")
	}

	settings := tda.Settings{}
	if v, ok := obj["period_min"]; ok {
		f, err := coerceFloat(v, "period_min")
		if err != nil {
			return tda.Settings{}, err
		}
		settings.PeriodMin = &f
	}
	if v, ok := obj["period_max"]; ok {
		f, err := coerceFloat(v, "period_max")
		if err != nil {
			return tda.Settings{}, err
		}
		settings.PeriodMax = &f
	}
	return settings, nil
}
