package takeoff

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"bim-takeoff/internal/catalog"
	"bim-takeoff/internal/resolve"
	"bim-takeoff/internal/source"
	takeofferrors "bim-takeoff/pkg/errors"
	"bim-takeoff/pkg/units"
)

// runState tracks the single-pass pipeline phases. States advance forward
// only; Failed is terminal and reachable from any non-terminal state.
type runState int

const (
	stateIdle runState = iota
	stateReading
	stateAggregating
	stateFinalizing
	stateExporting
	stateDone
	stateFailed
)

func (s runState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateReading:
		return "reading"
	case stateAggregating:
		return "aggregating"
	case stateFinalizing:
		return "finalizing"
	case stateExporting:
		return "exporting"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Report accumulates non-fatal diagnostics for one run. Warnings never
// abort the run; they ride alongside the output so nothing is swallowed.
type Report struct {
	ElementsSeen    int                           `json:"elements_seen"`
	ElementsMatched int                           `json:"elements_matched"`
	Associations    int                           `json:"associations"`
	Warnings        []*takeofferrors.TakeoffError `json:"warnings,omitempty"`
}

// Result is the output of one takeoff run.
type Result struct {
	Summaries []Summary
	Report    Report

	cfg        Config
	areaUnit   string
	volumeUnit string
}

// Engine drives one takeoff run: Idle → Reading → Aggregating → Finalizing
// → Exporting → Done. An Engine instance must not be shared between runs.
type Engine struct {
	log     *slog.Logger
	catalog catalog.Store
	state   runState

	// densities caches catalog lookups per material name for the run.
	densities map[string]densityEntry

	warned map[string]bool
}

type densityEntry struct {
	density decimal.Decimal
	known   bool
}

// NewEngine creates an engine backed by the given density catalog.
func NewEngine(cat catalog.Store) *Engine {
	return &Engine{
		log:       slog.Default(),
		catalog:   cat,
		densities: make(map[string]densityEntry),
		warned:    make(map[string]bool),
	}
}

// WithLogger overrides the engine's logger.
func (e *Engine) WithLogger(log *slog.Logger) *Engine {
	e.log = log
	return e
}

func (e *Engine) transition(to runState) {
	e.log.Debug("pipeline state change", "from", e.state.String(), "to", to.String())
	e.state = to
}

func (e *Engine) fail(err error) error {
	e.transition(stateFailed)
	return err
}

// Run consumes the element stream once and returns the finalized group
// summaries plus the run report. Configuration errors surface before any
// element is read; per-element resolution problems become warnings.
func (e *Engine) Run(ctx context.Context, elements *source.Iterator, cfg Config) (*Result, error) {
	if e.state != stateIdle {
		return nil, fmt.Errorf("engine already used (state: %s); one engine per run", e.state)
	}
	if err := cfg.Validate(); err != nil {
		return nil, e.fail(err)
	}

	result := &Result{cfg: cfg, areaUnit: units.SquareMeters, volumeUnit: units.CubicMeters}
	selected := cfg.categorySet()
	agg := NewAggregator()

	e.transition(stateReading)
	e.transition(stateAggregating)

	for el := elements.Next(); el != nil; el = elements.Next() {
		if err := ctx.Err(); err != nil {
			return nil, e.fail(fmt.Errorf("run canceled: %w", err))
		}

		result.Report.ElementsSeen++
		if selected != nil && !selected[el.Category] {
			continue
		}
		if len(el.Materials) == 0 {
			continue
		}
		result.Report.ElementsMatched++

		extras := e.resolveExtras(el, cfg.ExtraParams, result)

		for i, mq := range el.Materials {
			if mq.Area.IsNegative() || mq.Volume.IsNegative() {
				e.warnf(result, "negative:"+el.ID+":"+mq.Material,
					takeofferrors.NewQuantityWarning(mq.Material, el.ID, "negative measure, association skipped"))
				continue
			}
			e.checkUnits(el, mq, result)

			contribution := e.buildContribution(ctx, el, mq, i, extras, cfg, result)
			if err := agg.Accumulate(contribution); err != nil {
				return nil, e.fail(err)
			}
			result.Report.Associations++
		}
	}

	e.transition(stateFinalizing)
	summaries, err := agg.Finalize()
	if err != nil {
		return nil, e.fail(err)
	}
	result.Summaries = summaries

	e.log.Info("takeoff aggregation complete",
		"elements_seen", result.Report.ElementsSeen,
		"elements_matched", result.Report.ElementsMatched,
		"associations", result.Report.Associations,
		"groups", len(result.Summaries),
		"warnings", len(result.Report.Warnings),
	)
	return result, nil
}

// resolveExtras resolves the configured extra parameters against one
// element. A missing field maps to the empty sentinel and records one
// warning per element and field.
func (e *Engine) resolveExtras(el *source.Element, params []resolve.Descriptor, result *Result) []string {
	if len(params) == 0 {
		return nil
	}
	values := make([]string, len(params))
	for i, d := range params {
		v, ok := resolve.Resolve(el, d)
		if !ok {
			e.warnf(result, "missing:"+el.ID+":"+d.Name,
				takeofferrors.NewFieldMissingWarning(d.Name, el.ID))
			v = ""
		}
		values[i] = v
	}
	return values
}

func (e *Engine) checkUnits(el *source.Element, mq source.MaterialQuantity, result *Result) {
	if _, err := units.CanonicalArea(mq.AreaUnits); err != nil {
		e.warnf(result, "unit:"+mq.AreaUnits, &takeofferrors.TakeoffError{
			Code:        takeofferrors.ErrCodeUnitMismatch,
			Message:     err.Error(),
			Severity:    takeofferrors.SeverityWarning,
			ElementID:   el.ID,
			Recoverable: true,
		})
	}
	if _, err := units.CanonicalVolume(mq.VolumeUnits); err != nil {
		e.warnf(result, "unit:"+mq.VolumeUnits, &takeofferrors.TakeoffError{
			Code:        takeofferrors.ErrCodeUnitMismatch,
			Message:     err.Error(),
			Severity:    takeofferrors.SeverityWarning,
			ElementID:   el.ID,
			Recoverable: true,
		})
	}
}

// buildContribution assembles the key, informational columns, and measures
// for one material association.
func (e *Engine) buildContribution(ctx context.Context, el *source.Element, mq source.MaterialQuantity, assocIndex int, extras []string, cfg Config, result *Result) Contribution {
	fixedValues := map[GroupField]string{
		GroupLevel:    el.Level,
		GroupCategory: el.Category,
		GroupType:     el.Type,
		GroupMaterial: mq.Material,
	}

	key := buildKey(cfg, fixedValues, extras, el.ID, assocIndex)

	inKey := map[GroupField]bool{}
	for _, f := range cfg.keyFields() {
		inKey[f] = true
	}

	info := map[string]string{colFamily: el.Family}
	for _, f := range groupFieldOrder {
		if !inKey[f] {
			info[fixedColumnName(f)] = fixedValues[f]
		}
	}

	c := Contribution{
		Key:        key,
		Info:       info,
		Area:       mq.Area,
		Volume:     mq.Volume,
		Structural: mq.Structural,
	}
	c.Density, c.DensityKnown = e.lookupDensity(ctx, mq.Material, result)
	return c
}

func (e *Engine) lookupDensity(ctx context.Context, material string, result *Result) (decimal.Decimal, bool) {
	if material == "" {
		return decimal.Zero, false
	}
	if entry, ok := e.densities[material]; ok {
		return entry.density, entry.known
	}

	d, known, err := e.catalog.Density(ctx, material)
	if err != nil {
		e.log.Warn("density catalog lookup failed", "material", material, "error", err)
		known = false
	}
	if !known {
		e.warnf(result, "density:"+material, takeofferrors.NewDensityWarning(material))
	}
	e.densities[material] = densityEntry{density: d, known: known}
	return d, known
}

// warnf records a warning once per dedup key.
func (e *Engine) warnf(result *Result, dedup string, w *takeofferrors.TakeoffError) {
	if e.warned[dedup] {
		return
	}
	e.warned[dedup] = true
	result.Report.Warnings = append(result.Report.Warnings, w)
	e.log.Warn(w.Message, "code", w.Code, "element", w.ElementID)
}
