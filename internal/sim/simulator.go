// Simulator orchestrating the ingest, fusion, and policy pipeline per tick.
package sim

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"drivepilot-sim/internal/audit"
	"drivepilot-sim/internal/config"
	"drivepilot-sim/internal/fusion"
	"drivepilot-sim/internal/logging"
	"drivepilot-sim/internal/policy"
	"drivepilot-sim/internal/scenario"
	"drivepilot-sim/internal/sensor"
	"drivepilot-sim/internal/world"
)

// TrackWriter is an interface to support different track outputs.
type TrackWriter interface {
	WriteTrack(TrackRow) error
}

// DecisionWriter handles policy decision rows.
type DecisionWriter interface {
	WriteDecision(DecisionRow) error
}

// AlertWriter handles transition alert rows.
type AlertWriter interface {
	WriteAlert(AlertRow) error
}

// Optional: writers can support batch mode.
type batchTrackWriter interface {
	WriteTracks([]TrackRow) error
}

type batchDecisionWriter interface {
	WriteDecisions([]DecisionRow) error
}

// recentDecisionCap bounds the ring of decisions kept for the admin UI.
const recentDecisionCap = 50

// Health aggregates simulator state for the admin UI.
type Health struct {
	Tick             int            `json:"tick"`
	Tracks           int            `json:"tracks"`
	ByClass          map[string]int `json:"by_class"`
	ActiveAction     string         `json:"active_action"`
	DetectionEnabled bool           `json:"detection_enabled"`
	LowLight         bool           `json:"low_light"`
	AuditEntries     int            `json:"audit_entries"`
}

// Simulator advances the world and runs ingest, fusion, and policy in
// dependency order once per tick. The tick is the atomic unit of work;
// cancellation takes effect between ticks only.
type Simulator struct {
	runID        string
	cfg          *config.SimulationConfig
	world        *world.Engine
	suite        *sensor.Suite
	est          *fusion.Estimator
	pol          *policy.Engine
	auditLog     *audit.Log
	trackWriter  TrackWriter
	decisionW    DecisionWriter
	alertW       AlertWriter
	control      ControlSink
	baseCond     *StaticConditions
	envProvider  ConditionProvider
	lastCond     policy.Conditions
	scen         *scenario.Scenario
	phase        string
	phaseTicks   int
	tickInterval time.Duration
	tickN        int

	detectionEnabled bool
	recent           []DecisionRow
	aggregate        DecisionRow

	mu  sync.Mutex
	now func() time.Time
}

// NewSimulator wires the pipeline from config. alertW and control may be
// nil; missing sinks are skipped.
func NewSimulator(runID string, cfg *config.SimulationConfig, auditLog *audit.Log,
	tw TrackWriter, dw DecisionWriter, aw AlertWriter, control ControlSink,
	tickInterval time.Duration) *Simulator {

	if runID == "" {
		runID = "run-" + uuid.New().String()
	}
	if auditLog == nil {
		auditLog = audit.New(nil)
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	base := NewStaticConditions(policy.Conditions{LowLight: cfg.Environment.LowLight})
	timeout := time.Duration(cfg.Environment.ProviderTimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 100 * time.Millisecond
	}

	s := &Simulator{
		runID:        runID,
		cfg:          cfg,
		world:        world.NewEngine(rng),
		suite:        sensor.NewSuite(suiteConfig(cfg.Sensors), rng),
		est:          fusion.NewEstimator(estimatorConfig(cfg.Fusion)),
		pol:          policy.NewEngine(policyConfig(cfg.Policy)),
		auditLog:     auditLog,
		trackWriter:  tw,
		decisionW:    dw,
		alertW:       aw,
		control:      control,
		baseCond:     base,
		envProvider:  newBoundedConditions(base, timeout),
		tickInterval: tickInterval,

		detectionEnabled: true,
		now:              time.Now,
	}
	return s
}

// SetConditionProvider replaces the environmental condition source, keeping
// the bounded-timeout wrapper.
func (s *Simulator) SetConditionProvider(p ConditionProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	timeout := time.Duration(s.cfg.Environment.ProviderTimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 100 * time.Millisecond
	}
	s.envProvider = newBoundedConditions(p, timeout)
}

// SetScenario installs a scripted scenario; its first phase starts on the
// next tick.
func (s *Simulator) SetScenario(sc *scenario.Scenario) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scen = sc
	s.phase = ""
	s.phaseTicks = 0
}

// Run starts the simulation loop and stops when the context is done.
func (s *Simulator) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	log.Info("starting simulator", "run_id", s.runID, "tick_interval", s.tickInterval)
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			log.Info("stopping simulator", "run_id", s.runID, "ticks", s.tickN)
			return
		}
	}
}

// tick runs one full pipeline pass: scenario, world, ingest, fusion,
// policy, writes, delivery.
func (s *Simulator) tick(ctx context.Context) {
	log := logging.FromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	s.tickN++

	s.advanceScenario(now, nil)
	s.world.Step(s.tickInterval, s.cfg.Vehicle.SpeedMPS)

	cond, err := s.envProvider.Conditions(ctx)
	if err != nil {
		log.Warn("environment provider degraded", "err", err)
	}
	s.lastCond = cond

	var batch []sensor.RawSample
	if s.detectionEnabled {
		batch = s.suite.Sample(s.world.Obstacles, cond.LowLight)
	}
	if len(batch) == 0 && len(s.world.Obstacles) > 0 && s.detectionEnabled {
		log.Warn("sensor starvation: no measurements this tick", "obstacles", len(s.world.Obstacles))
		s.auditLog.Append(audit.KindStarvation, "", "no measurements from any sensor", now)
	}

	meas, dropped := sensor.NormalizeBatch(batch)
	for _, derr := range dropped {
		log.Warn("sample dropped", "err", derr)
		s.auditLog.Append(audit.KindInvalidSample, "", derr.Error(), now)
	}

	rep := s.est.Step(meas, now)
	if cond.Degraded {
		s.est.MarkDegraded()
	}
	for _, div := range rep.Diverged {
		log.Error("track force-removed", "err", div)
		s.auditLog.Append(audit.KindDivergence, div.TrackID, div.Error(), now)
	}
	for _, amb := range rep.Ambiguities {
		log.Warn("association ambiguity", "kind", amb.Kind, "track_a", amb.TrackA, "track_b", amb.TrackB)
		s.auditLog.Append(audit.KindAmbiguity, amb.TrackA, "gating tie with "+amb.TrackB, now)
	}

	tracks := s.est.Tracks()
	res := s.pol.Evaluate(tracks, policy.VehicleState{SpeedMPS: s.cfg.Vehicle.SpeedMPS}, cond, now)

	for _, d := range res.Decisions {
		s.advanceScenario(now, &scenario.Event{Type: "decision:" + string(d.Action), Value: 1})
	}

	s.writeTick(ctx, tracks, res, now)
}

// writeTick flushes the tick's rows to the sinks and delivers the
// aggregate decision.
func (s *Simulator) writeTick(ctx context.Context, tracks []*fusion.Track, res policy.Result, now time.Time) {
	log := logging.FromContext(ctx)

	rows := make([]TrackRow, 0, len(tracks))
	for _, t := range tracks {
		rows = append(rows, NewTrackRow(s.runID, s.tickN, t, now))
	}
	if s.trackWriter != nil && len(rows) > 0 {
		if bw, ok := s.trackWriter.(batchTrackWriter); ok {
			if err := bw.WriteTracks(rows); err != nil {
				log.Error("track batch write failed", "err", err)
			}
		} else {
			for _, r := range rows {
				if err := s.trackWriter.WriteTrack(r); err != nil {
					log.Error("track write failed", "track_id", r.TrackID, "err", err)
				}
			}
		}
	}

	decisions := make([]DecisionRow, 0, len(res.Decisions)+1)
	for _, d := range res.Decisions {
		decisions = append(decisions, NewDecisionRow(s.runID, d, false))
	}
	agg := NewDecisionRow(s.runID, res.Aggregate, true)
	decisions = append(decisions, agg)
	s.aggregate = agg
	s.remember(decisions)

	if s.decisionW != nil {
		if bw, ok := s.decisionW.(batchDecisionWriter); ok {
			if err := bw.WriteDecisions(decisions); err != nil {
				log.Error("decision batch write failed", "err", err)
			}
		} else {
			for _, d := range decisions {
				if err := s.decisionW.WriteDecision(d); err != nil {
					log.Error("decision write failed", "track_id", d.TrackID, "err", err)
				}
			}
		}
	}

	for _, a := range res.Alerts {
		s.auditLog.Append(audit.KindDecisionTransition, a.TrackID,
			string(a.From)+" -> "+string(a.To)+": "+a.Message, now)
		if s.alertW != nil {
			if err := s.alertW.WriteAlert(NewAlertRow(s.runID, a)); err != nil {
				log.Error("alert write failed", "track_id", a.TrackID, "err", err)
			}
		}
	}

	s.deliver(ctx, agg, now)
}

// deliver hands the aggregate decision to vehicle control, retrying once
// before escalating to the audit log as undelivered.
func (s *Simulator) deliver(ctx context.Context, d DecisionRow, now time.Time) {
	if s.control == nil {
		return
	}
	log := logging.FromContext(ctx)
	err := s.control.Apply(ctx, d)
	if err == nil {
		return
	}
	log.Warn("decision delivery failed, retrying", "action", d.Action, "err", err)
	if err = s.control.Apply(ctx, d); err == nil {
		return
	}
	log.Error("decision undelivered", "action", d.Action, "err", err)
	s.auditLog.Append(audit.KindUndelivered, d.TrackID, string(d.Action)+": "+err.Error(), now)
}

// advanceScenario enters the first phase, counts phase ticks, and follows
// triggers. ev is nil for the per-tick advance.
func (s *Simulator) advanceScenario(now time.Time, ev *scenario.Event) {
	if s.scen == nil {
		return
	}
	if s.phase == "" {
		s.enterPhase(s.scen.Phases[0], now)
		return
	}
	if ev != nil {
		if next, ok := s.scen.NextPhase(s.phase, *ev); ok {
			if p, found := s.scen.Phase(next); found {
				s.enterPhase(p, now)
			}
		}
		return
	}
	s.phaseTicks++
	p, ok := s.scen.Phase(s.phase)
	if !ok {
		return
	}
	if p.DurationTicks > 0 && s.phaseTicks >= p.DurationTicks {
		if next, ok := s.scen.NextPhase(s.phase, scenario.Event{Type: "tick", Value: s.phaseTicks}); ok {
			if np, found := s.scen.Phase(next); found {
				s.enterPhase(np, now)
			}
		}
	}
}

// enterPhase applies a phase's spawns and environment patch.
func (s *Simulator) enterPhase(p scenario.Phase, now time.Time) {
	s.phase = p.Name
	s.phaseTicks = 0
	if p.LowLight != nil {
		s.baseCond.SetLowLight(*p.LowLight)
	}
	for _, sp := range p.Spawns {
		s.world.Spawn(world.ObstacleType(sp.Type), sp.RangeM, sp.BearingDeg, sp.SpeedMPS, sp.HeadingDeg, sp.Size)
	}
}

func (s *Simulator) remember(rows []DecisionRow) {
	s.recent = append(s.recent, rows...)
	if n := len(s.recent); n > recentDecisionCap {
		s.recent = append(s.recent[:0:0], s.recent[n-recentDecisionCap:]...)
	}
}

// ToggleDetection flips obstacle detection on or off and returns the new
// state.
func (s *Simulator) ToggleDetection() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detectionEnabled = !s.detectionEnabled
	return s.detectionEnabled
}

// DetectionEnabled reports whether detection is active.
func (s *Simulator) DetectionEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detectionEnabled
}

// SpawnObstacle injects an obstacle at runtime (admin UI).
func (s *Simulator) SpawnObstacle(typ string, rangeM, bearingDeg, speedMPS, headingDeg float64, size string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.world.Spawn(world.ObstacleType(typ), rangeM, bearingDeg, speedMPS, headingDeg, size)
}

// Health returns aggregated simulator state.
func (s *Simulator) Health() Health {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := Health{
		Tick:             s.tickN,
		ByClass:          make(map[string]int),
		ActiveAction:     s.aggregate.Action,
		DetectionEnabled: s.detectionEnabled,
		LowLight:         s.lastCond.LowLight,
		AuditEntries:     s.auditLog.Len(),
	}
	if h.ActiveAction == "" {
		h.ActiveAction = string(policy.ActionNoAction)
	}
	tracks := s.est.Tracks()
	h.Tracks = len(tracks)
	for _, t := range tracks {
		class, _ := t.Best()
		h.ByClass[string(class)]++
	}
	return h
}

// TracksSnapshot returns the latest state for all tracks.
func (s *Simulator) TracksSnapshot() []TrackRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	var rows []TrackRow
	for _, t := range s.est.Tracks() {
		rows = append(rows, NewTrackRow(s.runID, s.tickN, t, now))
	}
	return rows
}

// RecentDecisions returns the most recent decision rows, newest last.
func (s *Simulator) RecentDecisions() []DecisionRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DecisionRow, len(s.recent))
	copy(out, s.recent)
	return out
}

// RunID returns the simulator's run identifier.
func (s *Simulator) RunID() string { return s.runID }

// GetConfig returns the simulation configuration.
func (s *Simulator) GetConfig() *config.SimulationConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func suiteConfig(c config.Sensors) sensor.SuiteConfig {
	def := sensor.DefaultSuiteConfig()
	out := sensor.SuiteConfig{
		Radar:      characteristic(c.Radar, def.Radar),
		Infrared:   characteristic(c.Infrared, def.Infrared),
		Ultrasonic: characteristic(c.Ultrasonic, def.Ultrasonic),
	}
	return out
}

func characteristic(spec config.SensorSpec, def sensor.Characteristic) sensor.Characteristic {
	out := def
	if spec.MaxRangeM > 0 {
		out.MaxRangeM = spec.MaxRangeM
	}
	if spec.Accuracy > 0 {
		out.Accuracy = spec.Accuracy
	}
	if spec.RangeNoise > 0 {
		out.RangeNoise = spec.RangeNoise
	}
	if spec.BearingNoiseDeg > 0 {
		out.BearingNoise = spec.BearingNoiseDeg
	}
	if spec.DropoutRate > 0 {
		out.DropoutRate = spec.DropoutRate
	}
	return out
}

func estimatorConfig(c config.Fusion) fusion.Config {
	return fusion.Config{
		GatingDistanceM:     c.GatingDistanceM,
		StalenessTicks:      c.StalenessTicks,
		ProcessNoise:        c.ProcessNoise,
		InitialVariance:     c.InitialVariance,
		DivergenceVariance:  c.DivergenceVariance,
		MeasurementVariance: c.MeasurementVariance,
	}
}

func policyConfig(c config.Policy) policy.Config {
	return policy.Config{
		PedestrianThreshold: c.PedestrianThreshold,
		AnimalThreshold:     c.AnimalThreshold,
		StaticConfidence:    c.StaticConfidence,
		HysteresisMargin:    c.HysteresisMargin,
		TTCSafetyMarginS:    c.TTCSafetyMarginS,
		LateralClearanceM:   c.LateralClearanceM,
	}
}
