package metrics

// Wrapper exposes the narrow method set consumed by the ml engine and the
// prediction service, keeping those packages free of a direct Prometheus
// dependency (and trivially mockable in tests).
type Wrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *Wrapper {
	return &Wrapper{m: m}
}

func (w *Wrapper) PredictionsInc()             { w.m.PredictionsTotal.Inc() }
func (w *Wrapper) FailuresInc()                { w.m.PredictionFailures.Inc() }
func (w *Wrapper) DegradedInc()                { w.m.DegradedTotal.Inc() }
func (w *Wrapper) FallbackInc()                { w.m.FallbackUse.Inc() }
func (w *Wrapper) LoadFailureInc()             { w.m.ModelLoadFailures.Inc() }
func (w *Wrapper) ReloadInc()                  { w.m.RegistryReloads.Inc() }
func (w *Wrapper) LatencyObserve(v float64)    { w.m.PredictionLatency.Observe(v) }
func (w *Wrapper) ConfidenceObserve(v float64) { w.m.ConfidenceScores.Observe(v) }
func (w *Wrapper) ModelsLoadedSet(v float64)   { w.m.ModelsLoaded.Set(v) }
func (w *Wrapper) BatchSizeObserve(v float64)  { w.m.BatchSize.Observe(v) }
