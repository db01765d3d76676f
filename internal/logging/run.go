package logging

import (
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RunLogger collects the identity, configuration, and feature flags of a
// classification run, then emits them as a single structured event so a log
// excerpt shows exactly how the run was configured.
type RunLogger struct {
	runID     string
	version   string
	startedAt time.Time

	resources map[string]string
	features  map[string]bool
	config    map[string]string
}

// NewRunLogger creates a RunLogger for the given run id.
func NewRunLogger(runID string) *RunLogger {
	return &RunLogger{
		runID:     runID,
		startedAt: time.Now(),
		resources: make(map[string]string),
		features:  make(map[string]bool),
		config:    make(map[string]string),
	}
}

// Version sets the build version baked into the binary.
func (r *RunLogger) Version(v string) *RunLogger {
	r.version = v
	return r
}

// Resource registers an external resource (S3 bucket, SSM parameter path).
// Only names are logged, never secret values.
func (r *RunLogger) Resource(label, name string) *RunLogger {
	if name != "" {
		r.resources[label] = name
	}
	return r
}

// Feature registers a boolean feature flag (e.g. "filter", "s3Publish").
func (r *RunLogger) Feature(name string, enabled bool) *RunLogger {
	r.features[name] = enabled
	return r
}

// Config registers a non-sensitive configuration key-value pair.
func (r *RunLogger) Config(key, value string) *RunLogger {
	r.config[key] = value
	return r
}

// Log emits a single structured INFO log event with all collected information.
func (r *RunLogger) Log() {
	r.event(log.Info()).Msg("Classification run started")
}

func (r *RunLogger) event(evt *zerolog.Event) *zerolog.Event {
	runDict := zerolog.Dict().
		Str("id", r.runID).
		Time("startedAt", r.startedAt).
		Str("goVersion", runtime.Version()).
		Str("arch", runtime.GOARCH)
	if r.version != "" {
		runDict = runDict.Str("version", r.version)
	}
	evt = evt.Dict("run", runDict)

	if len(r.resources) > 0 {
		evt = evt.Dict("resources", dictFromMap(r.resources))
	}

	if len(r.features) > 0 {
		d := zerolog.Dict()
		for k, v := range r.features {
			d = d.Bool(k, v)
		}
		evt = evt.Dict("features", d)
	}

	if len(r.config) > 0 {
		evt = evt.Dict("config", dictFromMap(r.config))
	}
	return evt
}

// dictFromMap converts a map[string]string into a zerolog.Event (Dict).
func dictFromMap(m map[string]string) *zerolog.Event {
	d := zerolog.Dict()
	for k, v := range m {
		d = d.Str(k, v)
	}
	return d
}
