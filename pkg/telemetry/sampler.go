package telemetry

import (
	"strconv"

	"go.opentelemetry.io/otel/sdk/trace"
)

// createSampler builds the trace sampler from the OTEL_TRACES_SAMPLER
// setting. Bench invocations produce one trace each, so the unset default
// is AlwaysSample rather than a ratio.
func createSampler(cfg *Config) trace.Sampler {
	switch cfg.Sampler {
	case "always_on":
		return trace.AlwaysSample()

	case "always_off":
		return trace.NeverSample()

	case "traceidratio":
		return trace.TraceIDRatioBased(parseSampleRatio(cfg.SamplerArg))

	case "parentbased_always_on":
		return trace.ParentBased(trace.AlwaysSample())

	case "parentbased_always_off":
		return trace.ParentBased(trace.NeverSample())

	case "parentbased_traceidratio":
		return trace.ParentBased(trace.TraceIDRatioBased(parseSampleRatio(cfg.SamplerArg)))

	default:
		return trace.AlwaysSample()
	}
}

// parseSampleRatio parses the sampler argument, clamping to [0, 1].
// Unparseable or empty input falls back to full sampling.
func parseSampleRatio(s string) float64 {
	if s == "" {
		return 1.0
	}

	ratio, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 1.0
	}

	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1.0
	}
	return ratio
}
