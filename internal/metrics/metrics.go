package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voicewire_sessions_active",
		Help: "Currently active conversation sessions",
	})

	FramesText = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicewire_frames_text_total",
		Help: "Inbound text frames received over all transports",
	})

	FramesBinary = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicewire_frames_binary_total",
		Help: "Inbound binary audio frames received over all transports",
	})

	FramesDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicewire_frames_discarded_total",
		Help: "Text frames dropped as malformed or unrecognized",
	})

	InterruptsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicewire_interrupts_sent_total",
		Help: "Barge-in signals sent after cool-down filtering",
	})

	ToolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicewire_tool_calls_total",
		Help: "Tool invocations observed, by terminal outcome",
	}, []string{"outcome"})

	AudioDecodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicewire_audio_decode_failures_total",
		Help: "Audio chunks dropped because decoding failed",
	})

	CallsInitiated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicewire_calls_initiated_total",
		Help: "Outbound call setup attempts",
	})
)
