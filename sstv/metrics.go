package sstv

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shirou/gopsutil/v3/cpu"
)

/*
 * Decode Metrics
 *
 * One struct, one constructor, vecs built with promauto — the same
 * shape as this pack's own metrics type. Pure observation: nothing here
 * feeds back into the decode logic in decoder.go.
 */

// Metrics exposes Prometheus counters and a host-info gauge for decode
// activity; no decode-latency histogram is recorded. Construct one per process with NewMetrics and
// attach it to decoders with Decoder.SetMetrics.
type Metrics struct {
	imagesCompleted *prometheus.CounterVec // labels: mode, outcome (complete|aborted)
	modesConfirmed  *prometheus.CounterVec // labels: mode
	syncTransitions *prometheus.CounterVec // labels: from, to
	hostCPUInfo     *prometheus.GaugeVec   // labels: model_name; value 1, set once at startup
}

// NewMetrics builds and registers the decoder's metric vectors against
// reg. Pass prometheus.DefaultRegisterer for the global registry, or a
// fresh prometheus.NewRegistry() in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		imagesCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sstv",
			Name:      "images_completed_total",
			Help:      "SSTV images terminated by the decoder, by mode and outcome.",
		}, []string{"mode", "outcome"}),

		modesConfirmed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sstv",
			Name:      "modes_confirmed_total",
			Help:      "SSTV modes confirmed by the CONFIRM_SYNC state, by mode.",
		}, []string{"mode"}),

		syncTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sstv",
			Name:      "decoder_state_transitions_total",
			Help:      "Decoder state machine transitions, by from/to state pair.",
		}, []string{"from", "to"}),

		hostCPUInfo: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sstv",
			Name:      "host_cpu_info",
			Help:      "Constant 1, labelled with the host CPU model, for inventory dashboards.",
		}, []string{"model_name"}),
	}

	m.reportHostCPUInfo()
	return m
}

// ModeConfirmed records a CONFIRM_SYNC -> WAIT_START transition for mode.
func (m *Metrics) ModeConfirmed(mode string) {
	m.modesConfirmed.WithLabelValues(mode).Inc()
}

// ImageCompleted records an image termination, tagging it "aborted" if
// the decoder timed out or the stream ended mid-image, "complete"
// otherwise.
func (m *Metrics) ImageCompleted(mode string, aborted bool) {
	outcome := "complete"
	if aborted {
		outcome = "aborted"
	}
	m.imagesCompleted.WithLabelValues(mode, outcome).Inc()
}

// StateTransition records a decoder state-machine transition.
func (m *Metrics) StateTransition(from, to State) {
	m.syncTransitions.WithLabelValues(from.String(), to.String()).Inc()
}

// reportHostCPUInfo sets the host-info gauge once at construction,
// mirroring this pack's own use of gopsutil/v3/cpu for host CPU
// enumeration in its instance-reporting code.
func (m *Metrics) reportHostCPUInfo() {
	info, err := cpu.Info()
	if err != nil || len(info) == 0 {
		log.Printf("[SSTV Metrics] could not read host CPU info: %v", err)
		return
	}
	m.hostCPUInfo.WithLabelValues(info[0].ModelName).Set(1)
}
