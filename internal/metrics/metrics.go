package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Decoder labels.
const (
	DecoderDB      = "db"
	DecoderSegLink = "seglink"
)

// Filter reasons for dropped candidates.
const (
	ReasonSmall  = "small"
	ReasonScore  = "score"
	ReasonUnclip = "unclip"
	ReasonArea   = "area"
	ReasonNMS    = "nms"
)

var (
	decodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "textdet_decode_duration_seconds",
			Help:    "Time spent decoding one image's network output",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"decoder"},
	)

	detectionsPerImage = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "textdet_detections",
			Help:    "Number of text regions emitted per image",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"decoder"},
	)

	candidatesFiltered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "textdet_candidates_filtered_total",
			Help: "Candidates dropped by a size, score or overlap gate",
		},
		[]string{"decoder", "reason"},
	)

	decodeInconsistent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "textdet_decode_inconsistent_total",
			Help: "Images whose group bookkeeping was inconsistent and decoded to nothing",
		},
	)

	inferenceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "textdet_inference_duration_seconds",
			Help:    "Time spent in the inference session per batch",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"decoder"},
	)
)

// ObserveDecode records one decoded image.
func ObserveDecode(decoder string, elapsed time.Duration, detections int) {
	decodeDuration.WithLabelValues(decoder).Observe(elapsed.Seconds())
	detectionsPerImage.WithLabelValues(decoder).Observe(float64(detections))
}

// AddFiltered counts n candidates dropped for reason.
func AddFiltered(decoder, reason string, n int) {
	if n <= 0 {
		return
	}
	candidatesFiltered.WithLabelValues(decoder, reason).Add(float64(n))
}

// IncInconsistent counts an image whose decode state was malformed.
func IncInconsistent() { decodeInconsistent.Inc() }

// ObserveInference records one inference session run.
func ObserveInference(decoder string, elapsed time.Duration) {
	inferenceDuration.WithLabelValues(decoder).Observe(elapsed.Seconds())
}

// WriteTextfile dumps the default registry in the Prometheus text format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

// InconsistentCounter exposes the inconsistent-decode counter for tests.
func InconsistentCounter() prometheus.Counter { return decodeInconsistent }
