package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ActiveStreams     prometheus.Gauge
	RecordsGenerated  prometheus.Counter
	GenerationErrors  prometheus.Counter
	StreamDuration    prometheus.Histogram
	RecordSize        prometheus.Histogram
	RateLimitExceeded prometheus.Counter
	KafkaErrors       prometheus.Counter
	WebSocketErrors   prometheus.Counter
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ActiveStreams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_streams",
			Help:      "The current number of active streams",
		}),
		RecordsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_generated_total",
			Help:      "The total number of generated records",
		}),
		GenerationErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_errors_total",
			Help:      "Number of record or entity factory failures",
		}),
		StreamDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stream_duration_seconds",
			Help:      "Wall time from first to last emitted record",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14),
		}),
		RecordSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "record_size_bytes",
			Help:      "Size of serialized records in bytes",
			Buckets:   []float64{64, 128, 256, 512, 1024, 2048, 4096, 8192},
		}),
		RateLimitExceeded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_exceeded_total",
			Help:      "Number of times the delivery rate limit was exceeded",
		}),
		KafkaErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_errors_total",
			Help:      "Number of Kafka-related errors",
		}),
		WebSocketErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_errors_total",
			Help:      "Number of WebSocket-related errors",
		}),
	}
}
