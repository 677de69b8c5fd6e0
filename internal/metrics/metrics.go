// Package metrics registra los contadores Prometheus del flujo del bridge.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once
	registerErr  error

	forwardsTotal       prometheus.Counter
	verifiesTotal       *prometheus.CounterVec
	certsIssuedTotal    prometheus.Counter
	providerErrorsTotal *prometheus.CounterVec
	providerDuration    *prometheus.HistogramVec
)

// Register inicializa las métricas y devuelve el handler para /metrics.
// Idempotente.
func Register(reg prometheus.Registerer) (http.Handler, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	registerOnce.Do(func() {
		forwardsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridge_forwards_total",
			Help: "Reclamos de email iniciados (redirects al provider)",
		})
		verifiesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_verifies_total",
			Help: "Roundtrips al provider cerrados, por resultado",
		}, []string{"outcome"}) // verified|mismatched|cancelled
		certsIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridge_certs_issued_total",
			Help: "Certificados emitidos",
		})
		providerErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_provider_errors_total",
			Help: "Fallos hablando con el provider, por clase",
		}, []string{"kind"}) // network_error|invalid_response
		providerDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bridge_provider_call_duration_seconds",
			Help:    "Latencia de las llamadas al provider",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}) // auth_url|resolve

		for _, c := range []prometheus.Collector{
			forwardsTotal, verifiesTotal, certsIssuedTotal,
			providerErrorsTotal, providerDuration,
		} {
			if err := register(reg, c); err != nil {
				registerErr = err
				return
			}
		}
	})
	if registerErr != nil {
		return nil, registerErr
	}
	return promhttp.Handler(), nil
}

func register(reg prometheus.Registerer, c prometheus.Collector) error {
	if err := reg.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

// Flow implementa los hooks que consume el orquestador.
type Flow struct{}

func (Flow) ForwardStarted() {
	if forwardsTotal != nil {
		forwardsTotal.Inc()
	}
}

func (Flow) VerifyFinished(outcome string) {
	if verifiesTotal != nil {
		verifiesTotal.WithLabelValues(outcome).Inc()
	}
}

func (Flow) CertIssued() {
	if certsIssuedTotal != nil {
		certsIssuedTotal.Inc()
	}
}

func (Flow) ProviderError(kind string) {
	if providerErrorsTotal != nil && kind != "" {
		providerErrorsTotal.WithLabelValues(kind).Inc()
	}
}

// ObserveProviderCall registra la latencia de una llamada al provider.
func ObserveProviderCall(op string, d time.Duration) {
	if providerDuration != nil {
		providerDuration.WithLabelValues(op).Observe(d.Seconds())
	}
}

// Nop descarta todos los hooks. Para tests y CLIs.
type Nop struct{}

func (Nop) ForwardStarted()       {}
func (Nop) VerifyFinished(string) {}
func (Nop) CertIssued()           {}
func (Nop) ProviderError(string)  {}
