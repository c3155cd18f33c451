package observability

import "time"

// ObserveStore times a logical document-store operation and counts its
// errors. Domain misses (not found, duplicates) arrive here too; the
// caller decides what is an error before wrapping.
func (p *Prom) ObserveStore(op string, fn func() error) error {
	start := time.Now()
	err := fn()

	status := "ok"

	if err != nil {
		status = "error"
		p.StoreErrors.WithLabelValues(op).Inc()
	}
	p.StoreOpDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	return err
}
