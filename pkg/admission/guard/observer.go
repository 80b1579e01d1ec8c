package guard

import "time"

// Observer receives admission events. Implementations must be safe for
// concurrent use and must not call back into the Guard.
//
// Occupancy values are sampled after each event and may arrive out of order
// under contention; treat them as gauges, not as a log.
type Observer interface {
	ObserveRegister(key string, budget int)
	ObserveAdmit(key string, waited time.Duration)
	ObserveReject(key string, waited time.Duration)
	ObserveExit(key string)
	ObserveViolation(key string)
	ObserveOccupancy(key string, held, waiting int)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) ObserveRegister(string, int) {}
func (NopObserver) ObserveAdmit(string, time.Duration) {}
func (NopObserver) ObserveReject(string, time.Duration) {}
func (NopObserver) ObserveExit(string) {}
func (NopObserver) ObserveViolation(string) {}
func (NopObserver) ObserveOccupancy(string, int, int) {}
