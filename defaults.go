package warmcache

import "time"

const (
	// TTLSubscriptions suits high-churn subscription data such as auto-ping expressions.
	TTLSubscriptions = 30 * time.Minute
	// TTLText suits low-churn text resources such as FAQ entries.
	TTLText = 6 * time.Hour

	defaultFetchTimeout   = 20 * time.Second
	defaultBridgeTimeout  = 10 * time.Second
	defaultBridgeNS       = "warmcache"
	defaultBridgeKey      = "snapshot"
	defaultFamilyCapacity = 10_000
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
