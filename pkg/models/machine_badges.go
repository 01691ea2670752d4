package models

// StatusBadge maps a Status to its CSS badge modifier.
var StatusBadge = map[Status]string{
	StatusActive:         "active",
	StatusReady:          "ready",
	StatusDown:           "down",
	StatusShipped:        "shipped",
	StatusDecommissioned: "decommissioned",
}

// HealthBadge maps a HealthStatus to its CSS badge modifier.
var HealthBadge = map[HealthStatus]string{
	HealthHealthy:     "healthy",
	HealthDegraded:    "degraded",
	HealthUnreachable: "unreachable",
	HealthUnknown:     "unknown",
}

// UsageBadge maps a UsageType to its CSS badge modifier.
var UsageBadge = map[UsageType]string{
	UsageTesting:     "testing",
	UsageDevelopment: "development",
	UsageCustomer:    "customer",
	UsageIdle:        "idle",
}

// Badge returns the badge modifier for s.
// Returns "unknown" for unrecognised statuses.
func (s Status) Badge() string {
	if b, ok := StatusBadge[s]; ok {
		return b
	}
	return "unknown"
}

// Badge returns the badge modifier for h.
// Returns "unknown" for unrecognised values.
func (h HealthStatus) Badge() string {
	if b, ok := HealthBadge[h]; ok {
		return b
	}
	return HealthBadge[HealthUnknown]
}

// Badge returns the badge modifier for u.
// Returns "idle" for unrecognised values.
func (u UsageType) Badge() string {
	if b, ok := UsageBadge[u]; ok {
		return b
	}
	return UsageBadge[UsageIdle]
}
