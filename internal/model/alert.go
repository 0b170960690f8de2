package model

import "time"

// Severity classifies how urgent an alert is.
type Severity string

// Alert severities.
const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert types. Together with RelatedEntity they form the deduplication key:
// re-evaluating identical inputs never stores a second alert for the same
// entity and condition.
const (
	AlertTypeBudgetVariance = "budget_variance"
	AlertTypeOrderQuantity  = "order_quantity"
)

// Alert is a threshold violation emitted by the alert generator. Alerts are
// never mutated after creation except to record acknowledgment.
type Alert struct {
	CreatedAt      time.Time
	AcknowledgedAt *time.Time
	ID             string
	CampaignID     string
	Type           string
	Message        string
	RelatedEntity  string
	Severity       Severity
}

// Acknowledged reports whether an operator has acknowledged the alert.
func (a *Alert) Acknowledged() bool {
	return a.AcknowledgedAt != nil
}
