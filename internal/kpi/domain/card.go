package domain

import (
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Card is an in-flight computed metric before persistence. Numeric fields
// are resolved to defined defaults before ValueHuman is rendered, so a
// missing operand can never null out the display string.
type Card struct {
	OrgID      snowflake.ID
	MetricKey  string
	Title      string
	Theme      string
	ValueHuman string
	Payload    map[string]any
}

// MetricError is a single recovered per-metric computation failure.
type MetricError struct {
	OrgID     snowflake.ID `json:"organization_id"`
	MetricKey string       `json:"metric_key"`
	Message   string       `json:"message"`
}

// RunReport is the structured outcome of one aggregation run.
type RunReport struct {
	RunID         snowflake.ID  `json:"run_id"`
	Success       bool          `json:"success"`
	Skipped       bool          `json:"skipped"`
	OrgsProcessed int           `json:"orgs_processed"`
	OrgsFailed    int           `json:"orgs_failed"`
	CardsCreated  int           `json:"cards_created"`
	Errors        []MetricError `json:"errors"`
}

var (
	// ErrTenantIsolation marks a card carrying the wrong organization id.
	// Fatal for that organization's run; never silently tolerated.
	ErrTenantIsolation = errors.New("tenant_isolation_violation")

	ErrInvalidOrganization = errors.New("invalid_organization")
)
