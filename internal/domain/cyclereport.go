package domain

import "time"

// MigrationOutcome records the result of executing one planned migration.
type MigrationOutcome struct {
	Migration
	Err string `json:"error,omitempty"`
}

// CycleReport is the record of one planning cycle, assembled by the daemon
// loop around a call into the planner core. It is never fed back into a
// planning pass — only persisted for operators.
type CycleReport struct {
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Policy     Policy             `json:"policy"`
	DryRun     bool               `json:"dry_run"`
	Plan       MigrationPlan      `json:"plan"`
	Outcomes   []MigrationOutcome `json:"outcomes,omitempty"`
	Warnings   []string           `json:"warnings,omitempty"`
}
