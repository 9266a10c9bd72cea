package domain

import "time"

type BuildStatus string

const (
	StatusRunning   BuildStatus = "RUNNING"
	StatusSucceeded BuildStatus = "SUCCEEDED"
	StatusFailed    BuildStatus = "FAILED"
)

// Terminal reports whether the remote system is done with the build.
// An absent status means the build has not been picked up yet.
func (s BuildStatus) Terminal() bool {
	return s != "" && s != StatusRunning
}

type BuildRequest struct {
	Locator string
}

// Build is one snapshot of a remote build as returned by a single request.
type Build struct {
	ID         string
	Status     BuildStatus
	Error      string
	FinishedAt *time.Time
}

// ScanResult is one snapshot of a revision's scan. A nil UnresolvedIssueCount
// means the revision has not been scanned yet; zero is a finished, clean scan.
type ScanResult struct {
	UnresolvedIssueCount *int
}

func (r ScanResult) Scanned() bool { return r.UnresolvedIssueCount != nil }

type Outcome string

const (
	OutcomePassed         Outcome = "passed"
	OutcomeBuildFailed    Outcome = "build_failed"
	OutcomeIssuesFound    Outcome = "issues_found"
	OutcomeTimeout        Outcome = "timeout"
	OutcomeTransportError Outcome = "transport_error"
	OutcomeQueueFailed    Outcome = "queue_failed"
	OutcomeAborted        Outcome = "aborted"
	OutcomeError          Outcome = "error"
)

// Report summarizes a single gate run.
type Report struct {
	RunID                string
	Locator              string
	BuildID              string
	BuildStatus          BuildStatus
	BuildError           string
	UnresolvedIssueCount *int
	Outcome              Outcome
	Message              string
	Started              time.Time
	Finished             time.Time
}
