package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrQueueFailed is returned when the build submission was accepted
	// without a build id to follow.
	ErrQueueFailed = errors.New("queue failed: build submission returned no build id")
	ErrAborted     = errors.New("aborted")
)

type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return "config: " + e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

// TransportError covers network failures, non-2xx responses and
// undecodable bodies of a single request.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

type TimeoutError struct {
	Stage string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for %s after %s", e.Stage, e.After)
}

type BuildFailedError struct {
	BuildID string
	Message string
}

func (e *BuildFailedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("build %s failed", e.BuildID)
	}
	return fmt.Sprintf("build %s failed: %s", e.BuildID, e.Message)
}

type IssuesFoundError struct {
	Locator string
	Count   int
}

func (e *IssuesFoundError) Error() string {
	return fmt.Sprintf("issues found: %d unresolved issue(s) in %s, resolve them to pass the build", e.Count, e.Locator)
}

// OutcomeOf classifies the error returned by a gate run.
func OutcomeOf(err error) Outcome {
	var (
		bf *BuildFailedError
		is *IssuesFoundError
		to *TimeoutError
		te *TransportError
	)
	switch {
	case err == nil:
		return OutcomePassed
	case errors.As(err, &bf):
		return OutcomeBuildFailed
	case errors.As(err, &is):
		return OutcomeIssuesFound
	case errors.As(err, &to):
		return OutcomeTimeout
	case errors.Is(err, ErrQueueFailed):
		return OutcomeQueueFailed
	case errors.Is(err, ErrAborted):
		return OutcomeAborted
	case errors.As(err, &te):
		return OutcomeTransportError
	default:
		return OutcomeError
	}
}
