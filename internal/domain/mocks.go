package domain

import (
	"context"
)

// MockScanAPI replays scripted responses. Once a script is exhausted the
// last entry is repeated.
type MockScanAPI struct {
	Submitted Build
	SubmitErr error

	Builds   []Build
	BuildErr error

	Scans   []ScanResult
	ScanErr error

	SubmitCalls int
	BuildCalls  int
	ScanCalls   int
	Requests    []BuildRequest
}

func (m *MockScanAPI) SubmitBuild(ctx context.Context, req BuildRequest) (Build, error) {
	m.SubmitCalls++
	m.Requests = append(m.Requests, req)
	if m.SubmitErr != nil {
		return Build{}, m.SubmitErr
	}
	return m.Submitted, nil
}

func (m *MockScanAPI) GetBuild(ctx context.Context, id string) (Build, error) {
	m.BuildCalls++
	if m.BuildErr != nil {
		return Build{}, m.BuildErr
	}
	if len(m.Builds) == 0 {
		return Build{ID: id}, nil
	}
	b := m.Builds[min(m.BuildCalls, len(m.Builds))-1]
	if b.ID == "" {
		b.ID = id
	}
	return b, nil
}

func (m *MockScanAPI) GetScanResult(ctx context.Context, locator string) (ScanResult, error) {
	m.ScanCalls++
	if m.ScanErr != nil {
		return ScanResult{}, m.ScanErr
	}
	if len(m.Scans) == 0 {
		return ScanResult{}, nil
	}
	return m.Scans[min(m.ScanCalls, len(m.Scans))-1], nil
}

type MockReportWriter struct {
	Reports []Report
	Err     error
}

func (w *MockReportWriter) Write(ctx context.Context, r Report) error {
	if w.Err != nil {
		return w.Err
	}
	w.Reports = append(w.Reports, r)
	return nil
}

// IssueCount is a helper for building ScanResult literals.
func IssueCount(n int) *int { return &n }
