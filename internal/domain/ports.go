package domain

import "context"

// ScanAPI is the remote build and scan service.
type ScanAPI interface {
	SubmitBuild(ctx context.Context, req BuildRequest) (Build, error)
	GetBuild(ctx context.Context, id string) (Build, error)
	GetScanResult(ctx context.Context, locator string) (ScanResult, error)
}

type ReportWriter interface {
	Write(ctx context.Context, r Report) error
}
