package application

import (
	"context"

	"github.com/davarch/fossa-gate/internal/domain"
)

// WaitForBuild polls a build until it leaves RUNNING. A FAILED build is
// returned together with a *domain.BuildFailedError.
func WaitForBuild(ctx context.Context, api domain.ScanAPI, p Poller, id string) (domain.Build, error) {
	b, err := PollUntil(ctx, p.named("build "+id),
		func(ctx context.Context) (domain.Build, error) { return api.GetBuild(ctx, id) },
		func(b domain.Build) bool { return b.Status.Terminal() },
	)
	if err != nil {
		return domain.Build{}, err
	}
	return b, checkBuild(b)
}

// WaitForScan polls the revision until an issue count has been assigned.
func WaitForScan(ctx context.Context, api domain.ScanAPI, p Poller, locator string) (domain.ScanResult, error) {
	return PollUntil(ctx, p.named("scan "+locator),
		func(ctx context.Context) (domain.ScanResult, error) { return api.GetScanResult(ctx, locator) },
		domain.ScanResult.Scanned,
	)
}

func checkBuild(b domain.Build) error {
	if b.Status == domain.StatusFailed {
		return &domain.BuildFailedError{BuildID: b.ID, Message: b.Error}
	}
	return nil
}
