package application

import (
	"context"
	"fmt"
	"time"

	"github.com/davarch/fossa-gate/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Gate turns one remote build+scan cycle into a pass/fail result.
type Gate struct {
	log    *zap.Logger
	api    domain.ScanAPI
	report domain.ReportWriter
	poll   Poller
}

// NewGate wires a gate. report may be nil.
func NewGate(l *zap.Logger, api domain.ScanAPI, report domain.ReportWriter, poll Poller) *Gate {
	if l == nil {
		l = zap.NewNop()
	}
	return &Gate{log: l, api: api, report: report, poll: poll}
}

// Run submits the locator for a build, waits for the build and then for the
// scan, and returns nil only when the scan found no unresolved issues.
func (g *Gate) Run(ctx context.Context, locator string) (domain.Report, error) {
	rep := domain.Report{
		RunID:   uuid.NewString(),
		Locator: locator,
		Started: time.Now().UTC(),
	}
	log := g.log.With(zap.String("run_id", rep.RunID), zap.String("locator", locator))

	poll := g.poll
	poll.Log = log

	err := g.run(ctx, log, poll, &rep)

	rep.Finished = time.Now().UTC()
	rep.Outcome = domain.OutcomeOf(err)
	if err != nil {
		rep.Message = err.Error()
	} else {
		rep.Message = "scan passed"
		log.Info("scan passed", zap.Duration("took", rep.Finished.Sub(rep.Started)))
	}

	if g.report != nil {
		if werr := g.report.Write(context.WithoutCancel(ctx), rep); werr != nil {
			log.Warn("report write failed", zap.Error(werr))
		}
	}

	return rep, err
}

func (g *Gate) run(ctx context.Context, log *zap.Logger, poll Poller, rep *domain.Report) error {
	build, err := g.api.SubmitBuild(ctx, domain.BuildRequest{Locator: rep.Locator})
	if err != nil {
		return fmt.Errorf("submit build: %w", err)
	}
	if build.ID == "" {
		return domain.ErrQueueFailed
	}
	rep.BuildID = build.ID

	if build.Status.Terminal() {
		log.Info("build already finished", zap.String("build", build.ID), zap.String("status", string(build.Status)))
		err = checkBuild(build)
	} else {
		log.Info("build queued", zap.String("build", build.ID), zap.Duration("timeout", poll.Deadline))
		build, err = WaitForBuild(ctx, g.api, poll, build.ID)
	}

	if build.Status != "" {
		rep.BuildStatus = build.Status
		rep.BuildError = build.Error
	}
	if err != nil {
		return err
	}
	log.Info("build finished", zap.String("build", build.ID), zap.String("status", string(build.Status)))

	scan, err := WaitForScan(ctx, g.api, poll, rep.Locator)
	if err != nil {
		return err
	}
	rep.UnresolvedIssueCount = scan.UnresolvedIssueCount

	if n := *scan.UnresolvedIssueCount; n > 0 {
		return &domain.IssuesFoundError{Locator: rep.Locator, Count: n}
	}
	return nil
}
