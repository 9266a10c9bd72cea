package report_fs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/davarch/fossa-gate/internal/domain"
)

// FSReport writes the result of a gate run as a JSON file.
type FSReport struct {
	path string
}

func New(path string) *FSReport { return &FSReport{path: path} }

func (r *FSReport) Write(_ context.Context, rep domain.Report) error {
	if r.path == "" {
		return errors.New("report path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}

	type out struct {
		RunID                string    `json:"run_id"`
		Locator              string    `json:"locator"`
		BuildID              string    `json:"build_id,omitempty"`
		BuildStatus          string    `json:"build_status,omitempty"`
		BuildError           string    `json:"build_error,omitempty"`
		UnresolvedIssueCount *int      `json:"unresolved_issue_count"`
		Outcome              string    `json:"outcome"`
		Message              string    `json:"message"`
		Started              time.Time `json:"started"`
		Finished             time.Time `json:"finished"`
	}

	tmp := r.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")

	if err := enc.Encode(out{
		RunID:                rep.RunID,
		Locator:              rep.Locator,
		BuildID:              rep.BuildID,
		BuildStatus:          string(rep.BuildStatus),
		BuildError:           rep.BuildError,
		UnresolvedIssueCount: rep.UnresolvedIssueCount,
		Outcome:              string(rep.Outcome),
		Message:              rep.Message,
		Started:              rep.Started,
		Finished:             rep.Finished,
	}); err != nil {
		return err
	}

	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}
