// pkg/pipeline/job.go
package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/David-Botos/dni-validator/pkg/config"
	"github.com/David-Botos/dni-validator/pkg/export"
)

// Artifacts are the absolute paths of the five run outputs
type Artifacts struct {
	ValidXLSX    string `json:"validos_xlsx"`
	RejectedXLSX string `json:"rechazados_xlsx"`
	ValidCSV     string `json:"validos_csv"`
	RejectedCSV  string `json:"rechazados_csv"`
	Report       string `json:"reporte_pdf"`
}

// Paths returns the artifacts in write order
func (a Artifacts) Paths() []string {
	return []string{a.ValidXLSX, a.RejectedXLSX, a.ValidCSV, a.RejectedCSV, a.Report}
}

// Targets returns the tabular artifacts as export targets
func (a Artifacts) Targets() export.Targets {
	return export.Targets{
		ValidXLSX:    a.ValidXLSX,
		RejectedXLSX: a.RejectedXLSX,
		ValidCSV:     a.ValidCSV,
		RejectedCSV:  a.RejectedCSV,
	}
}

func artifactsIn(dir string, names config.ArtifactNames) Artifacts {
	return Artifacts{
		ValidXLSX:    filepath.Join(dir, names.ValidXLSX),
		RejectedXLSX: filepath.Join(dir, names.RejectedXLSX),
		ValidCSV:     filepath.Join(dir, names.ValidCSV),
		RejectedCSV:  filepath.Join(dir, names.RejectedCSV),
		Report:       filepath.Join(dir, names.Report),
	}
}

// RunJob is one validation run and its output layout. Artifacts are written
// to a hidden staging directory and moved into the output directory on
// Commit.
type RunJob struct {
	ID        uuid.UUID
	StartedAt time.Time
	OutputDir string // Directory the artifacts are committed to
	Names     config.ArtifactNames

	stagingDir string
	committed  []string
	replaced   map[string]string // Final path to the backup of the file it replaced
}

// NewRunJob creates a job writing under baseDir. With perRunDir, artifacts
// go into a sub-directory named by the run id.
func NewRunJob(baseDir string, names config.ArtifactNames, perRunDir bool) (*RunJob, error) {
	if baseDir == "" {
		return nil, errors.New("output directory cannot be empty")
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}

	id := uuid.New()
	out := abs
	if perRunDir {
		out = filepath.Join(abs, id.String())
	}

	return &RunJob{
		ID:         id,
		StartedAt:  time.Now(),
		OutputDir:  out,
		Names:      names,
		stagingDir: filepath.Join(abs, ".staging-"+id.String()),
	}, nil
}

// StagingDir returns the hidden directory artifacts are written to
func (j *RunJob) StagingDir() string {
	return j.stagingDir
}

// Staged returns the artifact paths inside the staging directory
func (j *RunJob) Staged() Artifacts {
	return artifactsIn(j.stagingDir, j.Names)
}

// Final returns the artifact paths after commit
func (j *RunJob) Final() Artifacts {
	return artifactsIn(j.OutputDir, j.Names)
}

// Prepare creates the staging directory
func (j *RunJob) Prepare() error {
	if err := os.MkdirAll(j.stagingDir, 0o755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	return nil
}

// Commit moves every staged artifact into the output directory. Files left
// there by an earlier run are set aside first. If any move fails, artifacts
// already moved are removed, the earlier files are put back and the staging
// directory is discarded, so either all five new artifacts are visible or
// the output directory is left as it was.
func (j *RunJob) Commit() error {
	staged := j.Staged().Paths()
	final := j.Final().Paths()

	for _, p := range staged {
		if _, err := os.Stat(p); err != nil {
			j.Abort()
			return fmt.Errorf("staged artifact missing: %w", err)
		}
	}

	if err := os.MkdirAll(j.OutputDir, 0o755); err != nil {
		j.Abort()
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := j.backupExisting(final); err != nil {
		j.Abort()
		return err
	}

	for i := range staged {
		if err := os.Rename(staged[i], final[i]); err != nil {
			j.Abort()
			return fmt.Errorf("failed to commit %s: %w", filepath.Base(final[i]), err)
		}
		j.committed = append(j.committed, final[i])
	}

	return os.RemoveAll(j.stagingDir)
}

// backupExisting moves regular files at the final paths into the staging
// directory
func (j *RunJob) backupExisting(final []string) error {
	backupDir := filepath.Join(j.stagingDir, "previous")
	for _, p := range final {
		info, err := os.Lstat(p)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if err := os.MkdirAll(backupDir, 0o755); err != nil {
			return fmt.Errorf("failed to create backup directory: %w", err)
		}
		backup := filepath.Join(backupDir, filepath.Base(p))
		if err := os.Rename(p, backup); err != nil {
			return fmt.Errorf("failed to set aside %s: %w", filepath.Base(p), err)
		}
		if j.replaced == nil {
			j.replaced = make(map[string]string)
		}
		j.replaced[p] = backup
	}
	return nil
}

// Abort removes any artifact already committed, restores the files they
// replaced and removes the staging directory
func (j *RunJob) Abort() {
	for _, p := range j.committed {
		_ = os.Remove(p)
	}
	for final, backup := range j.replaced {
		_ = os.Rename(backup, final)
	}
	j.committed = nil
	j.replaced = nil
	_ = os.RemoveAll(j.stagingDir)
}
