package adapter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	m "github.com/toabey/gnat-llvm/internal/model"
	"github.com/toabey/gnat-llvm/pkg"
)

// ReportStore persists build reports so a failed testsuite run can be
// diagnosed after the fact.
type ReportStore interface {
	// AppendReport adds one build report to the store at dir.
	AppendReport(dir m.Path, report m.BuildReport) error

	// LoadReports returns every stored report, oldest first.
	LoadReports(dir m.Path) ([]m.BuildReport, error)
}

const reportsFileName = "builds.yaml"

// journal is the per-directory append state. The reports already on disk
// when the directory is first touched are loaded once into base; reports
// appended during this run go to the spill. The YAML document is rewritten
// from base plus the spill so a batch of appends does not reread the file
// every time.
type journal struct {
	base  []m.BuildReport
	spill pkg.FileSpill[m.BuildReport]
}

// YAMLReportStore keeps all reports in one YAML document per store
// directory. Build volume in a test run is small; readability wins over
// anything cleverer.
type YAMLReportStore struct {
	mu       sync.Mutex
	journals map[string]*journal
}

// NewReportStore constructs a YAMLReportStore.
func NewReportStore() *YAMLReportStore {
	return &YAMLReportStore{journals: make(map[string]*journal)}
}

// AppendReport journals the report and rewrites the store file with it
// appended.
func (s *YAMLReportStore) AppendReport(dir m.Path, report m.BuildReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.journalFor(dir)
	if err != nil {
		return err
	}

	if err := j.spill.Append(report); err != nil {
		return fmt.Errorf("journal report: %w", err)
	}

	reports := make([]m.BuildReport, 0, len(j.base)+int(j.spill.Len()))
	reports = append(reports, j.base...)

	err = j.spill.Range(func(_ uint64, r m.BuildReport) error {
		reports = append(reports, r)
		return nil
	})
	if err != nil {
		return fmt.Errorf("replay journal: %w", err)
	}

	if err := os.MkdirAll(string(dir), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	data, err := yaml.Marshal(reports)
	if err != nil {
		return fmt.Errorf("encode reports: %w", err)
	}

	path := filepath.Join(string(dir), reportsFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write reports: %w", err)
	}

	return nil
}

// journalFor returns the journal for dir, creating it on first use. must be
// called with s.mu held.
func (s *YAMLReportStore) journalFor(dir m.Path) (*journal, error) {
	key := string(dir)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}

	if j, ok := s.journals[key]; ok {
		return j, nil
	}

	base, err := s.LoadReports(dir)
	if err != nil {
		return nil, err
	}

	spill, err := pkg.NewFileSpill[m.BuildReport]()
	if err != nil {
		return nil, err
	}

	j := &journal{base: base, spill: spill}
	s.journals[key] = j

	return j, nil
}

// LoadReports reads the store file; a missing file is an empty store.
func (s *YAMLReportStore) LoadReports(dir m.Path) ([]m.BuildReport, error) {
	path := filepath.Join(string(dir), reportsFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read reports: %w", err)
	}

	var reports []m.BuildReport
	if err := yaml.Unmarshal(data, &reports); err != nil {
		return nil, fmt.Errorf("decode reports: %w", err)
	}

	return reports, nil
}
