package adapters

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"extension-mirror/internal/ports"
	"extension-mirror/internal/types"
)

const DefaultReportPath = "stat.json"
const DefaultFailedListPath = "failed-extensions.log"

// OutputFileAdapter writes the run report and the failure list. Both files
// are overwritten on every run.
type OutputFileAdapter struct {
	ReportPath     string
	FailedListPath string
}

func NewOutputFileAdapter(reportPath string, failedListPath string) OutputFileAdapter {
	if strings.TrimSpace(reportPath) == "" {
		reportPath = DefaultReportPath
	}
	if strings.TrimSpace(failedListPath) == "" {
		failedListPath = DefaultFailedListPath
	}
	return OutputFileAdapter{ReportPath: reportPath, FailedListPath: failedListPath}
}

func (a OutputFileAdapter) WriteReport(report types.RunReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode report").
			WithCause(err)
	}
	return writeOutputFile(a.ReportPath, append(data, '\n'))
}

func (a OutputFileAdapter) WriteFailedList(ids []string) error {
	ordered := append([]string(nil), ids...)
	sort.Strings(ordered)
	content := strings.Join(ordered, "\n")
	if content != "" {
		content += "\n"
	}
	return writeOutputFile(a.FailedListPath, []byte(content))
}

func writeOutputFile(path string, data []byte) error {
	if strings.TrimSpace(path) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("output path is empty")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to create output directory").
				WithCause(err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write output file").
			WithCause(err)
	}
	return nil
}

var _ ports.ReportWriterPort = OutputFileAdapter{}
