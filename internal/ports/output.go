package ports

import "extension-mirror/internal/types"

type ReportWriterPort interface {
	WriteReport(report types.RunReport) error
	WriteFailedList(ids []string) error
}
