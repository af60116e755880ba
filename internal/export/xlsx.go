// Package export writes aggregation records to spreadsheets.
package export

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/sweeney/fridge-monitor/internal/clock"
	"github.com/sweeney/fridge-monitor/internal/logic"
)

const (
	RecordsSheet = "Records"
	SummarySheet = "Summary"
)

// RecordHeader is the first row of the records sheet.
var RecordHeader = []string{
	"Start",
	"End",
	"Records",
	"Vaccine Mean (C)",
	"Vaccine Min (C)",
	"Vaccine Max (C)",
	"Ambient Mean (C)",
	"Below 2C",
	"Above 8C",
	"Low Alarm",
	"High Alarm",
	"Door Openings",
	"Door Open",
	"Door Alarm",
	"Power Available",
	"Power Alarm",
}

// BuildXLSX renders recs into a workbook with one row per record and a
// summary sheet holding their merge.
func BuildXLSX(deviceID string, recs []logic.AggregationRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, deviceID, recs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteXLSX is BuildXLSX writing to w.
func WriteXLSX(w io.Writer, deviceID string, recs []logic.AggregationRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", RecordsSheet)
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("export: create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("export: style: %w", err)
	}

	if err := f.SetSheetRow(RecordsSheet, "A1", &RecordHeader); err != nil {
		return fmt.Errorf("export: header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(RecordHeader), 1)
	_ = f.SetCellStyle(RecordsSheet, "A1", last, headerStyle)
	_ = f.SetColWidth(RecordsSheet, "A", "B", 22)

	for i, rec := range recs {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := recordRow(rec)
		if err := f.SetSheetRow(RecordsSheet, cell, &row); err != nil {
			return fmt.Errorf("export: row %d: %w", i+2, err)
		}
	}

	if err := writeSummary(f, deviceID, recs); err != nil {
		return err
	}
	_ = f.SetCellStyle(SummarySheet, "A1", "A1", headerStyle)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: write: %w", err)
	}
	return nil
}

func recordRow(rec logic.AggregationRecord) []any {
	return []any{
		clock.ToTime(rec.Start).Format(time.RFC3339),
		clock.ToTime(rec.End).Format(time.RFC3339),
		int(rec.RecordsRead),
		meanCell(rec.TVCMean()),
		observedCell(rec.TVCObserved, rec.TVCMin),
		observedCell(rec.TVCObserved, rec.TVCMax),
		meanCell(rec.TAmbMean()),
		logic.FormatDuration(rec.TVCLowSeconds),
		logic.FormatDuration(rec.TVCHighSeconds),
		logic.FormatDuration(rec.LowAlarmSeconds),
		logic.FormatDuration(rec.HighAlarmSeconds),
		int(rec.DoorCount),
		logic.FormatDuration(rec.DoorOpenSeconds),
		rec.DoorAlarmed,
		logic.FormatDuration(rec.PowerAvailableSeconds),
		rec.PowerAlarmed,
	}
}

func writeSummary(f *excelize.File, deviceID string, recs []logic.AggregationRecord) error {
	total := logic.MergeAll(recs)
	rows := [][]any{
		{"Fridge Monitor Export"},
		{},
		{"Device", deviceID},
		{"Records", len(recs)},
	}
	if len(recs) > 0 {
		rows = append(rows,
			[]any{"From", clock.ToTime(total.Start).Format(time.RFC3339)},
			[]any{"To", clock.ToTime(total.End).Format(time.RFC3339)},
			[]any{"Vaccine Mean (C)", meanCell(total.TVCMean())},
			[]any{"High Alarm", logic.FormatDuration(total.HighAlarmSeconds)},
			[]any{"Low Alarm", logic.FormatDuration(total.LowAlarmSeconds)},
			[]any{"Door Openings", int(total.DoorCount)},
			[]any{"Door Open", logic.FormatDuration(total.DoorOpenSeconds)},
			[]any{"Power Available", logic.FormatDuration(total.PowerAvailableSeconds)},
		)
	}
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("export: summary: %w", err)
		}
	}
	return nil
}

func meanCell(v float64, ok bool) any {
	if !ok {
		return ""
	}
	return v
}

func observedCell(ok bool, v float32) any {
	if !ok {
		return ""
	}
	return float64(v)
}
