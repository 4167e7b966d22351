package admin

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/lube-storefront/internal/i18n"
	"github.com/iliyamo/lube-storefront/internal/model"
)

const exportSheet = "Appointments"

var exportHeader = []string{"Date", "Time", "Service", "Name", "Email", "Phone", "Guest", "Status", "Notes"}

// ExportAppointments fetches the appointment list and writes it to w as an
// XLSX workbook.
func (d *Dashboard) ExportAppointments(ctx context.Context, w io.Writer) error {
	as, err := d.api.Appointments(ctx)
	if err != nil {
		return d.fail(err, i18n.MsgExportFailed)
	}
	if err := WriteAppointmentsXLSX(w, as); err != nil {
		d.log.Sugar().Errorf("export appointments: %v", err)
		d.notify.Error(d.notify.T(i18n.MsgExportFailed))
		return err
	}
	return nil
}

// WriteAppointmentsXLSX renders as into a single-sheet workbook.
func WriteAppointmentsXLSX(w io.Writer, as []model.Appointment) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(exportSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFEB9C"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	for i, h := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(exportHeader), 1)
	if err := f.SetCellStyle(exportSheet, "A1", last, bold); err != nil {
		return err
	}

	for r, a := range as {
		c := a.Contact()
		guest := "no"
		if a.IsGuest {
			guest = "yes"
		}
		row := []any{a.Date.String(), a.Time, a.Service, c.Name, c.Email, c.Phone, guest, string(a.Status), a.Notes}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", r+2, err)
		}
	}
	_ = f.SetColWidth(exportSheet, "A", "H", 16)
	_ = f.SetColWidth(exportSheet, "I", "I", 40)

	_, err = f.WriteTo(w)
	return err
}
