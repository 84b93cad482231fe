// Package export renders admin data as spreadsheets.
package export

import (
	"fmt"
	"io"

	"listing-portal/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	EnquirySheet    = "Enquiries"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var enquiryHeader = []interface{}{
	"ID", "Received", "Status", "Name", "Email", "Phone", "Listing", "Message",
}

// WriteEnquiries writes one row per enquiry under a header row. titles maps
// property ids to listing titles; unknown ids are written as-is.
func WriteEnquiries(w io.Writer, enquiries []models.Enquiry, titles map[string]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", EnquirySheet); err != nil {
		return fmt.Errorf("export: rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(EnquirySheet)
	if err != nil {
		return fmt.Errorf("export: stream writer: %w", err)
	}
	if err := sw.SetColWidth(8, 8, 60); err != nil {
		return err
	}
	if err := sw.SetRow("A1", enquiryHeader); err != nil {
		return fmt.Errorf("export: header: %w", err)
	}

	for i, e := range enquiries {
		listing := ""
		if e.PropertyID != nil {
			listing = *e.PropertyID
			if title, ok := titles[listing]; ok {
				listing = title
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			e.ID,
			e.CreatedAt.UTC().Format("2006-01-02 15:04"),
			string(e.Status),
			e.Name,
			e.Email,
			e.Phone,
			listing,
			e.Message,
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("export: row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("export: flush: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export: write: %w", err)
	}
	return nil
}

// EnquiryFilename names an export taken at the given date.
func EnquiryFilename(date string) string {
	return "enquiries-" + date + ".xlsx"
}
