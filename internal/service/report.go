package service

import (
	"context"
	"fmt"
	"io"

	"github.com/naciremadream81/permitpro-v1/internal/models"
	"github.com/xuri/excelize/v2"
)

// Sheet names in the exported workbook.
const (
	PackagesSheet = "Packages"
	SummarySheet  = "Summary"
)

const reportTimeLayout = "2006-01-02 15:04"

var reportHeader = []interface{}{
	"Permit Number", "Customer", "Customer Phone", "Customer Email", "Property Address",
	"Parcel ID", "County", "Permit Type", "Status", "Primary Contractor",
	"Checklist Completed", "Checklist Items", "Documents", "Created", "Updated",
}

// ExportSpreadsheet writes an xlsx report of the packages the caller can see.
func (s *permitService) ExportSpreadsheet(ctx context.Context, identity *models.Identity, w io.Writer) error {
	packages, err := s.List(ctx, identity)
	if err != nil {
		return err
	}
	stats, err := s.Stats(ctx, identity)
	if err != nil {
		return err
	}

	f, err := buildWorkbook(packages, stats)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func buildWorkbook(packages []models.PermitPackage, stats *models.PackageStats) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", PackagesSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	if err := f.SetSheetRow(PackagesSheet, "A1", &reportHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(reportHeader))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name header column: %w", err)
	}
	if err := formatColumns(f, PackagesSheet, "A", lastCol, 1, bold, 18); err != nil {
		f.Close()
		return nil, err
	}

	for i, pkg := range packages {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to address package %d: %w", pkg.ID, err)
		}
		row := packageRow(pkg)
		if err := f.SetSheetRow(PackagesSheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write package %d: %w", pkg.ID, err)
		}
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to add summary sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Total Packages", stats.TotalPackages},
		{"Draft", stats.DraftPackages},
		{"Submitted", stats.SubmittedPackages},
		{"Completed", stats.CompletedPackages},
		{"Total Documents", stats.TotalDocuments},
		{"Completion Rate (%)", stats.CompletionRate},
	}
	for i, line := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to address summary: %w", err)
		}
		if err := f.SetSheetRow(SummarySheet, cell, &line); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write summary: %w", err)
		}
	}
	if err := formatColumns(f, SummarySheet, "A", "A", len(summary), bold, 22); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}

// formatColumns bolds rows 1..lastRow of columns first..last and sets their width.
func formatColumns(f *excelize.File, sheet, first, last string, lastRow, style int, width float64) error {
	if err := f.SetCellStyle(sheet, first+"1", fmt.Sprintf("%s%d", last, lastRow), style); err != nil {
		return fmt.Errorf("failed to style %s: %w", sheet, err)
	}
	if err := f.SetColWidth(sheet, first, last, width); err != nil {
		return fmt.Errorf("failed to size %s columns: %w", sheet, err)
	}
	return nil
}

func packageRow(pkg models.PermitPackage) []interface{} {
	completed := 0
	for _, item := range pkg.ChecklistItems {
		if item.Completed {
			completed++
		}
	}
	primary := ""
	for _, c := range pkg.Contractors {
		if c.Role == models.RolePrimaryContractor {
			primary = c.Name
			break
		}
	}
	return []interface{}{
		pkg.PermitNumber,
		pkg.Customer.Name,
		pkg.Customer.Phone,
		pkg.Customer.Email,
		pkg.Property.Address,
		pkg.Property.ParcelID,
		pkg.County,
		pkg.PermitType,
		string(pkg.Status),
		primary,
		completed,
		len(pkg.ChecklistItems),
		len(pkg.Documents),
		pkg.CreatedAt.Format(reportTimeLayout),
		pkg.UpdatedAt.Format(reportTimeLayout),
	}
}
