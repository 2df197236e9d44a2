package xlsx

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/project-brain/internal/core/domain"
)

const (
	ContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	sourcesSheet = "Sources"
	defaultSheet = "Sheet1"
)

type layout struct {
	sheet   string
	headers []string
	row     func(domain.StructuredRecord) []any
}

var layouts = map[domain.EntityType]layout{
	domain.EntityDoorSchedule: {
		sheet:   "Door Schedule",
		headers: []string{"Mark", "Location", "Width (mm)", "Height (mm)", "Fire Rating", "Material", "Source Chunks"},
		row: func(r domain.StructuredRecord) []any {
			d := r.(domain.DoorEntry)
			return []any{d.Mark, d.Location, d.WidthMM, d.HeightMM, d.FireRating, d.Material, strings.Join(d.SourceChunkIDs, ", ")}
		},
	},
	domain.EntityRoomSummary: {
		sheet:   "Room Schedule",
		headers: []string{"Name", "Area (sqm)", "Floor Finish", "Ceiling Height (m)", "Occupancy Type", "Source Chunks"},
		row: func(r domain.StructuredRecord) []any {
			room := r.(domain.RoomEntry)
			var ceiling any
			if room.CeilingHeightM != nil {
				ceiling = *room.CeilingHeightM
			}
			return []any{room.Name, room.AreaSqm, room.FloorFinish, ceiling, room.OccupancyType, strings.Join(room.SourceChunkIDs, ", ")}
		},
	},
	domain.EntityEquipmentList: {
		sheet:   "Equipment List",
		headers: []string{"Type", "Description", "Model", "Location", "Specifications", "Source Chunks"},
		row: func(r domain.StructuredRecord) []any {
			e := r.(domain.EquipmentEntry)
			return []any{e.Type, e.Description, e.Model, e.Location, e.Specifications, strings.Join(e.SourceChunkIDs, ", ")}
		},
	},
}

// Filename is the download name for an entity type's workbook.
func Filename(entityType domain.EntityType) string {
	name := string(entityType)
	if entityType == domain.EntityRoomSummary {
		name = "room_schedule"
	}
	return name + ".xlsx"
}

// Write renders the extraction result as a workbook with one data sheet and,
// when sources exist, a Sources sheet.
func Write(w io.Writer, result *domain.ExtractionResult) error {
	l, ok := layouts[result.EntityType]
	if !ok {
		return domain.WrapError(domain.ErrInvalidInput, "export workbook", fmt.Errorf("unsupported extraction type %q", result.EntityType))
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(defaultSheet, l.sheet); err != nil {
		return fmt.Errorf("rename data sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	rows := make([][]any, 0, len(result.Records))
	for _, rec := range result.Records {
		if rec.EntityType() != result.EntityType {
			return fmt.Errorf("export workbook: record of type %s in %s result", rec.EntityType(), result.EntityType)
		}
		rows = append(rows, l.row(rec))
	}
	if err := writeTable(f, l.sheet, l.headers, rows, headerStyle); err != nil {
		return err
	}

	if len(result.Sources) > 0 {
		if _, err := f.NewSheet(sourcesSheet); err != nil {
			return fmt.Errorf("create sources sheet: %w", err)
		}
		srcRows := make([][]any, 0, len(result.Sources))
		for _, s := range result.Sources {
			srcRows = append(srcRows, []any{s.Filename, s.PageNumber})
		}
		if err := writeTable(f, sourcesSheet, []string{"Filename", "Page"}, srcRows, headerStyle); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeTable(f *excelize.File, sheet string, headers []string, rows [][]any, headerStyle int) error {
	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return fmt.Errorf("column name: %w", err)
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 20); err != nil {
		return fmt.Errorf("set %s column width: %w", sheet, err)
	}
	return nil
}
