package ingest_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"

	"github.com/fleetdesk/fleetdesk/internal/ingest"
)

func buildWorkbook(t *testing.T, sheets map[string][][]string) *bytes.Reader {
	t.Helper()

	workbook := excelize.NewFile()
	defer workbook.Close()

	first := true
	for sheet, rows := range sheets {
		if first {
			assert.NoError(t, workbook.SetSheetName("Sheet1", sheet))
			first = false
		} else {
			_, err := workbook.NewSheet(sheet)
			assert.NoError(t, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			assert.NoError(t, err)
			assert.NoError(t, workbook.SetSheetRow(sheet, cell, &row))
		}
	}

	buffer, err := workbook.WriteToBuffer()
	assert.NoError(t, err)
	return bytes.NewReader(buffer.Bytes())
}

func TestParseWorkbook_CapturesNonEmptyRows(t *testing.T) {
	reader := buildWorkbook(t, map[string][][]string{
		"Inventory": {
			{"Name", "Serial Number", "Location"},
			{"core-switch-1", "SN-001", "rack 4"},
			{"", "", ""},
			{"edge-router-2", "SN-002", "rack 7"},
		},
	})

	rows, err := ingest.ParseWorkbook(reader, "inventory.xlsx")

	assert.NoError(t, err)
	assert.Len(t, rows, 3, "Empty rows are dropped")
	assert.Equal(t, "inventory.xlsx", rows[0].Source)
	assert.Equal(t, "Inventory", rows[0].Sheet)
	assert.Equal(t, 1, rows[0].RowNumber)
	assert.Equal(t, []string{"core-switch-1", "SN-001", "rack 4"}, rows[1].Columns)
	assert.Equal(t, 4, rows[2].RowNumber, "Row numbers track the sheet, not the kept rows")
}

func TestParseWorkbook_RejectsGarbage(t *testing.T) {
	_, err := ingest.ParseWorkbook(bytes.NewReader([]byte("not a workbook")), "junk.bin")

	assert.Error(t, err)
}

func TestExtractDevices_FromHeaderedSheet(t *testing.T) {
	reader := buildWorkbook(t, map[string][][]string{
		"Inventory": {
			{"Name", "Serial Number", "Device Type", "Location", "IP Address"},
			{"core-switch-1", "SN-001", "switch", "rack 4", "10.0.0.1"},
			{"edge-router-2", "SN-002", "router", "rack 7", "10.0.0.2"},
		},
	})

	rows, err := ingest.ParseWorkbook(reader, "inventory.xlsx")
	assert.NoError(t, err)

	devices := ingest.ExtractDevices(rows)

	assert.Len(t, devices, 2)
	assert.Equal(t, "core-switch-1", devices[0].Name)
	assert.Equal(t, "SN-001", devices[0].SerialNumber)
	assert.Equal(t, "switch", devices[0].DeviceType)
	assert.Equal(t, "rack 4", devices[0].Location)
	assert.Equal(t, "10.0.0.1", devices[0].IPAddress)
	assert.NotEmpty(t, devices[0].ID)
}

func TestExtractDevices_SkipsSheetsWithoutNameHeader(t *testing.T) {
	reader := buildWorkbook(t, map[string][][]string{
		"Notes": {
			{"Topic", "Detail"},
			{"maintenance", "window saturday"},
		},
	})

	rows, err := ingest.ParseWorkbook(reader, "notes.xlsx")
	assert.NoError(t, err)

	assert.Empty(t, ingest.ExtractDevices(rows), "Sheets without a name column stay as plain rows")
}
