// Package ingest turns uploaded spreadsheets into searchable import
// rows and, where the sheet carries recognisable inventory headers,
// device records.
package ingest

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/fleetdesk/fleetdesk/internal/models"
)

// ParseWorkbook reads every sheet of an .xlsx workbook into flat import
// rows. Fully empty rows are dropped; everything else is kept verbatim
// so operators can search what they actually uploaded.
func ParseWorkbook(r io.Reader, sourceName string) ([]*models.ImportRow, error) {
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer workbook.Close()

	now := time.Now().UTC()
	var importRows []*models.ImportRow

	for _, sheet := range workbook.GetSheetList() {
		rows, err := workbook.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}

		for i, columns := range rows {
			if isEmptyRow(columns) {
				continue
			}
			importRows = append(importRows, &models.ImportRow{
				ID:        uuid.NewString(),
				Source:    sourceName,
				Sheet:     sheet,
				RowNumber: i + 1,
				Columns:   columns,
				CreatedAt: now,
			})
		}
	}

	return importRows, nil
}

// deviceHeaders maps recognised column headings onto device fields.
var deviceHeaders = map[string]string{
	"name":          "name",
	"device name":   "name",
	"serial":        "serial",
	"serial number": "serial",
	"type":          "type",
	"device type":   "type",
	"location":      "location",
	"ip":            "ip",
	"ip address":    "ip",
}

// ExtractDevices converts import rows into devices when their sheet's
// first row looks like an inventory header with at least a name column.
// Rows from sheets without such a header are left as plain import rows.
func ExtractDevices(importRows []*models.ImportRow) []*models.Device {
	bySheet := make(map[string][]*models.ImportRow)
	var sheetOrder []string
	for _, row := range importRows {
		key := row.Source + "\x00" + row.Sheet
		if _, ok := bySheet[key]; !ok {
			sheetOrder = append(sheetOrder, key)
		}
		bySheet[key] = append(bySheet[key], row)
	}

	var devices []*models.Device
	for _, key := range sheetOrder {
		rows := bySheet[key]
		header := headerIndex(rows[0].Columns)
		if _, ok := header["name"]; !ok {
			continue
		}

		for _, row := range rows[1:] {
			device := deviceFromRow(header, row.Columns)
			if device != nil {
				devices = append(devices, device)
			}
		}
	}

	return devices
}

func headerIndex(columns []string) map[string]int {
	index := make(map[string]int)
	for i, column := range columns {
		field, ok := deviceHeaders[strings.ToLower(strings.TrimSpace(column))]
		if !ok {
			continue
		}
		if _, exists := index[field]; !exists {
			index[field] = i
		}
	}
	return index
}

func deviceFromRow(header map[string]int, columns []string) *models.Device {
	cell := func(field string) string {
		i, ok := header[field]
		if !ok || i >= len(columns) {
			return ""
		}
		return strings.TrimSpace(columns[i])
	}

	name := cell("name")
	if name == "" {
		return nil
	}

	device := models.NewDevice(name)
	device.SerialNumber = cell("serial")
	device.DeviceType = cell("type")
	device.Location = cell("location")
	device.IPAddress = cell("ip")
	return device
}

func isEmptyRow(columns []string) bool {
	for _, column := range columns {
		if strings.TrimSpace(column) != "" {
			return false
		}
	}
	return true
}
