// Package export renders CRM data to spreadsheet downloads.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"leadchat-service/internal/models"
)

var leadHeaders = []string{"ID", "Name", "Phone", "Status", "Stage", "Responsible", "Success %", "Value", "Tags", "Updated"}

// LeadsXLSX renders the lead list as an xlsx workbook.
func LeadsXLSX(leads []models.Lead, stages []models.Stage, users []models.User) (*bytes.Buffer, error) {
	stageNames := make(map[int]string, len(stages))
	for _, s := range stages {
		stageNames[s.ID] = s.Name
	}
	userNames := make(map[int]string, len(users))
	for _, u := range users {
		userNames[u.ID] = u.Name
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for col, header := range leadHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}

	for row, lead := range leads {
		responsible := ""
		if lead.ResponsibleID != nil {
			responsible = userNames[*lead.ResponsibleID]
			if responsible == "" {
				responsible = fmt.Sprintf("user %d", *lead.ResponsibleID)
			}
		}
		values := []interface{}{
			lead.ID,
			lead.Name,
			lead.Phone,
			lead.Status,
			stageNames[lead.StageID],
			responsible,
			lead.SuccessChance,
			lead.Value,
			strings.Join(lead.Tags, ", "),
			lead.UpdatedAt.Format("2006-01-02 15:04"),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	return f.WriteToBuffer()
}
