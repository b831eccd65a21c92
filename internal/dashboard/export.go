package dashboard

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/openlearnnitj/openlearn-dashboard/internal/models"
)

const historySheet = "history"

var toneColors = map[Tone]string{
	ToneGood:    "89C923",
	ToneWarn:    "DDA100",
	ToneBad:     "FF2D00",
	ToneUnknown: "C0C0C0",
}

func excelPos(x, y int) string {
	pos, err := excelize.CoordinatesToCellName(x+1, y+1)
	if err != nil {
		panic(err)
	}
	return pos
}

// WriteXLSX writes the history as a workbook with one row per point, oldest first.
// Absent fields are left blank.
func WriteXLSX(w io.Writer, points []models.HistoryPoint, createdAt time.Time) error {
	xlsx := excelize.NewFile()
	defer xlsx.Close()

	if err := xlsx.SetSheetName("Sheet1", historySheet); err != nil {
		return err
	}

	_ = xlsx.SetAppProps(&excelize.AppProperties{
		Application: "OpenLearn Dashboard",
	})
	_ = xlsx.SetDocProps(&excelize.DocProperties{
		Created:  createdAt.Format(time.RFC3339),
		Modified: createdAt.Format(time.RFC3339),
		Creator:  "OpenLearn Dashboard",
		Title:    "Metrics history",
	})

	zone, _ := createdAt.Zone()
	headers := []string{
		fmt.Sprintf("captured at (%s)", zone),
		"availability",
		"status code",
		"db query time",
		"throttled operations",
		"lambda avg time",
	}
	for x, h := range headers {
		if err := xlsx.SetCellStr(historySheet, excelPos(x, 0), h); err != nil {
			return err
		}
	}

	datefmt := "yyyy-mm-dd hh:mm:ss"
	msfmt := "#,##0.00 \"ms\""

	styles := make(map[string]int)
	style := func(tone Tone, format *string) (int, error) {
		key := string(tone)
		if format != nil {
			key += *format
		}
		if id, ok := styles[key]; ok {
			return id, nil
		}
		id, err := xlsx.NewStyle(&excelize.Style{
			CustomNumFmt: format,
			Border:       []excelize.Border{{Type: "bottom", Style: 1, Color: toneColors[tone]}},
		})
		if err != nil {
			return 0, err
		}
		styles[key] = id
		return id, nil
	}

	for i, p := range points {
		row := i + 1
		tone := AvailabilityTone(p.Availability)

		cells := []struct {
			value  any
			valid  bool
			format *string
		}{
			{p.CapturedAt.In(createdAt.Location()), true, &datefmt},
			{p.Availability.String, p.Availability.Valid, nil},
			{p.StatusCode.Int64, p.StatusCode.Valid, nil},
			{p.DBQueryExecutionTime.Float64, p.DBQueryExecutionTime.Valid, &msfmt},
			{p.ThrottleOperationCount.Int64, p.ThrottleOperationCount.Valid, nil},
			{p.LambdaAvgExecutionTime.Float64, p.LambdaAvgExecutionTime.Valid, &msfmt},
		}

		for x, c := range cells {
			pos := excelPos(x, row)
			if c.valid {
				if err := xlsx.SetCellValue(historySheet, pos, c.value); err != nil {
					return err
				}
			}

			sid, err := style(tone, c.format)
			if err != nil {
				return err
			}
			if err := xlsx.SetCellStyle(historySheet, pos, pos, sid); err != nil {
				return err
			}
		}
	}

	if err := xlsx.SetPanes(historySheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	_ = xlsx.SetColWidth(historySheet, "A", "A", 20)
	_ = xlsx.SetColWidth(historySheet, "B", "F", 16)

	return xlsx.Write(w)
}
