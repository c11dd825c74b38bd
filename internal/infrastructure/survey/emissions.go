package survey

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/pkg/errors"
)

// ReadEmissions reads the vehicle emissions workbook. The sheet has a two-row
// header: vehicle categories in the first row, spanning merged cells, and
// metric names in the second. The first column holds the SA1 code.
func (r *reader) ReadEmissions(ctx context.Context) (*domain.WideTable, error) {
	if r.emissionsPath == "" {
		return nil, errors.ErrConfigurationMissing.Detail("setting", "EMISSIONS_DATA")
	}

	r.logger.Info("Reading emissions workbook",
		zap.String("path", r.emissionsPath),
		zap.Int("sheet", r.emissionsSheet))

	f, err := excelize.OpenFile(r.emissionsPath)
	if err != nil {
		return nil, fmt.Errorf("open emissions workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(r.emissionsSheet)
	if sheet == "" {
		return nil, errors.ErrSchemaViolation.
			WithDetails(map[string]interface{}{"path": r.emissionsPath, "sheet": r.emissionsSheet}).
			Wrap(fmt.Errorf("workbook has no sheet %d", r.emissionsSheet))
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	table, err := parseWideTable(rows)
	if err != nil {
		return nil, errors.ErrSchemaViolation.Detail("path", r.emissionsPath).Wrap(err)
	}

	r.logger.Info("Read emissions workbook",
		zap.Int("areas", len(table.Rows)),
		zap.Int("categories", len(table.Categories)),
		zap.Strings("metrics", table.Metrics))
	return table, nil
}

type headerColumn struct {
	col      int
	category int
	metric   int
}

func parseWideTable(rows [][]string) (*domain.WideTable, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("expected two header rows, got %d rows", len(rows))
	}

	table := &domain.WideTable{}
	categoryIdx := map[string]int{}
	metricIdx := map[string]int{}
	var columns []headerColumn

	category := ""
	for col := 1; col < len(rows[1]); col++ {
		if col < len(rows[0]) && strings.TrimSpace(rows[0][col]) != "" {
			category = strings.TrimSpace(rows[0][col])
		}
		metric := metricLabel(rows[1][col])
		if category == "" || metric == "" {
			continue
		}

		ci, ok := categoryIdx[category]
		if !ok {
			ci = len(table.Categories)
			categoryIdx[category] = ci
			table.Categories = append(table.Categories, category)
		}
		mi, ok := metricIdx[metric]
		if !ok {
			mi = len(table.Metrics)
			metricIdx[metric] = mi
			table.Metrics = append(table.Metrics, metric)
		}
		columns = append(columns, headerColumn{col: col, category: ci, metric: mi})
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("no category/metric columns in header")
	}

	seen := make(map[[2]int]bool, len(columns))
	for _, c := range columns {
		key := [2]int{c.category, c.metric}
		if seen[key] {
			return nil, fmt.Errorf("duplicate column %s / %s",
				table.Categories[c.category], table.Metrics[c.metric])
		}
		seen[key] = true
	}

	width := len(table.Categories) * len(table.Metrics)
	for i, row := range rows[2:] {
		if len(row) == 0 {
			continue
		}
		id, ok := parseID(row[0])
		if !ok {
			// index label rows and footnotes
			continue
		}

		values := make([]*float64, width)
		for _, c := range columns {
			if c.col >= len(row) {
				continue
			}
			cell := strings.TrimSpace(row[c.col])
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i+3, c.col+1, err)
			}
			values[c.category*len(table.Metrics)+c.metric] = &v
		}
		table.Rows = append(table.Rows, domain.WideRow{EntityID: id, Values: values})
	}
	return table, nil
}

// metricLabel normalizes a metric header: embedded line breaks become spaces
func metricLabel(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

func parseID(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}
