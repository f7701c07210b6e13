package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// ChartsFile is the chart page written next to the workbook.
const ChartsFile = "charts.html"

// Save writes the workbook and, when any stock has chart data, the chart
// page into dir/<report id>/. It returns the written paths.
func Save(dir string, rep *Report) ([]string, error) {
	target := filepath.Join(dir, rep.ID)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return nil, fmt.Errorf("report dir: %w", err)
	}

	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, rep); err != nil {
		return nil, err
	}
	xlsxPath := filepath.Join(target, WorkbookFile)
	if err := os.WriteFile(xlsxPath, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", xlsxPath, err)
	}
	paths := []string{xlsxPath}

	if !rep.hasCharts() {
		return paths, nil
	}
	buf.Reset()
	if err := RenderCharts(&buf, rep); err != nil {
		return paths, err
	}
	htmlPath := filepath.Join(target, ChartsFile)
	if err := os.WriteFile(htmlPath, buf.Bytes(), 0o644); err != nil {
		return paths, fmt.Errorf("write %s: %w", htmlPath, err)
	}
	return append(paths, htmlPath), nil
}

func (r *Report) hasCharts() bool {
	for _, s := range r.Stocks {
		if s.Chart != nil && s.Chart.Len() > 0 {
			return true
		}
	}
	return false
}
