package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/chhz0/polytasks/types"
	"github.com/jung-kurt/gofpdf"
)

// ContentType 返回格式对应的MIME类型
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case "csv":
		return "text/csv"
	case "pdf":
		return "application/pdf"
	default:
		return "application/json"
	}
}

func Export(tasks []types.Task, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json":
		if tasks == nil {
			tasks = []types.Task{}
		}
		return json.MarshalIndent(tasks, "", "  ")
	case "csv":
		var b bytes.Buffer
		w := csv.NewWriter(&b)
		_ = w.Write([]string{"id", "text", "completed"})
		for _, t := range tasks {
			_ = w.Write([]string{t.ID, t.Text, strconv.FormatBool(t.Completed)})
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, err
		}
		return b.Bytes(), nil
	case "pdf":
		pdf := gofpdf.New("P", "mm", "A4", "")
		pdf.AddPage()
		pdf.SetFont("Arial", "B", 14)
		pdf.Cell(40, 10, "Tasks")
		pdf.Ln(12)
		pdf.SetFont("Arial", "", 10)
		tr := pdf.UnicodeTranslatorFromDescriptor("")
		for _, t := range tasks {
			mark := "[ ]"
			if t.Completed {
				mark = "[x]"
			}
			pdf.MultiCell(0, 6, tr(mark+" "+t.Text), "0", "L", false)
		}
		pdf.Ln(4)
		pdf.Cell(40, 6, Counter(Remaining(tasks)))
		var buf bytes.Buffer
		if err := pdf.Output(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown format %s", format)
	}
}

func Remaining(tasks []types.Task) int {
	n := 0
	for _, t := range tasks {
		if !t.Completed {
			n++
		}
	}
	return n
}

// Counter 计数文本，如 "1 task remaining" / "3 tasks remaining"
func Counter(remaining int) string {
	suffix := "s"
	if remaining == 1 {
		suffix = ""
	}
	return fmt.Sprintf("%d task%s remaining", remaining, suffix)
}
