package pdf

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/nurpe/contracts-service/internal/model"
)

type Generator struct {
	fontName string
	font     []byte
}

// NewGenerator читает TTF-шрифт с кириллицей, которым набирается карточка.
func NewGenerator(fontPath string) (*Generator, error) {
	if strings.TrimSpace(fontPath) == "" {
		return nil, fmt.Errorf("font path is empty")
	}
	font, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("font file: %w", err)
	}
	if len(font) == 0 {
		return nil, fmt.Errorf("font data is empty")
	}
	return &Generator{fontName: "Main", font: font}, nil
}

func (g *Generator) Generate(card model.ContractCard) ([]byte, error) {
	doc := card.Contract

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddUTF8FontFromBytes(g.fontName, "", g.font)
	pdf.AddUTF8FontFromBytes(g.fontName, "B", g.font)
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 14)
	pdf.CellFormat(0, 10, "Карточка договора", "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Срок действия: %s — %s", formatDate(doc.StartDate), formatDate(doc.EndDate)), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Статус: %s", statusLabel(card.Status)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	addBlock(pdf, g.fontName, "Заказчик", []string{
		doc.CustomerName,
		fmt.Sprintf("ИНН: %s", safeValue(doc.CustomerTaxID)),
	})
	pdf.Ln(2)
	implementator := model.Implementator{}
	if doc.Implementator != nil {
		implementator = *doc.Implementator
	}
	addBlock(pdf, g.fontName, "Исполнитель", []string{
		safeValue(implementator.Name),
		fmt.Sprintf("ИНН: %s", safeValue(implementator.TaxID)),
	})
	pdf.Ln(2)

	addBlock(pdf, g.fontName, "Чек-лист", []string{
		fmt.Sprintf("Госуслуги: %s", yesNo(doc.GosServices)),
		fmt.Sprintf("ОКО: %s", yesNo(doc.Oko)),
		fmt.Sprintf("Сполох: %s", yesNo(doc.Spolokh)),
	})
	pdf.Ln(2)

	files := card.Files
	if len(files) == 0 {
		files = []string{"—"}
	}
	addBlock(pdf, g.fontName, "Вложения", files)
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Абонентские комплекты (%d)", len(doc.Kits)), "", 1, "L", false, 0, "")

	headers := []string{"№ АК", "Район", "Адрес"}
	colWidths := []float64{25, 50, 105}
	drawTableRow(pdf, g.fontName, headers, colWidths, true)
	for _, kit := range doc.Kits {
		district := ""
		if kit.District != nil {
			district = kit.District.Name
		}
		cols := []string{fmt.Sprintf("%d", kit.Number), safeValue(district), safeValue(kit.Address)}
		if !fitsPage(pdf, rowHeight(pdf, g.fontName, cols, colWidths, false)) {
			pdf.AddPage()
			drawTableRow(pdf, g.fontName, headers, colWidths, true)
		}
		drawTableRow(pdf, g.fontName, cols, colWidths, false)
	}

	pdf.Ln(4)
	pdf.SetFont(g.fontName, "", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("Сформировано %s", card.GeneratedAt.Format("02.01.2006 15:04")), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func addBlock(pdf *gofpdf.Fpdf, fontName, title string, lines []string) {
	pdf.SetFont(fontName, "B", 11)
	pdf.CellFormat(0, 6, title, "", 1, "L", false, 0, "")
	pdf.SetFont(fontName, "", 10)
	for _, line := range lines {
		pdf.MultiCell(0, 5, line, "", "L", false)
	}
}

const lineHeight = 6.0

func setRowFont(pdf *gofpdf.Fpdf, fontName string, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 10)
}

// rowHeight возвращает высоту строки таблицы с переносом длинных значений.
func rowHeight(pdf *gofpdf.Fpdf, fontName string, cols []string, widths []float64, header bool) float64 {
	setRowFont(pdf, fontName, header)
	lines := 1
	for i, col := range cols {
		if n := len(wrapText(pdf, col, widths[i]-2)); n > lines {
			lines = n
		}
	}
	return float64(lines) * lineHeight
}

func fitsPage(pdf *gofpdf.Fpdf, height float64) bool {
	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	return pdf.GetY()+height <= pageHeight-bottom
}

func drawTableRow(pdf *gofpdf.Fpdf, fontName string, cols []string, widths []float64, header bool) {
	height := rowHeight(pdf, fontName, cols, widths, header)
	left, _, _, _ := pdf.GetMargins()
	x, y := left, pdf.GetY()
	for i, col := range cols {
		align := "L"
		if i == 0 {
			align = "R"
		}
		pdf.Rect(x, y, widths[i], height, "D")
		for j, line := range wrapText(pdf, col, widths[i]-2) {
			pdf.SetXY(x+1, y+float64(j)*lineHeight)
			pdf.CellFormat(widths[i]-2, lineHeight, line, "", 0, align, false, 0, "")
		}
		x += widths[i]
	}
	pdf.SetXY(left, y+height)
}

// wrapText разбивает текст на строки не шире width, длинные слова режутся по символам.
func wrapText(pdf *gofpdf.Fpdf, text string, width float64) []string {
	var lines []string
	current := ""
	for _, word := range strings.Fields(text) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if pdf.GetStringWidth(candidate) <= width {
			current = candidate
			continue
		}
		if current != "" {
			lines = append(lines, current)
			current = ""
		}
		for pdf.GetStringWidth(word) > width {
			runes := []rune(word)
			cut := 1
			for cut < len(runes) && pdf.GetStringWidth(string(runes[:cut+1])) <= width {
				cut++
			}
			lines = append(lines, string(runes[:cut]))
			word = string(runes[cut:])
		}
		current = word
	}
	if current != "" || len(lines) == 0 {
		lines = append(lines, current)
	}
	return lines
}

func statusLabel(status model.ContractStatus) string {
	if status == model.ContractStatusCompleted {
		return "завершён"
	}
	return "действующий"
}

func yesNo(value bool) string {
	if value {
		return "да"
	}
	return "нет"
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "—"
	}
	return value
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.Format("02.01.2006")
}
