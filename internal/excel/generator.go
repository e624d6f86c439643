package excel

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nurpe/contracts-service/internal/model"
)

const (
	registrySheet = "Реестр"
	kitsSheet     = "АК"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Generate(registry model.ContractRegistry) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", registrySheet); err != nil {
		return nil, err
	}
	if err := g.writeRegistry(file, registry); err != nil {
		return nil, err
	}
	if _, err := file.NewSheet(kitsSheet); err != nil {
		return nil, err
	}
	if err := g.writeKits(file, registry); err != nil {
		return nil, err
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeRegistry(file *excelize.File, registry model.ContractRegistry) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(registrySheet, cell, value)
	}

	set("A1", "Реестр договоров")
	set("A2", "Сформирован")
	set("B2", formatDateTime(registry.GeneratedAt))
	set("A3", "Поиск")
	set("B3", registry.Query)
	set("A4", "Статус")
	set("B4", statusLabel(registry.Status))
	set("A5", "Количество договоров")
	set("B5", len(registry.Rows))

	tableRow := 7
	headers := []string{
		"№",
		"Заказчик",
		"ИНН заказчика",
		"Исполнитель",
		"ИНН исполнителя",
		"Дата начала",
		"Дата окончания",
		"Статус",
		"Госуслуги",
		"ОКО",
		"Сполох",
		"Количество АК",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}

	for i, row := range registry.Rows {
		r := tableRow + 1 + i
		c := row.Contract
		implementatorName, implementatorTaxID := "", ""
		if c.Implementator != nil {
			implementatorName = c.Implementator.Name
			implementatorTaxID = c.Implementator.TaxID
		}
		set(fmt.Sprintf("A%d", r), i+1)
		set(fmt.Sprintf("B%d", r), c.CustomerName)
		set(fmt.Sprintf("C%d", r), c.CustomerTaxID)
		set(fmt.Sprintf("D%d", r), implementatorName)
		set(fmt.Sprintf("E%d", r), implementatorTaxID)
		set(fmt.Sprintf("F%d", r), formatDate(c.StartDate))
		set(fmt.Sprintf("G%d", r), formatDate(c.EndDate))
		set(fmt.Sprintf("H%d", r), statusLabel(row.Status))
		set(fmt.Sprintf("I%d", r), yesNo(c.GosServices))
		set(fmt.Sprintf("J%d", r), yesNo(c.Oko))
		set(fmt.Sprintf("K%d", r), yesNo(c.Spolokh))
		set(fmt.Sprintf("L%d", r), len(c.Kits))
	}

	_ = file.SetColWidth(registrySheet, "A", "A", 22)
	_ = file.SetColWidth(registrySheet, "B", "B", 40)
	_ = file.SetColWidth(registrySheet, "C", "C", 16)
	_ = file.SetColWidth(registrySheet, "D", "D", 32)
	_ = file.SetColWidth(registrySheet, "E", "G", 16)
	_ = file.SetColWidth(registrySheet, "H", "L", 14)
	return nil
}

func (g *Generator) writeKits(file *excelize.File, registry model.ContractRegistry) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(kitsSheet, cell, value)
	}

	headers := []string{"Заказчик", "ИНН заказчика", "Номер АК", "Район", "Адрес"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		set(cell, header)
	}

	row := 2
	for _, entry := range registry.Rows {
		for _, kit := range entry.Contract.Kits {
			district := ""
			if kit.District != nil {
				district = kit.District.Name
			}
			set(fmt.Sprintf("A%d", row), entry.Contract.CustomerName)
			set(fmt.Sprintf("B%d", row), entry.Contract.CustomerTaxID)
			set(fmt.Sprintf("C%d", row), kit.Number)
			set(fmt.Sprintf("D%d", row), district)
			set(fmt.Sprintf("E%d", row), kit.Address)
			row++
		}
	}

	_ = file.SetColWidth(kitsSheet, "A", "A", 40)
	_ = file.SetColWidth(kitsSheet, "B", "C", 16)
	_ = file.SetColWidth(kitsSheet, "D", "D", 28)
	_ = file.SetColWidth(kitsSheet, "E", "E", 60)
	return nil
}

func statusLabel(status model.ContractStatus) string {
	switch status {
	case model.ContractStatusActive:
		return "Действующий"
	case model.ContractStatusCompleted:
		return "Завершён"
	default:
		return "Все"
	}
}

func yesNo(value bool) string {
	if value {
		return "да"
	}
	return "нет"
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02.01.2006")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02.01.2006 15:04")
}
