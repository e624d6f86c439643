package excel

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nurpe/contracts-service/internal/model"
)

func TestGenerator_Generate(t *testing.T) {
	registry := model.ContractRegistry{
		GeneratedAt: time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC),
		Status:      model.ContractStatusCompleted,
		Rows: []model.RegistryRow{{
			Status: model.ContractStatusCompleted,
			Contract: model.Contract{
				CustomerName:  "ООО Ромашка",
				CustomerTaxID: "7701234567",
				StartDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				EndDate:       time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
				Oko:           true,
				Implementator: &model.Implementator{Name: "АО Связь", TaxID: "5401234567"},
				Kits: []model.SubscriberKit{
					{Number: 1, Address: "ул. Ленина, 1", District: &model.District{Name: "Центральный"}},
					{Number: 2, Address: "ул. Мира, 5"},
				},
			},
		}},
	}

	content, err := NewGenerator().Generate(registry)
	require.NoError(t, err)

	file, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer file.Close()

	assert.Equal(t, []string{registrySheet, kitsSheet}, file.GetSheetList())

	value := func(sheet, cell string) string {
		v, err := file.GetCellValue(sheet, cell)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "Завершён", value(registrySheet, "B4"))
	assert.Equal(t, "1", value(registrySheet, "B5"))
	assert.Equal(t, "ООО Ромашка", value(registrySheet, "B8"))
	assert.Equal(t, "АО Связь", value(registrySheet, "D8"))
	assert.Equal(t, "31.01.2024", value(registrySheet, "G8"))
	assert.Equal(t, "да", value(registrySheet, "J8"))
	assert.Equal(t, "2", value(registrySheet, "L8"))

	assert.Equal(t, "Центральный", value(kitsSheet, "D2"))
	assert.Equal(t, "2", value(kitsSheet, "C3"))
	assert.Equal(t, "", value(kitsSheet, "D3"))
}
