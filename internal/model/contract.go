package model

import (
	"time"

	"github.com/google/uuid"
)

type ContractStatus string

const (
	ContractStatusActive    ContractStatus = "active"
	ContractStatusCompleted ContractStatus = "completed"
)

func (s ContractStatus) Valid() bool {
	return s == ContractStatusActive || s == ContractStatusCompleted
}

// FileSlots число слотов вложений у договора
const FileSlots = 3

type Contract struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey"`
	CustomerName    string         `gorm:"type:varchar(255);not null"`
	CustomerTaxID   string         `gorm:"column:customer_tax_id;type:varchar(12);not null;index"`
	StartDate       time.Time      `gorm:"type:date;not null"`
	EndDate         time.Time      `gorm:"type:date;not null;index"`
	ImplementatorID uuid.UUID      `gorm:"type:uuid;not null;index"`
	GosServices     bool           `gorm:"not null;default:false"`
	Oko             bool           `gorm:"not null;default:false"`
	Spolokh         bool           `gorm:"not null;default:false"`
	File1           *string        `gorm:"type:varchar(512)"`
	File2           *string        `gorm:"type:varchar(512)"`
	File3           *string        `gorm:"type:varchar(512)"`
	Status          ContractStatus `gorm:"type:varchar(16);not null;index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Implementator *Implementator  `gorm:"foreignKey:ImplementatorID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Kits          []SubscriberKit `gorm:"foreignKey:ContractID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// Files возвращает ключи хранилища по слотам, nil для пустого слота
func (c *Contract) Files() [FileSlots]*string {
	return [FileSlots]*string{c.File1, c.File2, c.File3}
}

// SetFile пишет ключ в слот 1..3.
func (c *Contract) SetFile(slot int, key *string) {
	switch slot {
	case 1:
		c.File1 = key
	case 2:
		c.File2 = key
	case 3:
		c.File3 = key
	}
}

// SubscriberKit абонентский комплект (АК) договора
type SubscriberKit struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	ContractID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_kit_contract_number,priority:1"`
	Number     int       `gorm:"not null;uniqueIndex:uq_kit_contract_number,priority:2"`
	DistrictID uuid.UUID `gorm:"type:uuid;not null;index"`
	Address    string    `gorm:"type:varchar(500);not null;default:''"`

	District *District `gorm:"foreignKey:DistrictID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}
