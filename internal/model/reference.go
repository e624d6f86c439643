package model

import (
	"github.com/google/uuid"
)

// Region справочник регионов
type Region struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"type:varchar(150);not null;uniqueIndex" json:"name"`
	Code *string   `gorm:"type:varchar(10);uniqueIndex" json:"code,omitempty"`
}

// District район, принадлежит ровно одному региону
type District struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string    `gorm:"type:varchar(150);not null;uniqueIndex:uq_district_region_name,priority:2" json:"name"`
	RegionID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_district_region_name,priority:1" json:"region_id"`
	Population *int      `json:"population,omitempty"`

	Region *Region `gorm:"foreignKey:RegionID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"region,omitempty"`
}

type ContractType struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(200);not null;uniqueIndex" json:"name"`
	Description string    `gorm:"type:text" json:"description"`

	Works []Work `gorm:"foreignKey:ContractTypeID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"works,omitempty"`
}

// Work позиция каталога работ, к договорам не привязана
type Work struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string    `gorm:"type:varchar(200);not null;uniqueIndex:uq_work_type_name,priority:2" json:"name"`
	ContractTypeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_work_type_name,priority:1" json:"contract_type_id"`
	Price          *float64  `gorm:"type:numeric(12,2)" json:"price,omitempty"`
}

type Implementator struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name  string    `gorm:"type:varchar(255);not null" json:"name"`
	TaxID string    `gorm:"column:tax_id;type:varchar(12);not null;uniqueIndex" json:"tax_id"`
}
