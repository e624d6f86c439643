package model

import "time"

// ContractRegistry данные для выгрузки реестра договоров
type ContractRegistry struct {
	GeneratedAt time.Time
	Query       string
	Status      ContractStatus
	Rows        []RegistryRow
}

type RegistryRow struct {
	Contract Contract
	Status   ContractStatus
}

// ContractCard данные карточки договора для печати
type ContractCard struct {
	Contract    Contract
	Status      ContractStatus
	Files       []string
	GeneratedAt time.Time
}
