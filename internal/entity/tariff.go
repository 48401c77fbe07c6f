package entity

// Tariff is one row of the INA-CBGs reference tariff table.
type Tariff struct {
	DiagnosisCode string
	Amount        float64
	Description   string
}
