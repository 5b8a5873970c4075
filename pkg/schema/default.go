package schema

// Default returns the built-in financial crime vocabulary.
func Default() *Vocabulary {
	v, err := New(
		[]NodeType{
			{Label: "LegalEntity", Description: "corporates, subsidiaries, SPVs"},
			{Label: "Person", Description: "signatories, UBOs, employees"},
			{Label: "Account", Description: "bank accounts"},
			{Label: "Facility", Description: "credit facilities, loans"},
			{Label: "Transaction", Description: "high-value transactions"},
			{Label: "Branch", Description: "organizational units"},
			{Label: "Region", Description: "organizational units"},
			{Label: "Instrument", Description: "securities, derivatives"},
			{Label: "CompanyRegistry", Description: "DUNS, LEI"},
			{Label: "SanctionsList", Description: "sanctions entries"},
			{Label: "Event", Description: "alerts, investigations"},
			{Label: "Product", Description: "trade finance, FX"},
		},
		[]RelationshipType{
			{Type: "HAS_ACCOUNT"},
			{Type: "IS_SIGNATORY_OF"},
			{Type: "OWNS"},
			{Type: "BORROWER_OF"},
			{Type: "HAS_EXPOSURE"},
			{Type: "FROM"},
			{Type: "TO"},
			{Type: "REGISTERED_AT"},
			{Type: "HAS_ALIAS"},
			{Type: "RELATED_TO"},
		},
	)
	if err != nil {
		panic(err)
	}
	return v
}
