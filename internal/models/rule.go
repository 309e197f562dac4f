package models

// RuleDeclaration is one configured row from the Rules sheet describing a
// check to run: a short code used for dispatch, a human description, the
// target column letters and check-specific parameters.
type RuleDeclaration struct {
	Code        string   `json:"code"`
	Description string   `json:"description"`
	Columns     []string `json:"columns"`
	Params      string   `json:"params"`
}
