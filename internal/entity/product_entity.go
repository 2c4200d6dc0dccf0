package entity

// RequiredField is a qualification datum the agent must collect before
// quoting, with the canonical question that obtains it.
type RequiredField struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Question string `json:"question"`
}

type Eligibility struct {
	StatesAllowed []string `json:"states_allowed"`
	Notes         string   `json:"notes"`
}

type Objection struct {
	Topic               string   `json:"topic"`
	SuggestedClarifiers []string `json:"suggested_clarifiers"`
}

// ProductConfig is static, externally supplied product data. Immutable
// after load; cached for the process lifetime.
type ProductConfig struct {
	ProductId        string          `json:"product_id"`
	ProductName      string          `json:"product_name"`
	Eligibility      Eligibility     `json:"eligibility"`
	RequiredFields   []RequiredField `json:"required_fields"`
	CommonObjections []Objection     `json:"common_objections,omitempty"`
}

// MissingRequiredFields returns the required field keys absent from the
// extracted map, in declaration order.
func (p *ProductConfig) MissingRequiredFields(extracted map[string]string) []string {
	missing := []string{}
	for _, f := range p.RequiredFields {
		if extracted[f.Key] == "" {
			missing = append(missing, f.Key)
		}
	}
	return missing
}
