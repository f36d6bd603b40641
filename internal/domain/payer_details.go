package domain

// PayerDetails is the invoice requisites document stored encrypted at rest.
type PayerDetails struct {
	TrackNumber      string `json:"track_number,omitempty" validate:"omitempty,max=64"`
	ClientName       string `json:"client_name,omitempty" validate:"omitempty,max=255"`
	Email            string `json:"email,omitempty" validate:"omitempty,email"`
	Phone            string `json:"phone,omitempty" validate:"omitempty,max=32"`
	INN              string `json:"inn,omitempty" validate:"omitempty,numeric,min=10,max=12"`
	KPP              string `json:"kpp,omitempty" validate:"omitempty,numeric,len=9"`
	Address          string `json:"address,omitempty" validate:"omitempty,max=512"`
	BankName         string `json:"bank_name,omitempty" validate:"omitempty,max=255"`
	BIK              string `json:"bik,omitempty" validate:"omitempty,numeric,len=9"`
	Account          string `json:"account,omitempty" validate:"omitempty,numeric,len=20"`
	Amount           string `json:"amount,omitempty" validate:"omitempty,max=32"`
	TemplateRendered string `json:"template_rendered,omitempty" validate:"omitempty,max=4000"`
}
