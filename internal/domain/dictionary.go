package domain

const defaultInvoiceTemplate = "Счет по заявке {track_number}; клиент {client_name}; сумма {amount}"

// DefaultStatuses is the status dictionary a fresh installation starts with.
func DefaultStatuses() []Status {
	tpl := defaultInvoiceTemplate
	return []Status{
		{Code: "NEW", Name: "Новая", Kind: StatusKindDefault, SortOrder: 10},
		{Code: "IN_PROGRESS", Name: "В работе", Kind: StatusKindDefault, SortOrder: 20},
		{Code: "WAITING_CLIENT", Name: "Ожидает клиента", Kind: StatusKindDefault, SortOrder: 30},
		{Code: "BILLING", Name: "Выставлен счет", Kind: StatusKindInvoice, InvoiceTemplate: &tpl, SortOrder: 40},
		{Code: "PAID", Name: "Оплачено", Kind: StatusKindPaid, SortOrder: 50},
		{Code: "RESOLVED", Name: "Решена", Kind: StatusKindDefault, IsTerminal: true, SortOrder: 60},
		{Code: "CLOSED", Name: "Закрыта", Kind: StatusKindDefault, IsTerminal: true, SortOrder: 70},
		{Code: "REJECTED", Name: "Отклонена", Kind: StatusKindDefault, IsTerminal: true, SortOrder: 80},
	}
}
