package core

// TransactionFilter narrows a transaction listing. Zero bounds are open.
type TransactionFilter struct {
	From Date
	To   Date
	Type TransactionType
}

// InRange builds a filter for an inclusive date range.
func InRange(r DateRange) TransactionFilter {
	return TransactionFilter{From: r.Start, To: r.End}
}

func (f TransactionFilter) Matches(t Transaction) bool {
	if !f.From.IsZero() && t.Date.Before(f.From.Time) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To.Time) {
		return false
	}
	return f.Type == "" || t.Type == f.Type
}
