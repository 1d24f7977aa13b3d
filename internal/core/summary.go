package core

// DayRow is one record selected by a date query, tagged with its source
// sequence and the index it held at query time. Indices are resolved
// fresh on every query and must not be cached across mutations.
type DayRow struct {
	Source Source
	Index  int
	Record Record
}

// DaySummary is the result of a date query: the matching rows in ledger
// order plus the income/expense aggregates for the day.
type DaySummary struct {
	Date    DateKey
	Rows    []DayRow
	Income  Money
	Expense Money
}

// Net returns income minus expense. It is negative on days where the
// stall spent more than it took in.
func (s DaySummary) Net() Money {
	return s.Income.Sub(s.Expense)
}
