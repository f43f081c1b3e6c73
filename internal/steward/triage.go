package steward

// CityHealth holds derived diagnostic signals computed from a
// CitySnapshot. Runs before the advisory call and costs nothing.
type CityHealth struct {
	Broke          bool    // treasury below zero
	DebtPressure   float64 // loan principal relative to treasury
	Unemployment   float64
	Happiness      float64
	DisasterActive bool
	QuietDays      int    // consecutive recent days without a news item
	CrisisLevel    string // "CRITICAL", "WARNING", "WATCH", "HEALTHY"
}

// Triage computes a CityHealth from the snapshot's data.
func Triage(snap *CitySnapshot) *CityHealth {
	h := &CityHealth{
		Broke:          snap.Stats.Money < 0,
		Unemployment:   snap.Stats.Jobs.Unemployment,
		Happiness:      snap.Stats.Happiness,
		DisasterActive: snap.Status.Disaster != nil,
	}

	if snap.Stats.Money > 0 {
		h.DebtPressure = snap.Stats.LoanPrincipal / snap.Stats.Money
	} else if snap.Stats.LoanPrincipal > 0 {
		h.DebtPressure = 10 // broke with debt: maximally pressured
	}

	// Quiet streak: days since the newest feed item.
	if len(snap.News) > 0 {
		newest := snap.News[len(snap.News)-1]
		h.QuietDays = snap.Status.Day - newest.Day
		if h.QuietDays < 0 {
			h.QuietDays = 0
		}
	} else {
		h.QuietDays = snap.Status.Day
	}

	h.CrisisLevel = "HEALTHY"
	switch {
	case h.Broke && snap.Stats.LoanPrincipal > snap.Stats.Money+2000:
		h.CrisisLevel = "CRITICAL"
	case h.Broke:
		h.CrisisLevel = "WARNING"
	case h.Happiness < 25 || h.Unemployment > 0.4:
		h.CrisisLevel = "WARNING"
	case h.DebtPressure > 2 || h.Happiness < 40:
		h.CrisisLevel = "WATCH"
	}

	return h
}
