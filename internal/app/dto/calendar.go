package dto

import (
	"staynest/internal/domain/availability"
)

type CalendarDay struct {
	Date      string `json:"date"`
	Available bool   `json:"available"`
}

type Calendar struct {
	ListingID string        `json:"listing_id"`
	Days      []CalendarDay `json:"days"`
}

func MapCalendar(listingID string, days []availability.Day) Calendar {
	out := Calendar{ListingID: listingID, Days: make([]CalendarDay, 0, len(days))}
	for _, d := range days {
		out.Days = append(out.Days, CalendarDay{
			Date:      d.Date.Format("2006-01-02"),
			Available: d.Available,
		})
	}
	return out
}
