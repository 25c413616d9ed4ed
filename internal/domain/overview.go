package domain

import (
	"strings"
	"time"
)

type ServerStatus string

const (
	ServerOnline  ServerStatus = "online"
	ServerOffline ServerStatus = "offline"
)

// DailyCount is the number of registrations on one calendar day.
type DailyCount struct {
	Date  string `json:"date"`
	Users int    `json:"users"`
}

// Overview is the KPI block of the dashboard landing page.
type Overview struct {
	ServerStatus  ServerStatus `json:"serverStatus"`
	TotalUsers    int          `json:"totalUsers"`
	Registrations []DailyCount `json:"registrations"`
}

// RegistrationSeries counts entries of the given user type per day over the
// last `days` days ending at now (inclusive), oldest first. Entries without a
// parseable created_at or outside the window are ignored.
func RegistrationSeries(raws []RawUser, userType string, now time.Time, days int) []DailyCount {
	if days <= 0 {
		return []DailyCount{}
	}
	series := make([]DailyCount, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		d := now.AddDate(0, 0, -(days - 1 - i)).Format(dateLayout)
		series[i] = DailyCount{Date: d}
		index[d] = i
	}

	for _, r := range raws {
		if !strings.EqualFold(strings.TrimSpace(string(r.UserType)), userType) {
			continue
		}
		day, ok := createdDay(r.CreatedAt)
		if !ok {
			continue
		}
		if i, ok := index[day]; ok {
			series[i].Users++
		}
	}
	return series
}

// BuildOverview computes the online KPI block from a fetched collection.
func BuildOverview(raws []RawUser, now time.Time) Overview {
	return Overview{
		ServerStatus:  ServerOnline,
		TotalUsers:    len(raws),
		Registrations: RegistrationSeries(raws, "google", now, 30),
	}
}

// OfflineOverview is reported when the collection could not be fetched.
func OfflineOverview() Overview {
	return Overview{
		ServerStatus:  ServerOffline,
		Registrations: []DailyCount{},
	}
}
