package utils

import (
	"strings"
	"time"

	_ "time/tzdata"

	"github.com/go-universal/jalaali"
)

const (
	CalendarGregorian = "gregorian"
	CalendarJalali    = "jalali"
)

// LoadLocation resolves an IANA zone name, falling back to UTC.
func LoadLocation(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC
	}
	if strings.EqualFold(name, "Asia/Tehran") {
		return jalaali.TehranTz()
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Timestamp returns "02.01.2006 15:04 MST" or, for the jalali calendar, "1404/10/09 - 16:40".
func Timestamp(t time.Time, loc *time.Location, calendar string) string {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	if strings.EqualFold(calendar, CalendarJalali) {
		return jalaali.New(t).Format("2006/01/02 - 15:04")
	}
	return t.Format("02.01.2006 15:04 MST")
}
