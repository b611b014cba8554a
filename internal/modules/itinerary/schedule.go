package itinerary

import (
	"sort"
)

// Day groups the activities that start on one calendar date.
type Day struct {
	// Date is YYYY-MM-DD, or empty for activities without a usable start time.
	Date       string     `json:"date"`
	Activities []Activity `json:"activities"`
}

// GroupByDay orders activities by start time and buckets them per calendar day.
// Activities whose start time cannot be parsed keep their relative order in a trailing
// bucket with an empty Date.
func GroupByDay(activities []Activity) []Day {
	type timed struct {
		a   Activity
		key string
		at  int64
	}
	var scheduled []timed
	var unscheduled []Activity
	for _, a := range activities {
		t, ok := parseTime(a.StartTime)
		if !ok {
			unscheduled = append(unscheduled, a)
			continue
		}
		scheduled = append(scheduled, timed{a: a, key: t.Format("2006-01-02"), at: t.Unix()})
	}
	sort.SliceStable(scheduled, func(i, j int) bool { return scheduled[i].at < scheduled[j].at })

	var days []Day
	for _, s := range scheduled {
		if n := len(days); n > 0 && days[n-1].Date == s.key {
			days[n-1].Activities = append(days[n-1].Activities, s.a)
			continue
		}
		days = append(days, Day{Date: s.key, Activities: []Activity{s.a}})
	}
	if len(unscheduled) > 0 {
		days = append(days, Day{Activities: unscheduled})
	}
	return days
}
