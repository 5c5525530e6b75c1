// Package progress turns survey status transitions into daily counter
// deltas.
//
// Counters are keyed by (campaign, day). A transition removes the survey from
// the counter of its old status on the day it was counted under, and adds it
// to the counter of its new status on the effective day. Applying the deltas
// atomically keeps every counter equal to a recount of surveys.
package progress

import (
	"time"

	"github.com/dalemusser/surveytrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transition describes one survey status change. From is empty for a new
// survey; To is empty for a removed one.
type Transition struct {
	CampaignID primitive.ObjectID
	From       models.SurveyStatus
	To         models.SurveyStatus

	// Date is the bucket the survey is counted under after the transition.
	Date string
	// PrevDate is the bucket it was counted under before; empty means Date.
	PrevDate string
}

// Delta is a signed change to one counter.
type Delta struct {
	CampaignID primitive.ObjectID
	Date       string
	Status     models.SurveyStatus
	Change     int
}

// Plan returns the counter deltas for t. A transition that changes neither
// status nor day yields no deltas.
func Plan(t Transition) []Delta {
	prev := t.PrevDate
	if prev == "" {
		prev = t.Date
	}
	if t.From == t.To && prev == t.Date {
		return nil
	}
	var out []Delta
	if t.From.Valid() {
		out = append(out, Delta{CampaignID: t.CampaignID, Date: prev, Status: t.From, Change: -1})
	}
	if t.To.Valid() {
		out = append(out, Delta{CampaignID: t.CampaignID, Date: t.Date, Status: t.To, Change: +1})
	}
	return out
}

// Clock assigns surveys to day buckets in a fixed time zone.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock returns a Clock for the named IANA zone.
func NewClock(zone string) (*Clock, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, err
	}
	return &Clock{loc: loc, now: time.Now}, nil
}

// FixedClock returns a Clock whose "now" is always t. Used in tests.
func FixedClock(loc *time.Location, t time.Time) *Clock {
	return &Clock{loc: loc, now: func() time.Time { return t }}
}

// Location returns the clock's zone.
func (c *Clock) Location() *time.Location { return c.loc }

// Now returns the clock's current time.
func (c *Clock) Now() time.Time { return c.now() }

// Today returns the current day bucket.
func (c *Clock) Today() string {
	return c.now().In(c.loc).Format(models.DateLayout)
}

// Day formats t as a day bucket in the clock's zone.
func (c *Clock) Day(t time.Time) string {
	return t.In(c.loc).Format(models.DateLayout)
}

// EffectiveDate is the bucket a survey belongs in: the completion time for
// completed surveys, else the submission time, else today.
func (c *Clock) EffectiveDate(s models.Survey) string {
	if s.Status == models.StatusCompleted && s.CompletedAt != nil {
		return c.Day(*s.CompletedAt)
	}
	if s.SubmittedAt != nil {
		return c.Day(*s.SubmittedAt)
	}
	return c.Today()
}
