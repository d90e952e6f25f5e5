package market

import (
	"github.com/meenmo/ccrfast/calendar"
)

// LegType distinguishes floating vs fixed.
type LegType string

const (
	LegFloating LegType = "FLOATING"
	LegFixed    LegType = "FIXED"
)

// Frequency enumerates payment frequencies in months.
type Frequency int

const (
	FreqAnnual    Frequency = 12
	FreqSemi      Frequency = 6
	FreqQuarterly Frequency = 3
	FreqMonthly   Frequency = 1
)

// RollConvention for month-end handling.
type RollConvention string

const (
	RollNone    RollConvention = ""
	BackwardEOM RollConvention = "BACKWARD_EOM"
)

// ScheduleDirection selects whether periods roll from the effective date or from maturity.
type ScheduleDirection string

const (
	ScheduleForward  ScheduleDirection = "FORWARD"
	ScheduleBackward ScheduleDirection = "BACKWARD"
)

// DayCount enum.
type DayCount string

const (
	Act360  DayCount = "ACT/360"
	Act365F DayCount = "ACT/365F"
	ActAct  DayCount = "ACT/ACT"
	Dc30360 DayCount = "30/360"
)

// LegConvention captures the schedule and accrual settings of one leg.
type LegConvention struct {
	LegType                 LegType
	ReferenceRate           ReferenceIndex
	DayCount                DayCount
	PayFrequency            Frequency
	PayDelayDays            int
	RollConvention          RollConvention
	ScheduleDirection       ScheduleDirection
	Calendar                calendar.CalendarID
	IncludeInitialPrincipal bool
	IncludeFinalPrincipal   bool
}
