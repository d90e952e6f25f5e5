package market

import "github.com/meenmo/ccrfast/calendar"

// Preset leg conventions for EUR and USD swaps and for CDS premium legs.
var (
	ESTRFloat = LegConvention{
		LegType:           LegFloating,
		ReferenceRate:     ESTR,
		DayCount:          Act360,
		PayFrequency:      FreqAnnual,
		PayDelayDays:      1,
		RollConvention:    BackwardEOM,
		ScheduleDirection: ScheduleBackward,
		Calendar:          calendar.TARGET,
	}

	EURIBOR3MFloat = LegConvention{
		LegType:           LegFloating,
		ReferenceRate:     EURIBOR3M,
		DayCount:          Act360,
		PayFrequency:      FreqQuarterly,
		RollConvention:    BackwardEOM,
		ScheduleDirection: ScheduleBackward,
		Calendar:          calendar.TARGET,
	}

	EURIBOR6MFloat = LegConvention{
		LegType:           LegFloating,
		ReferenceRate:     EURIBOR6M,
		DayCount:          Act360,
		PayFrequency:      FreqSemi,
		RollConvention:    BackwardEOM,
		ScheduleDirection: ScheduleBackward,
		Calendar:          calendar.TARGET,
	}

	EURFixedAnnual = LegConvention{
		LegType:           LegFixed,
		DayCount:          Dc30360,
		PayFrequency:      FreqAnnual,
		RollConvention:    BackwardEOM,
		ScheduleDirection: ScheduleBackward,
		Calendar:          calendar.TARGET,
	}

	SOFRFloat = LegConvention{
		LegType:           LegFloating,
		ReferenceRate:     SOFR,
		DayCount:          Act360,
		PayFrequency:      FreqAnnual,
		PayDelayDays:      2,
		RollConvention:    BackwardEOM,
		ScheduleDirection: ScheduleBackward,
		Calendar:          calendar.USD,
	}

	USDFixedAnnual = LegConvention{
		LegType:           LegFixed,
		DayCount:          Act360,
		PayFrequency:      FreqAnnual,
		PayDelayDays:      2,
		RollConvention:    BackwardEOM,
		ScheduleDirection: ScheduleBackward,
		Calendar:          calendar.USD,
	}

	// CDSPremium is the standard quarterly ACT/360 premium leg.
	CDSPremium = LegConvention{
		LegType:           LegFixed,
		DayCount:          Act360,
		PayFrequency:      FreqQuarterly,
		ScheduleDirection: ScheduleForward,
		Calendar:          calendar.TARGET,
	}
)

// IRSPreset groups the fixed and floating leg conventions of a vanilla swap.
type IRSPreset struct {
	FixedLeg LegConvention
	FloatLeg LegConvention
}

var (
	EURIRS6M = IRSPreset{FixedLeg: EURFixedAnnual, FloatLeg: EURIBOR6MFloat}
	EURIRS3M = IRSPreset{FixedLeg: EURFixedAnnual, FloatLeg: EURIBOR3MFloat}
	EUROIS   = IRSPreset{FixedLeg: EURFixedAnnual, FloatLeg: ESTRFloat}
	USDOIS   = IRSPreset{FixedLeg: USDFixedAnnual, FloatLeg: SOFRFloat}
)

// IRSPresets looks presets up by name, as used in portfolio files.
var IRSPresets = map[string]IRSPreset{
	"EUR_IRS_6M": EURIRS6M,
	"EUR_IRS_3M": EURIRS3M,
	"EUR_OIS":    EUROIS,
	"USD_OIS":    USDOIS,
}
