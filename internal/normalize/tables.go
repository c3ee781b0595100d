package normalize

import "github.com/the-momentum/open-wearables-sub000/internal/domain"

// vendorTables holds one lookup table per supported provider.
var vendorTables = map[domain.Provider]vendorTable{
	domain.ProviderApple:    appleTable,
	domain.ProviderGarmin:   garminTable,
	domain.ProviderFitbit:   fitbitTable,
	domain.ProviderPolar:    polarTable,
	domain.ProviderOura:     ouraTable,
	domain.ProviderWhoop:    whoopTable,
	domain.ProviderSuunto:   suuntoTable,
	domain.ProviderWithings: withingsTable,
}

// Apple reports HKWorkoutActivityType* identifiers. Matched by substring so the
// prefix and casing variants collapse onto one row each.
var appleTable = vendorTable{
	contains: []matchRule{
		{"trailrunning", domain.WorkoutRunning},
		{"running", domain.WorkoutRunning},
		{"cycling", domain.WorkoutCycling},
		{"swimming", domain.WorkoutSwimming},
		{"walking", domain.WorkoutWalking},
		{"hiking", domain.WorkoutHiking},
		{"traditionalstrengthtraining", domain.WorkoutStrengthTraining},
		{"functionalstrengthtraining", domain.WorkoutStrengthTraining},
		{"yoga", domain.WorkoutYoga},
		{"pilates", domain.WorkoutPilates},
		{"rowing", domain.WorkoutRowing},
		{"elliptical", domain.WorkoutElliptical},
		{"crosstraining", domain.WorkoutCrossTraining},
		{"highintensityintervaltraining", domain.WorkoutCrossTraining},
		{"tennis", domain.WorkoutTennis},
		{"soccer", domain.WorkoutSoccer},
		{"basketball", domain.WorkoutBasketball},
		{"golf", domain.WorkoutGolf},
		{"snowboarding", domain.WorkoutSnowboarding},
		{"downhillskiing", domain.WorkoutSkiing},
		{"crosscountryskiing", domain.WorkoutSkiing},
		{"surfingsports", domain.WorkoutSurfing},
		{"martialarts", domain.WorkoutMartialArts},
		{"dance", domain.WorkoutDance},
		{"climbing", domain.WorkoutClimbing},
		{"mindandbody", domain.WorkoutMeditation},
	},
	fallback: domain.WorkoutOther,
}

// Garmin uses lowercase snake_case activity keys.
var garminTable = vendorTable{
	exact: map[string]domain.WorkoutType{
		"running":              domain.WorkoutRunning,
		"treadmill_running":    domain.WorkoutRunning,
		"trail_running":        domain.WorkoutRunning,
		"cycling":              domain.WorkoutCycling,
		"indoor_cycling":       domain.WorkoutCycling,
		"mountain_biking":      domain.WorkoutCycling,
		"lap_swimming":         domain.WorkoutSwimming,
		"open_water_swimming":  domain.WorkoutSwimming,
		"walking":              domain.WorkoutWalking,
		"hiking":               domain.WorkoutHiking,
		"strength_training":    domain.WorkoutStrengthTraining,
		"yoga":                 domain.WorkoutYoga,
		"pilates":              domain.WorkoutPilates,
		"indoor_rowing":        domain.WorkoutRowing,
		"rowing":               domain.WorkoutRowing,
		"elliptical":           domain.WorkoutElliptical,
		"cardio":               domain.WorkoutCrossTraining,
		"hiit":                 domain.WorkoutCrossTraining,
		"tennis":               domain.WorkoutTennis,
		"soccer":               domain.WorkoutSoccer,
		"basketball":           domain.WorkoutBasketball,
		"golf":                 domain.WorkoutGolf,
		"resort_skiing":        domain.WorkoutSkiing,
		"cross_country_skiing": domain.WorkoutSkiing,
		"snowboarding":         domain.WorkoutSnowboarding,
		"surfing":              domain.WorkoutSurfing,
		"rock_climbing":        domain.WorkoutClimbing,
		"breathwork":           domain.WorkoutMeditation,
	},
	contains: []matchRule{
		{"running", domain.WorkoutRunning},
		{"cycling", domain.WorkoutCycling},
		{"biking", domain.WorkoutCycling},
		{"swimming", domain.WorkoutSwimming},
		{"skiing", domain.WorkoutSkiing},
	},
	fallback: domain.WorkoutOther,
}

// Fitbit reports human-readable activity names.
var fitbitTable = vendorTable{
	exact: map[string]domain.WorkoutType{
		"run":              domain.WorkoutRunning,
		"treadmill":        domain.WorkoutRunning,
		"bike":             domain.WorkoutCycling,
		"outdoor bike":     domain.WorkoutCycling,
		"spinning":         domain.WorkoutCycling,
		"swim":             domain.WorkoutSwimming,
		"walk":             domain.WorkoutWalking,
		"hike":             domain.WorkoutHiking,
		"weights":          domain.WorkoutStrengthTraining,
		"workout":          domain.WorkoutCrossTraining,
		"circuit training": domain.WorkoutCrossTraining,
		"interval workout": domain.WorkoutCrossTraining,
		"yoga":             domain.WorkoutYoga,
		"pilates":          domain.WorkoutPilates,
		"elliptical":       domain.WorkoutElliptical,
		"tennis":           domain.WorkoutTennis,
		"soccer":           domain.WorkoutSoccer,
		"basketball":       domain.WorkoutBasketball,
		"golf":             domain.WorkoutGolf,
		"martial arts":     domain.WorkoutMartialArts,
		"dancing":          domain.WorkoutDance,
		"meditating":       domain.WorkoutMeditation,
	},
	fallback: domain.WorkoutOther,
}

// Polar reports a sport plus an optional detailed sport info descriptor.
var polarTable = vendorTable{
	composite: map[compositeKey]domain.WorkoutType{
		{"running", "treadmill_running"}:    domain.WorkoutRunning,
		{"running", "trail_running"}:        domain.WorkoutRunning,
		{"running", ""}:                     domain.WorkoutRunning,
		{"cycling", "indoor_cycling"}:       domain.WorkoutCycling,
		{"cycling", "mountain_biking"}:      domain.WorkoutCycling,
		{"cycling", ""}:                     domain.WorkoutCycling,
		{"swimming", "pool_swimming"}:       domain.WorkoutSwimming,
		{"swimming", "open_water_swimming"}: domain.WorkoutSwimming,
		{"swimming", ""}:                    domain.WorkoutSwimming,
		{"walking", ""}:                     domain.WorkoutWalking,
		{"hiking", ""}:                      domain.WorkoutHiking,
		{"strength_training", ""}:           domain.WorkoutStrengthTraining,
		{"fitness_class", "yoga"}:           domain.WorkoutYoga,
		{"fitness_class", "pilates"}:        domain.WorkoutPilates,
		{"fitness_class", ""}:               domain.WorkoutCrossTraining,
		{"indoor_rowing", ""}:               domain.WorkoutRowing,
		{"skiing", "cross-country_skiing"}:  domain.WorkoutSkiing,
		{"skiing", "downhill_skiing"}:       domain.WorkoutSkiing,
		{"skiing", ""}:                      domain.WorkoutSkiing,
		{"snowboarding", ""}:                domain.WorkoutSnowboarding,
		{"other_outdoor", "golf"}:           domain.WorkoutGolf,
		{"mobility", "mobility_static"}:     domain.WorkoutYoga,
	},
	fallback: domain.WorkoutOther,
}

// Oura tags workouts with lowercase activity labels.
var ouraTable = vendorTable{
	exact: map[string]domain.WorkoutType{
		"running":          domain.WorkoutRunning,
		"cycling":          domain.WorkoutCycling,
		"swimming":         domain.WorkoutSwimming,
		"walking":          domain.WorkoutWalking,
		"hiking":           domain.WorkoutHiking,
		"strengthtraining": domain.WorkoutStrengthTraining,
		"yoga":             domain.WorkoutYoga,
		"pilates":          domain.WorkoutPilates,
		"rowing":           domain.WorkoutRowing,
		"crossfit":         domain.WorkoutCrossTraining,
		"tennis":           domain.WorkoutTennis,
		"soccer":           domain.WorkoutSoccer,
		"basketball":       domain.WorkoutBasketball,
		"golf":             domain.WorkoutGolf,
		"skiing":           domain.WorkoutSkiing,
		"snowboarding":     domain.WorkoutSnowboarding,
		"surfing":          domain.WorkoutSurfing,
		"martialarts":      domain.WorkoutMartialArts,
		"dancing":          domain.WorkoutDance,
		"meditation":       domain.WorkoutMeditation,
	},
	fallback: domain.WorkoutOther,
}

// Whoop reports numeric sport ids.
var whoopTable = vendorTable{
	numeric: map[int]domain.WorkoutType{
		0:   domain.WorkoutRunning,
		1:   domain.WorkoutCycling,
		16:  domain.WorkoutBasketball,
		22:  domain.WorkoutGolf,
		24:  domain.WorkoutSoccer,
		33:  domain.WorkoutSwimming,
		34:  domain.WorkoutTennis,
		36:  domain.WorkoutSurfing,
		39:  domain.WorkoutMartialArts,
		43:  domain.WorkoutPilates,
		44:  domain.WorkoutYoga,
		45:  domain.WorkoutStrengthTraining,
		48:  domain.WorkoutCrossTraining,
		51:  domain.WorkoutSkiing,
		52:  domain.WorkoutSnowboarding,
		57:  domain.WorkoutRowing,
		63:  domain.WorkoutWalking,
		64:  domain.WorkoutSurfing,
		71:  domain.WorkoutMeditation,
		82:  domain.WorkoutHiking,
		95:  domain.WorkoutDance,
		102: domain.WorkoutClimbing,
		107: domain.WorkoutElliptical,
	},
	fallback: domain.WorkoutOther,
}

// Suunto uses capitalized activity names in its summaries.
var suuntoTable = vendorTable{
	exact: map[string]domain.WorkoutType{
		"run":                 domain.WorkoutRunning,
		"trail running":       domain.WorkoutRunning,
		"cycling":             domain.WorkoutCycling,
		"mountain biking":     domain.WorkoutCycling,
		"swimming":            domain.WorkoutSwimming,
		"openwater swimming":  domain.WorkoutSwimming,
		"walking":             domain.WorkoutWalking,
		"trekking":            domain.WorkoutHiking,
		"weight training":     domain.WorkoutStrengthTraining,
		"yoga":                domain.WorkoutYoga,
		"indoor rowing":       domain.WorkoutRowing,
		"crosstrainer":        domain.WorkoutElliptical,
		"circuit training":    domain.WorkoutCrossTraining,
		"tennis":              domain.WorkoutTennis,
		"soccer":              domain.WorkoutSoccer,
		"basketball":          domain.WorkoutBasketball,
		"golf":                domain.WorkoutGolf,
		"alpine skiing":       domain.WorkoutSkiing,
		"crosscountry skiing": domain.WorkoutSkiing,
		"snowboarding":        domain.WorkoutSnowboarding,
		"surfing":             domain.WorkoutSurfing,
		"climbing":            domain.WorkoutClimbing,
	},
	fallback: domain.WorkoutOther,
}

// Withings reports numeric workout category codes.
var withingsTable = vendorTable{
	numeric: map[int]domain.WorkoutType{
		1:   domain.WorkoutWalking,
		2:   domain.WorkoutRunning,
		3:   domain.WorkoutHiking,
		6:   domain.WorkoutCycling,
		7:   domain.WorkoutSwimming,
		8:   domain.WorkoutSurfing,
		10:  domain.WorkoutTennis,
		12:  domain.WorkoutSoccer,
		16:  domain.WorkoutBasketball,
		20:  domain.WorkoutDance,
		27:  domain.WorkoutGolf,
		28:  domain.WorkoutYoga,
		29:  domain.WorkoutDance,
		128: domain.WorkoutStrengthTraining,
		187: domain.WorkoutRowing,
		188: domain.WorkoutCrossTraining,
		191: domain.WorkoutPilates,
		192: domain.WorkoutSkiing,
		193: domain.WorkoutSnowboarding,
		272: domain.WorkoutMeditation,
		306: domain.WorkoutClimbing,
		307: domain.WorkoutElliptical,
	},
	fallback: domain.WorkoutOther,
}
