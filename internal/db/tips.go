package db

// DefaultTips is the reference tip catalog seeded by migrations.
func DefaultTips() []Tip {
	return []Tip{
		{ID: 1, Title: "Unplug Idle Electronics", Description: "Devices on standby still draw power. Unplug chargers and entertainment systems when not in use.", ImpactLevel: ImpactMedium, EstimatedSaving: "$5-10/month"},
		{ID: 2, Title: "Switch to LED Lighting", Description: "LED bulbs use up to 75% less energy than incandescent lighting and last far longer.", ImpactLevel: ImpactMedium, EstimatedSaving: "$8-15/month"},
		{ID: 3, Title: "Run Full Loads Only", Description: "Wait until the dishwasher and washing machine are full before running a cycle.", ImpactLevel: ImpactLow, EstimatedSaving: "$3-6/month"},
		{ID: 4, Title: "Wash With Cold Water", Description: "Heating water accounts for most of a washing machine's energy. Cold cycles clean most loads well.", ImpactLevel: ImpactMedium, EstimatedSaving: "$6-12/month"},
		{ID: 5, Title: "Service Your HVAC Filters", Description: "Clogged filters make the system work harder. Replace or clean filters every one to three months.", ImpactLevel: ImpactHigh, EstimatedSaving: "$10-20/month"},
		{ID: 6, Title: "Use a Programmable Thermostat", Description: "Schedule heating and cooling around the hours the home is occupied.", ImpactLevel: ImpactHigh, EstimatedSaving: "$15-30/month"},
		{ID: 7, Title: "Seal Drafts Around Windows", Description: "Weatherstripping and caulk keep conditioned air inside and reduce HVAC run time.", ImpactLevel: ImpactHigh, EstimatedSaving: "$10-25/month"},
		{ID: 8, Title: "Air-Dry Laundry", Description: "Clothes dryers are among the most power hungry appliances. Line-dry when weather allows.", ImpactLevel: ImpactLow, EstimatedSaving: "$4-8/month"},
	}
}
