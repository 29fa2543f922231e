package indicators

import "github.com/greenarc/esgpipe/internal/models"

// Catalog returns the built-in BRSR indicator set. Codes are stable across
// releases: the extraction store keys on them, so renaming one orphans its
// history. Bounds are normalization constants for large listed companies,
// not physical limits; values outside them clamp to 0 or 100.
func Catalog() []models.Indicator {
	return []models.Indicator{
		// Attribute 1: emissions and air quality.
		{Code: "E1_GHG_SCOPE1", Attribute: 1, ParameterName: "Total Scope 1 GHG emissions", Unit: "tCO2e", Keywords: "scope 1 direct greenhouse gas carbon emissions", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 1.5, Min: 0, Max: 5_000_000},
		{Code: "E1_GHG_SCOPE2", Attribute: 1, ParameterName: "Total Scope 2 GHG emissions", Unit: "tCO2e", Keywords: "scope 2 indirect purchased electricity emissions", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 1.5, Min: 0, Max: 2_000_000},
		{Code: "E1_GHG_SCOPE3", Attribute: 1, ParameterName: "Total Scope 3 GHG emissions", Unit: "tCO2e", Keywords: "scope 3 value chain emissions upstream downstream", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 1.0, Min: 0, Max: 20_000_000},
		{Code: "E1_GHG_INTENSITY", Attribute: 1, ParameterName: "GHG emission intensity of turnover", Unit: "tCO2e per crore INR", Keywords: "emission intensity revenue turnover", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 1.2, Min: 0, Max: 100},
		{Code: "E1_NOX", Attribute: 1, ParameterName: "Nitrogen oxide emissions", Unit: "tonnes", Keywords: "NOx air emissions", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 0.8, Min: 0, Max: 50_000},
		{Code: "E1_SOX", Attribute: 1, ParameterName: "Sulphur oxide emissions", Unit: "tonnes", Keywords: "SOx air emissions", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 0.8, Min: 0, Max: 50_000},
		{Code: "E1_PM", Attribute: 1, ParameterName: "Particulate matter emissions", Unit: "tonnes", Keywords: "particulate matter PM air quality", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 0.8, Min: 0, Max: 20_000},

		// Attribute 2: energy.
		{Code: "E2_ENERGY_TOTAL", Attribute: 2, ParameterName: "Total energy consumption", Unit: "GJ", Keywords: "energy consumed gigajoules", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 1.0, Min: 0, Max: 50_000_000},
		{Code: "E2_RENEWABLE_PCT", Attribute: 2, ParameterName: "Share of energy from renewable sources", Unit: "percent", Keywords: "renewable energy solar wind share percentage", Kind: models.ValueNumeric, Polarity: models.HigherIsBetter, Weight: 1.5, Min: 0, Max: 100},
		{Code: "E2_ENERGY_INTENSITY", Attribute: 2, ParameterName: "Energy intensity of turnover", Unit: "GJ per crore INR", Keywords: "energy intensity revenue turnover", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 1.2, Min: 0, Max: 10_000},
		{Code: "E2_RENEWABLE_ELECTRICITY", Attribute: 2, ParameterName: "Electricity consumption from renewable sources", Unit: "GJ", Keywords: "renewable electricity green power purchase", Kind: models.ValueNumeric, Polarity: models.HigherIsBetter, Weight: 1.0, Min: 0, Max: 10_000_000},
		{Code: "E2_FUEL_TOTAL", Attribute: 2, ParameterName: "Total fuel consumption", Unit: "GJ", Keywords: "fuel coal diesel natural gas consumption", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 0.8, Min: 0, Max: 20_000_000},
		{Code: "E2_ENERGY_SAVED", Attribute: 2, ParameterName: "Energy saved through conservation initiatives", Unit: "GJ", Keywords: "energy savings efficiency conservation", Kind: models.ValueNumeric, Polarity: models.HigherIsBetter, Weight: 0.8, Min: 0, Max: 1_000_000},

		// Attribute 3: water and effluents.
		{Code: "E3_WATER_WITHDRAWAL", Attribute: 3, ParameterName: "Total water withdrawal", Unit: "kilolitres", Keywords: "water withdrawal surface groundwater", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 1.2, Min: 0, Max: 100_000_000},
		{Code: "E3_WATER_CONSUMPTION", Attribute: 3, ParameterName: "Total water consumption", Unit: "kilolitres", Keywords: "water consumed usage", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 1.2, Min: 0, Max: 50_000_000},
		{Code: "E3_WATER_INTENSITY", Attribute: 3, ParameterName: "Water intensity of turnover", Unit: "kilolitres per crore INR", Keywords: "water intensity revenue turnover", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 1.0, Min: 0, Max: 10_000},
		{Code: "E3_WATER_RECYCLED_PCT", Attribute: 3, ParameterName: "Share of water recycled and reused", Unit: "percent", Keywords: "water recycled reused treatment percentage", Kind: models.ValueNumeric, Polarity: models.HigherIsBetter, Weight: 1.5, Min: 0, Max: 100},
		{Code: "E3_WATER_DISCHARGED", Attribute: 3, ParameterName: "Total water discharged", Unit: "kilolitres", Keywords: "effluent discharge wastewater treated", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 0.8, Min: 0, Max: 50_000_000},
		{Code: "E3_ZLD_STATUS", Attribute: 3, ParameterName: "Zero liquid discharge implementation", Keywords: "zero liquid discharge ZLD", Kind: models.ValueText, Polarity: models.HigherIsBetter, Weight: 0.5},

		// Attribute 4: waste and materials.
		{Code: "E4_WASTE_TOTAL", Attribute: 4, ParameterName: "Total waste generated", Unit: "tonnes", Keywords: "waste generated total", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 1.2, Min: 0, Max: 10_000_000},
		{Code: "E4_WASTE_HAZARDOUS", Attribute: 4, ParameterName: "Hazardous waste generated", Unit: "tonnes", Keywords: "hazardous waste disposal", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 1.2, Min: 0, Max: 1_000_000},
		{Code: "E4_WASTE_RECYCLED_PCT", Attribute: 4, ParameterName: "Share of waste recycled or reused", Unit: "percent", Keywords: "waste recycled recovered reused percentage", Kind: models.ValueNumeric, Polarity: models.HigherIsBetter, Weight: 1.5, Min: 0, Max: 100},
		{Code: "E4_WASTE_LANDFILL", Attribute: 4, ParameterName: "Waste disposed to landfill", Unit: "tonnes", Keywords: "landfill disposal waste", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 1.0, Min: 0, Max: 5_000_000},
		{Code: "E4_PLASTIC_WASTE", Attribute: 4, ParameterName: "Plastic waste generated", Unit: "tonnes", Keywords: "plastic waste packaging", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 0.8, Min: 0, Max: 500_000},
		{Code: "E4_RECYCLED_INPUT_PCT", Attribute: 4, ParameterName: "Share of recycled or reused input material", Unit: "percent", Keywords: "recycled input material sourcing percentage", Kind: models.ValueNumeric, Polarity: models.HigherIsBetter, Weight: 1.0, Min: 0, Max: 100},
		{Code: "E4_EPR_STATUS", Attribute: 4, ParameterName: "Extended producer responsibility plan", Keywords: "extended producer responsibility EPR waste collection", Kind: models.ValueText, Polarity: models.HigherIsBetter, Weight: 0.5},

		// Attribute 5: workforce wellbeing and safety.
		{Code: "S5_LTIFR", Attribute: 5, ParameterName: "Lost time injury frequency rate", Unit: "per million hours worked", Keywords: "LTIFR lost time injury safety", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 1.5, Min: 0, Max: 20},
		{Code: "S5_FATALITIES", Attribute: 5, ParameterName: "Work-related fatalities", Unit: "count", Keywords: "fatalities deaths workplace safety", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 1.5, Min: 0, Max: 50},
		{Code: "S5_INJURIES", Attribute: 5, ParameterName: "Recordable work-related injuries", Unit: "count", Keywords: "recordable injuries accidents workplace", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 1.0, Min: 0, Max: 1_000},
		{Code: "S5_HEALTH_COVER_PCT", Attribute: 5, ParameterName: "Share of employees covered by health insurance", Unit: "percent", Keywords: "health insurance coverage employees percentage", Kind: models.ValueNumeric, Polarity: models.HigherIsBetter, Weight: 1.0, Min: 0, Max: 100},
		{Code: "S5_TRAINING_HOURS", Attribute: 5, ParameterName: "Average training hours per employee", Unit: "hours", Keywords: "training hours skill development employee", Kind: models.ValueNumeric, Polarity: models.HigherIsBetter, Weight: 1.0, Min: 0, Max: 100},
		{Code: "S5_SAFETY_TRAINING_PCT", Attribute: 5, ParameterName: "Share of workers given safety training", Unit: "percent", Keywords: "safety training workers percentage", Kind: models.ValueNumeric, Polarity: models.HigherIsBetter, Weight: 1.0, Min: 0, Max: 100},
		{Code: "S5_WELLBEING_SPEND_PCT", Attribute: 5, ParameterName: "Spending on employee wellbeing as share of revenue", Unit: "percent", Keywords: "wellbeing measures cost spending revenue", Kind: models.ValueNumeric, Polarity: models.HigherIsBetter, Weight: 0.8, Min: 0, Max: 10},

		// Attribute 6: diversity and inclusion.
		{Code: "S6_WOMEN_WORKFORCE_PCT", Attribute: 6, ParameterName: "Share of women in total workforce", Unit: "percent", Keywords: "women female employees workforce percentage", Kind: models.ValueNumeric, Polarity: models.HigherIsBetter, Weight: 1.5, Min: 0, Max: 100},
		{Code: "S6_WOMEN_MGMT_PCT", Attribute: 6, ParameterName: "Share of women in management", Unit: "percent", Keywords: "women management leadership key positions", Kind: models.ValueNumeric, Polarity: models.HigherIsBetter, Weight: 1.2, Min: 0, Max: 100},
		{Code: "S6_WOMEN_BOARD_PCT", Attribute: 6, ParameterName: "Share of women on the board", Unit: "percent", Keywords: "women directors board percentage", Kind: models.ValueNumeric, Polarity: models.HigherIsBetter, Weight: 1.2, Min: 0, Max: 100},
		{Code: "S6_DISABLED_PCT", Attribute: 6, ParameterName: "Share of employees with disabilities", Unit: "percent", Keywords: "differently abled disabilities employees percentage", Kind: models.ValueNumeric, Polarity: models.HigherIsBetter, Weight: 1.0, Min: 0, Max: 100},
		{Code: "S6_PAY_GAP", Attribute: 6, ParameterName: "Median gender pay gap", Unit: "percent", Keywords: "gender pay gap wages remuneration", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 1.0, Min: 0, Max: 100},
		{Code: "S6_TURNOVER_RATE", Attribute: 6, ParameterName: "Permanent employee turnover rate", Unit: "percent", Keywords: "attrition turnover rate employees", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 1.0, Min: 0, Max: 100},

		// Attribute 7: community and supply chain.
		{Code: "S7_CSR_SPEND_PCT", Attribute: 7, ParameterName: "CSR spending as share of net profit", Unit: "percent", Keywords: "CSR corporate social responsibility spend profit", Kind: models.ValueNumeric, Polarity: models.HigherIsBetter, Weight: 1.5, Min: 0, Max: 10},
		{Code: "S7_CSR_SPEND", Attribute: 7, ParameterName: "Total CSR expenditure", Unit: "crore INR", Keywords: "CSR expenditure amount projects", Kind: models.ValueNumeric, Polarity: models.HigherIsBetter, Weight: 1.0, Min: 0, Max: 5_000},
		{Code: "S7_LOCAL_SOURCING_PCT", Attribute: 7, ParameterName: "Share of inputs sourced locally", Unit: "percent", Keywords: "local sourcing procurement district neighbouring", Kind: models.ValueNumeric, Polarity: models.HigherIsBetter, Weight: 1.0, Min: 0, Max: 100},
		{Code: "S7_MSME_SOURCING_PCT", Attribute: 7, ParameterName: "Share of inputs sourced from MSMEs", Unit: "percent", Keywords: "MSME small producers sourcing percentage", Kind: models.ValueNumeric, Polarity: models.HigherIsBetter, Weight: 1.0, Min: 0, Max: 100},
		{Code: "S7_SUPPLIER_ESG_PCT", Attribute: 7, ParameterName: "Share of suppliers assessed for ESG risks", Unit: "percent", Keywords: "supplier assessment value chain environmental social", Kind: models.ValueNumeric, Polarity: models.HigherIsBetter, Weight: 1.0, Min: 0, Max: 100},
		{Code: "S7_HR_COMPLAINTS", Attribute: 7, ParameterName: "Human rights complaints received", Unit: "count", Keywords: "human rights complaints discrimination harassment", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 1.2, Min: 0, Max: 500},
		{Code: "S7_COMMUNITY_GRIEVANCES", Attribute: 7, ParameterName: "Community grievances pending resolution", Unit: "count", Keywords: "community grievances complaints pending", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 0.8, Min: 0, Max: 500},

		// Attribute 8: board governance and ethics.
		{Code: "G8_BOARD_INDEPENDENCE_PCT", Attribute: 8, ParameterName: "Share of independent directors on the board", Unit: "percent", Keywords: "independent directors board composition", Kind: models.ValueNumeric, Polarity: models.HigherIsBetter, Weight: 1.5, Min: 0, Max: 100},
		{Code: "G8_BOARD_MEETINGS", Attribute: 8, ParameterName: "Board meetings held during the year", Unit: "count", Keywords: "board meetings held number", Kind: models.ValueNumeric, Polarity: models.HigherIsBetter, Weight: 0.8, Min: 0, Max: 20},
		{Code: "G8_BOARD_ATTENDANCE_PCT", Attribute: 8, ParameterName: "Average board meeting attendance", Unit: "percent", Keywords: "board attendance directors meetings", Kind: models.ValueNumeric, Polarity: models.HigherIsBetter, Weight: 1.0, Min: 0, Max: 100},
		{Code: "G8_ETHICS_TRAINING_PCT", Attribute: 8, ParameterName: "Share of employees trained on code of conduct", Unit: "percent", Keywords: "code of conduct ethics training awareness", Kind: models.ValueNumeric, Polarity: models.HigherIsBetter, Weight: 1.0, Min: 0, Max: 100},
		{Code: "G8_CORRUPTION_CASES", Attribute: 8, ParameterName: "Disciplinary actions for bribery or corruption", Unit: "count", Keywords: "bribery corruption disciplinary action", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 1.5, Min: 0, Max: 100},
		{Code: "G8_CONFLICT_COMPLAINTS", Attribute: 8, ParameterName: "Conflict of interest complaints against directors", Unit: "count", Keywords: "conflict of interest complaints directors KMP", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 1.0, Min: 0, Max: 50},
		{Code: "G8_CEO_PAY_RATIO", Attribute: 8, ParameterName: "CEO to median employee pay ratio", Unit: "ratio", Keywords: "remuneration ratio median CEO pay", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 0.8, Min: 0, Max: 500},

		// Attribute 9: compliance and transparency.
		{Code: "G9_REGULATORY_FINES", Attribute: 9, ParameterName: "Monetary fines for regulatory non-compliance", Unit: "crore INR", Keywords: "fines penalties regulatory monetary", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 1.5, Min: 0, Max: 1_000},
		{Code: "G9_NONCOMPLIANCE_CASES", Attribute: 9, ParameterName: "Instances of regulatory non-compliance", Unit: "count", Keywords: "non-compliance violations regulatory instances", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 1.2, Min: 0, Max: 100},
		{Code: "G9_DATA_BREACHES", Attribute: 9, ParameterName: "Customer data breaches", Unit: "count", Keywords: "data breach cyber security incidents", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 1.2, Min: 0, Max: 100},
		{Code: "G9_PRIVACY_COMPLAINTS", Attribute: 9, ParameterName: "Complaints on data privacy and cyber security", Unit: "count", Keywords: "data privacy complaints cyber security consumer", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 1.0, Min: 0, Max: 1_000},
		{Code: "G9_TAX_DISPUTES", Attribute: 9, ParameterName: "Open tax disputes", Unit: "count", Keywords: "tax disputes litigation pending", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 0.8, Min: 0, Max: 500},
		{Code: "G9_INVESTOR_COMPLAINTS", Attribute: 9, ParameterName: "Investor complaints pending resolution", Unit: "count", Keywords: "investor shareholder complaints pending", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 1.0, Min: 0, Max: 500},
		{Code: "G9_ASSURANCE_STATUS", Attribute: 9, ParameterName: "Independent assurance of sustainability disclosures", Keywords: "assurance assessment evaluation external agency", Kind: models.ValueText, Polarity: models.HigherIsBetter, Weight: 0.8},
	}
}
