package domain

// Borough is one of the five NYC boroughs as encoded by the first digit of a
// community board code.
type Borough struct {
	Digit    byte
	Initials string
	Name     string
}

var boroughs = map[byte]Borough{
	'1': {Digit: '1', Initials: "MN", Name: "Manhattan"},
	'2': {Digit: '2', Initials: "BX", Name: "Bronx"},
	'3': {Digit: '3', Initials: "BK", Name: "Brooklyn"},
	'4': {Digit: '4', Initials: "QN", Name: "Queens"},
	'5': {Digit: '5', Initials: "SI", Name: "Staten Island"},
}

// LookupBorough resolves a borough digit ('1'..'5').
func LookupBorough(digit byte) (Borough, bool) {
	b, ok := boroughs[digit]
	return b, ok
}

// ExcludedCategories lists request categories left out of the analysis
// because the export only covers two years of them.
var ExcludedCategories = map[string]struct{}{
	"Claims":  {},
	"Rescind": {},
}

// NonCommunityBoardCodes are joint interest areas: parks, airports and
// federal recreation land that carry a community district number but have no
// community board jurisdiction and no canopy record.
var NonCommunityBoardCodes = map[string]struct{}{
	"MN64": {}, // Central Park
	"BX26": {}, // Van Cortlandt Park
	"BX27": {}, // Bronx Park
	"BX28": {}, // Pelham Bay Park
	"BK55": {}, // Prospect Park
	"BK56": {}, // Gateway National Recreation Area
	"QN80": {}, // LaGuardia Airport
	"QN81": {}, // Flushing Meadows Corona Park
	"QN82": {}, // Forest Park
	"QN83": {}, // JFK International Airport
	"QN84": {}, // Gateway National Recreation Area
	"SI95": {}, // Gateway National Recreation Area
}

// IsExcludedCategory reports whether category is dropped during cleaning.
func IsExcludedCategory(category string) bool {
	_, ok := ExcludedCategories[category]
	return ok
}

// IsNonCommunityBoard reports whether name is a joint interest area code.
func IsNonCommunityBoard(name string) bool {
	_, ok := NonCommunityBoardCodes[name]
	return ok
}
