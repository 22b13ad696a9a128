package catalog

// Florida counties accepted on a permit package.
var counties = []string{
	"Alachua", "Baker", "Bay", "Bradford", "Brevard", "Broward", "Calhoun", "Charlotte",
	"Citrus", "Clay", "Collier", "Columbia", "DeSoto", "Dixie", "Duval", "Escambia",
	"Flagler", "Franklin", "Gadsden", "Gilchrist", "Glades", "Gulf", "Hamilton", "Hardee",
	"Hendry", "Hernando", "Highlands", "Hillsborough", "Holmes", "Indian River", "Jackson",
	"Jefferson", "Lafayette", "Lake", "Lee", "Leon", "Levy", "Liberty", "Madison",
	"Manatee", "Marion", "Martin", "Miami-Dade", "Monroe", "Nassau", "Okaloosa",
	"Okeechobee", "Orange", "Osceola", "Palm Beach", "Pasco", "Pinellas", "Polk",
	"Putnam", "Santa Rosa", "Sarasota", "Seminole", "St. Johns", "St. Lucie", "Sumter",
	"Suwannee", "Taylor", "Union", "Volusia", "Wakulla", "Walton", "Washington",
}

var countySet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(counties))
	for _, c := range counties {
		set[c] = struct{}{}
	}
	return set
}()

// Counties returns the accepted county names in alphabetical order.
func Counties() []string {
	out := make([]string, len(counties))
	copy(out, counties)
	return out
}

// ValidCounty reports whether name is an accepted county. The match is exact.
func ValidCounty(name string) bool {
	_, ok := countySet[name]
	return ok
}
