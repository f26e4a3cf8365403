// Package domain models NYC Parks forestry service requests and the tree
// canopy coverage of the community boards they fall in.
//
// # Data Sources
//
// Service requests come from the NYC Open Data "Forestry Service Requests"
// export, one row per request with roughly 47 columns. Only seven are read:
// SRStatus, SRCategory, SRPriority, CommunityBoard, ZIPCode, InitiatedDate and
// ClosedDate. Canopy coverage comes from a per-community-district export with
// a district key and a canopy proportion.
//
// # Community Board Codes
//
// Codes are three digits: the borough digit followed by the district.
//
//	"101" -> borough 1 (Manhattan, MN), district 01 -> "MN01"
//	"226" -> borough 2 (Bronx, BX), district 26 -> "BX26"
//
// Borough digits:
//
//	1 Manhattan (MN)  2 Bronx (BX)  3 Brooklyn (BK)  4 Queens (QN)  5 Staten Island (SI)
//
// Codes must stay text; reading them as numbers loses the digit count that
// the length filter depends on. Districts in the 26-28, 55-56, 64 and 80-95
// ranges are joint interest areas (large parks, airports, federal land) with
// no community board and no canopy record. See [NonCommunityBoardCodes].
//
// # Dates
//
// InitiatedDate and ClosedDate use "MM/DD/YYYY HH:MM:SS". An empty ClosedDate
// marks a request that is still open; open requests are excluded. Both dates
// are reduced to a "YYYY-MM" month and the year is the first four characters
// of the start month.
//
// # Aggregates
//
// Canopy means skip requests whose board has no canopy record instead of
// counting them as zero. Call counts include those requests.
package domain
