package domain

// JoinCanopy left-joins cleaned requests to canopy records on community board
// name. Every request is kept; a request whose board has no canopy record
// gets a nil CanopyCover and is counted in misses. Duplicate canopy keys
// multiply the matching requests, one output row per match.
func JoinCanopy(requests []ServiceRequest, canopy []CanopyRecord) (joined []JoinedRecord, misses int) {
	index := make(map[string][]*float64, len(canopy))
	for _, rec := range canopy {
		index[rec.CommunityBoardName] = append(index[rec.CommunityBoardName], rec.CanopyCover)
	}

	joined = make([]JoinedRecord, 0, len(requests))
	for _, req := range requests {
		covers, ok := index[req.CommunityBoardName]
		if !ok {
			joined = append(joined, JoinedRecord{ServiceRequest: req})
			misses++
			continue
		}
		for _, cover := range covers {
			joined = append(joined, JoinedRecord{ServiceRequest: req, CanopyCover: cover})
		}
	}
	return joined, misses
}
