package reputation

// RatingScale is the upper bound of the rating range expressed in hundredths:
// 500 corresponds to a 5.00-star rating.
const RatingScale uint32 = 500

// DefaultAverage is the average reported for speakers with zero rating
// history (4.50 stars in hundredths).
const DefaultAverage uint32 = 450

// SpeakerRecord aggregates the rating history for a single speaker. The
// derived average is recomputed from the running sum and count rather than
// stored, so individual rating values never need to be replayed.
type SpeakerRecord struct {
	Speaker     [20]byte
	RatingSum   uint64
	RatingCount uint64
	CreatedAt   uint64
}

// Clone returns a copy of the record.
func (r *SpeakerRecord) Clone() *SpeakerRecord {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}

// Average derives the clamped average rating in hundredths. Speakers without
// history read as DefaultAverage.
func (r *SpeakerRecord) Average() uint32 {
	if r == nil || r.RatingCount == 0 {
		return DefaultAverage
	}
	avg := r.RatingSum / r.RatingCount
	if avg > uint64(RatingScale) {
		return RatingScale
	}
	return uint32(avg)
}

// RatingReceipt records that a participant has rated a session. Its presence
// is what makes re-rating detectable; the receipt is never deleted.
type RatingReceipt struct {
	Session [32]byte
	Rater   [20]byte
	Speaker [20]byte
	Value   uint32
	RatedAt uint64
}

// Clone returns a copy of the receipt.
func (r *RatingReceipt) Clone() *RatingReceipt {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}

// MultiplierBps interpolates the stake price multiplier linearly between
// floorBps (average 0) and ceilingBps (average RatingScale).
func MultiplierBps(average, floorBps, ceilingBps uint32) uint32 {
	if average > RatingScale {
		average = RatingScale
	}
	if ceilingBps <= floorBps {
		return floorBps
	}
	span := uint64(ceilingBps-floorBps) * uint64(average) / uint64(RatingScale)
	return floorBps + uint32(span)
}
