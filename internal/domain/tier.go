package domain

// AccessTier is the totally ordered access level of an acting user.
// Higher values grant earlier visibility and broader administrative rights.
type AccessTier int

const (
	TierUnverified   AccessTier = 0
	TierVerified     AccessTier = 1
	TierPartner      AccessTier = 2
	TierElitePartner AccessTier = 3
)

// AtLeast reports whether the tier meets the given minimum.
func (t AccessTier) AtLeast(min AccessTier) bool {
	return t >= min
}
