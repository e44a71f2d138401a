package proposal

import "time"

// All derived policy dates are anchored to midnight IST; upstream stores
// epoch milliseconds and display formatting targets Indian users.
var istZone = time.FixedZone("IST", 5*3600+30*60)

const (
	displayDateLayout = "02 Jan 2006"
	isoDateLayout     = "2006-01-02T15:04:05.000Z07:00"
)

// istMidnightAfterDays shifts now by the given number of days (negative
// for the past) and snaps to 12:00 AM IST.
func istMidnightAfterDays(now time.Time, days int) time.Time {
	shifted := now.In(istZone).AddDate(0, 0, days)

	return time.Date(shifted.Year(), shifted.Month(), shifted.Day(), 0, 0, 0, 0, istZone)
}

// Day offsets per expiry bucket when the previous policy has expired.
var expiredBucketOffsets = map[string]int{
	"0-10":  -9,
	"11-90": -11,
	"90-":   -91,
}

// expiryEpochForBucket synthesizes a previous-policy expiry timestamp
// from the user-selected expiry bucket. Unknown buckets fall back to the
// long-expired offset; a policy that has not expired gets tomorrow.
func expiryEpochForBucket(bucket string, expired bool, now time.Time) int64 {
	if !expired {
		return istMidnightAfterDays(now, 1).UnixMilli()
	}

	offset, ok := expiredBucketOffsets[bucket]
	if !ok {
		offset = -91
	}

	return istMidnightAfterDays(now, offset).UnixMilli()
}

// lessThanYearsPassed reports whether fewer than the given whole years
// have passed since the registration year/month. The boundary month
// counts as still within the window.
func lessThanYearsPassed(year, month, years int, now time.Time) bool {
	yearDiff := now.Year() - year
	monthDiff := int(now.Month()) - month

	return yearDiff < years || (yearDiff == years && monthDiff <= 0)
}

// epochToDisplay renders epoch milliseconds as the IST display form,
// e.g. "06 Jun 2024".
func epochToDisplay(epoch int64) string {
	return time.UnixMilli(epoch).In(istZone).Format(displayDateLayout)
}

// epochToISO renders epoch milliseconds as ISO-8601 UTC.
func epochToISO(epoch int64) string {
	return time.UnixMilli(epoch).UTC().Format(isoDateLayout)
}
