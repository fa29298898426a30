package forecast

// Unexported constants re-exported for the external test package.
const (
	DefaultDailyReviews = defaultDailyReviews
	QuietDaysToStop     = quietDaysToStop
	MinSampleSize       = minSampleSize
)
