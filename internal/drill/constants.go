package drill

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
	ProgressEvery           = 1000
)

// HeaderAccepted is set by the service on score submissions.
const HeaderAccepted = "X-Score-Accepted"

// PercentageMultiplier converts ratios to percentages.
const PercentageMultiplier = 100
