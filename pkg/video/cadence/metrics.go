package cadence

// Имена метрик ограничений частоты в режиме zero-hertz.
const (
	metricConstraintsExists  = "WebRTC.Screenshare.FrameRateConstraints.Exists"
	metricMinExists          = "WebRTC.Screenshare.FrameRateConstraints.Min.Exists"
	metricMinValue           = "WebRTC.Screenshare.FrameRateConstraints.Min.Value"
	metricMaxExists          = "WebRTC.Screenshare.FrameRateConstraints.Max.Exists"
	metricMaxValue           = "WebRTC.Screenshare.FrameRateConstraints.Max.Value"
	metricMinUnsetMax        = "WebRTC.Screenshare.FrameRateConstraints.MinUnset.Max"
	metricMinLessThanMaxMin  = "WebRTC.Screenshare.FrameRateConstraints.MinLessThanMax.Min"
	metricMinLessThanMaxMax  = "WebRTC.Screenshare.FrameRateConstraints.MinLessThanMax.Max"
	metricMinPlusMaxMinusOne = "WebRTC.Screenshare.FrameRateConstraints.60MinPlusMaxMinusOne"
)

// maxBucketCount граница комбинированной гистограммы:
// 60 значений max_fps на каждое значение min_fps.
const maxBucketCount = 60*60 + 60 - 1
