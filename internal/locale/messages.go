package locale

import "fmt"

type messages struct {
	quotaExceeded   string // %d = daily limit
	tipHoursMinutes string // %d hours, %d minutes
	tipHours        string // %d hours
	tipMinutes      string // %d minutes
	tipTomorrow     string
	upstreamFailed  string
}

var catalog = map[Locale]messages{
	English: {
		quotaExceeded:   "Daily assessment limit reached (%d per day)",
		tipHoursMinutes: "About %d hours %d minutes until you can try again",
		tipHours:        "About %d hours until you can try again",
		tipMinutes:      "About %d minutes until you can try again",
		tipTomorrow:     "Please try again tomorrow",
		upstreamFailed:  "The AI assessment service is temporarily unavailable, please try again later",
	},
	SimplifiedChinese: {
		quotaExceeded:   "今日评估次数已用完（%d次/天）",
		tipHoursMinutes: "约 %d 小时 %d 分钟后可再次使用",
		tipHours:        "约 %d 小时后可再次使用",
		tipMinutes:      "约 %d 分钟后可再次使用",
		tipTomorrow:     "请明天再试",
		upstreamFailed:  "AI评估服务暂时不可用，请稍后重试",
	},
	TraditionalChinese: {
		quotaExceeded:   "今日評估次數已用完（%d次/天）",
		tipHoursMinutes: "約 %d 小時 %d 分鐘後可再次使用",
		tipHours:        "約 %d 小時後可再次使用",
		tipMinutes:      "約 %d 分鐘後可再次使用",
		tipTomorrow:     "請明天再試",
		upstreamFailed:  "AI評估服務暫時不可用，請稍後重試",
	},
}

func lookup(l Locale) messages {
	if m, ok := catalog[l]; ok {
		return m
	}
	return catalog[Default]
}

// QuotaExceeded is the headline shown when a client has used up its daily quota.
func QuotaExceeded(l Locale, limit int64) string {
	return fmt.Sprintf(lookup(l).quotaExceeded, limit)
}

// RetryTip renders the countdown hint for a quota rejection.
func RetryTip(l Locale, hours, minutes int) string {
	m := lookup(l)
	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf(m.tipHoursMinutes, hours, minutes)
	case hours > 0:
		return fmt.Sprintf(m.tipHours, hours)
	case minutes > 0:
		return fmt.Sprintf(m.tipMinutes, minutes)
	default:
		return m.tipTomorrow
	}
}

// UpstreamUnavailable is the generic text sent in-band when the model call fails
// without a provider-supplied message.
func UpstreamUnavailable(l Locale) string {
	return lookup(l).upstreamFailed
}
