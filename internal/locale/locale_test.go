package locale

import "testing"

func TestFromAcceptLanguage(t *testing.T) {
	tests := []struct {
		header string
		want   Locale
	}{
		{"", English},
		{"en", English},
		{"en-US,en;q=0.9", English},
		{"zh-CN", SimplifiedChinese},
		{"zh-cn", SimplifiedChinese},
		{"zh-CN,zh;q=0.9,en;q=0.8", SimplifiedChinese},
		{"zh-Hans", SimplifiedChinese},
		{"zh-SG", SimplifiedChinese},
		{"zh-TW", TraditionalChinese},
		{"zh-Hant-HK", TraditionalChinese},
		{"zh-HK", TraditionalChinese},
		{"zh", English},
		{"fr-FR", English},
		{"en;q=0.5,zh-TW;q=0.9", TraditionalChinese},
		{"!!not a language!!", English},
	}

	for _, tt := range tests {
		got := FromAcceptLanguage(tt.header)
		if got != tt.want {
			t.Errorf("FromAcceptLanguage(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		code string
		want Locale
	}{
		{"en", English},
		{"zh-CN", SimplifiedChinese},
		{"ZH-TW", TraditionalChinese},
		{"de", English},
		{"", English},
	}
	for _, tt := range tests {
		if got := Parse(tt.code); got != tt.want {
			t.Errorf("Parse(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestRetryTip(t *testing.T) {
	tests := []struct {
		loc     Locale
		hours   int
		minutes int
		want    string
	}{
		{English, 5, 30, "About 5 hours 30 minutes until you can try again"},
		{English, 5, 0, "About 5 hours until you can try again"},
		{English, 0, 12, "About 12 minutes until you can try again"},
		{English, 0, 0, "Please try again tomorrow"},
		{SimplifiedChinese, 3, 15, "约 3 小时 15 分钟后可再次使用"},
		{SimplifiedChinese, 0, 0, "请明天再试"},
		{TraditionalChinese, 0, 40, "約 40 分鐘後可再次使用"},
		{Locale("xx"), 1, 0, "About 1 hours until you can try again"},
	}
	for _, tt := range tests {
		if got := RetryTip(tt.loc, tt.hours, tt.minutes); got != tt.want {
			t.Errorf("RetryTip(%s, %d, %d) = %q, want %q", tt.loc, tt.hours, tt.minutes, got, tt.want)
		}
	}
}

func TestQuotaExceeded(t *testing.T) {
	if got := QuotaExceeded(English, 2); got != "Daily assessment limit reached (2 per day)" {
		t.Errorf("unexpected message: %q", got)
	}
	if got := QuotaExceeded(SimplifiedChinese, 2); got != "今日评估次数已用完（2次/天）" {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestUpstreamUnavailable_FallsBackToDefault(t *testing.T) {
	if UpstreamUnavailable(Locale("fr")) != UpstreamUnavailable(English) {
		t.Error("expected unknown locale to use the English fallback")
	}
}
