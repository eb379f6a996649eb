package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestNewPrinter_Matching(t *testing.T) {
	tests := []struct {
		locale   string
		expected language.Tag
	}{
		{"zh-CN", language.SimplifiedChinese},
		{"zh_CN", language.SimplifiedChinese},
		{"zh-Hans", language.SimplifiedChinese},
		{"en", language.English},
		{"en-US", language.English},
		{"", language.SimplifiedChinese},
		{"not a locale!", language.SimplifiedChinese},
	}

	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewPrinter(tt.locale).Tag())
		})
	}
}

func TestSprintf_Chinese(t *testing.T) {
	p := NewPrinter("zh-CN")

	assert.Equal(t, "错误: 未检测到 Python，请先安装 Python",
		p.Sprintf(MsgToolMissing, "Python", "Python"))
	assert.Equal(t, "程序异常退出，错误代码: 3", p.Sprintf(MsgAppFailed, 3))
	assert.Equal(t, "正在安装依赖...", p.Sprintf(MsgInstalling))
}

func TestSprintf_English(t *testing.T) {
	p := NewPrinter("en-GB")

	assert.Equal(t, "Error: dependency manifest requirements.txt was not found.",
		p.Sprintf(MsgManifestMissing, "requirements.txt"))
	assert.Equal(t, "Error: dependency installation failed (exit code 2).",
		p.Sprintf(MsgInstallFailed, 2))
}

// TestCatalog_Complete verifies every key has a Chinese translation, i.e.
// the Chinese printer never renders the same text as the English one.
func TestCatalog_Complete(t *testing.T) {
	zh := NewPrinter("zh-CN")
	en := NewPrinter("en")
	keys := []string{
		MsgChecking, MsgFound, MsgToolMissing, MsgPackageMgrMissing,
		MsgDownloadHint, MsgManifestFound, MsgManifestMissing, MsgInstalling, MsgInstallFailed,
		MsgInstallAborted, MsgInstallDone, MsgLaunching, MsgLaunchFailed, MsgAppFailed, MsgPressEnter,
	}
	for _, key := range keys {
		assert.NotEqual(t, en.Sprintf(key, "x", "y"), zh.Sprintf(key, "x", "y"), "missing translation for %q", key)
	}
}
