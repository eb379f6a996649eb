// Package i18n renders the operator-facing diagnostics in the configured
// language. Simplified Chinese is the default, matching the scripts the
// launcher replaces; English is the only other translation.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. Each key is also the English text so that an unknown key
// still prints something readable.
const (
	MsgChecking          = "Checking %s..."
	MsgFound             = "Found %s"
	MsgToolMissing       = "Error: %s was not found. Please install %s first."
	MsgPackageMgrMissing = "Error: %s was not found. Please make sure %s is installed completely."
	MsgDownloadHint      = "Download: %s"
	MsgManifestFound     = "Found dependency manifest %s"
	MsgManifestMissing   = "Error: dependency manifest %s was not found."
	MsgInstalling        = "Installing dependencies..."
	MsgInstallFailed     = "Error: dependency installation failed (exit code %d)."
	MsgInstallAborted    = "Error: dependency installation did not complete."
	MsgInstallDone       = "Dependencies installed."
	MsgLaunching         = "Starting the application..."
	MsgLaunchFailed      = "Error: the application could not be started."
	MsgAppFailed         = "The application exited abnormally, exit code: %d"
	MsgPressEnter        = "Press Enter to exit..."
)

var (
	// Supported lists the available translations; the first entry is the
	// fallback for any locale the matcher cannot place.
	Supported = []language.Tag{language.SimplifiedChinese, language.English}

	matcher = language.NewMatcher(Supported)
	cat     = newCatalog()
)

func newCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.SimplifiedChinese))

	zh := map[string]string{
		MsgChecking:          "正在检查 %s 环境...",
		MsgFound:             "已检测到 %s",
		MsgToolMissing:       "错误: 未检测到 %s，请先安装 %s",
		MsgPackageMgrMissing: "错误: 未检测到 %s，请确认 %s 已完整安装",
		MsgDownloadHint:      "下载地址: %s",
		MsgManifestFound:     "已找到依赖清单文件 %s",
		MsgManifestMissing:   "错误: 未找到依赖清单文件 %s",
		MsgInstalling:        "正在安装依赖...",
		MsgInstallFailed:     "错误: 依赖安装失败 (退出码 %d)",
		MsgInstallAborted:    "错误: 依赖安装未能完成",
		MsgInstallDone:       "依赖安装完成",
		MsgLaunching:         "正在启动程序...",
		MsgLaunchFailed:      "错误: 无法启动程序",
		MsgAppFailed:         "程序异常退出，错误代码: %d",
		MsgPressEnter:        "按回车键退出...",
	}
	for key, msg := range zh {
		// SetString only fails on malformed tags; both tags are constants.
		_ = b.SetString(language.SimplifiedChinese, key, msg)
		_ = b.SetString(language.English, key, key)
	}
	return b
}

// Printer formats diagnostics for one language.
type Printer struct {
	tag language.Tag
	p   *message.Printer
}

// NewPrinter returns a Printer for the closest supported match of locale
// (a BCP 47 tag such as "zh-CN", "zh_TW" or "en-US"). An empty or
// unparsable locale selects the default language.
func NewPrinter(locale string) *Printer {
	tag := Supported[0]
	if parsed, err := language.Parse(strings.ReplaceAll(locale, "_", "-")); err == nil {
		_, idx, conf := matcher.Match(parsed)
		if conf != language.No {
			tag = Supported[idx]
		}
	}
	return &Printer{tag: tag, p: message.NewPrinter(tag, message.Catalog(cat))}
}

// Tag returns the language the printer renders.
func (p *Printer) Tag() language.Tag {
	return p.tag
}

// Sprintf renders key with args.
func (p *Printer) Sprintf(key string, args ...any) string {
	return p.p.Sprintf(key, args...)
}
