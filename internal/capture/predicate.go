package capture

// Win32 style bits consulted by IsCapturable.
const (
	StyleDisabled     uint32 = 0x08000000 // WS_DISABLED
	ExStyleToolWindow uint32 = 0x00000080 // WS_EX_TOOLWINDOW

	// DWM_CLOAKED_SHELL
	CloakedShell uint32 = 0x2
)

const (
	classCoreWindow       = "Windows.UI.Core.CoreWindow"
	classApplicationFrame = "ApplicationFrameWindow"
)

// blockedWindows are shell surfaces that enumerate as ordinary top-level
// windows but produce nothing useful when captured.
var blockedWindows = []struct {
	title, class string
}{
	{"Task View", classCoreWindow},
	{"DesktopWindowXamlSource", classCoreWindow},
	{"PopupHost", "Xaml_WindowedPopupClass"},
}

// WindowAttributes is the snapshot of native window state IsCapturable
// decides on.
type WindowAttributes struct {
	Title     string
	ClassName string

	Visible bool
	// Shell is true for the shell's desktop window (GetShellWindow).
	Shell bool
	// Console is true for this process's console window.
	Console bool
	// TopLevel is true when the window is its own root ancestor.
	TopLevel bool

	Style   uint32 // GWL_STYLE
	ExStyle uint32 // GWL_EXSTYLE
}

// CloakQuery returns the DWMWA_CLOAKED attribute. ok is false when the
// attribute could not be read.
type CloakQuery func() (cloaked uint32, ok bool)

// IsBlocked reports whether the (title, class) pair is a known shell
// surface that must never be offered for capture.
func (a WindowAttributes) IsBlocked() bool {
	for _, b := range blockedWindows {
		if a.Title == b.title && a.ClassName == b.class {
			return true
		}
	}
	return false
}

// IsUWPHost reports whether the class hosts a UWP application.
func (a WindowAttributes) IsUWPHost() bool {
	return a.ClassName == classCoreWindow || a.ClassName == classApplicationFrame
}

// IsCapturable decides whether a top-level window can be bound to a capture
// session. cloaked is only consulted for UWP host windows and may be nil.
func IsCapturable(a WindowAttributes, cloaked CloakQuery) bool {
	if a.Title == "" || a.Shell || a.Console || !a.Visible || !a.TopLevel {
		return false
	}
	if a.Style&StyleDisabled != 0 {
		return false
	}
	if a.ExStyle&ExStyleToolWindow != 0 {
		return false
	}
	if a.IsBlocked() {
		return false
	}
	if a.IsUWPHost() && cloaked != nil {
		if v, ok := cloaked(); ok && v == CloakedShell {
			return false
		}
	}
	return true
}
