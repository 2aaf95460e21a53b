package views

import (
	"fmt"
	"os"
	"strings"

	"github.com/ArkBriar/smartqq/internal/tui/ui"
	"github.com/rivo/tview"
)

// AuthView walks the user through a QR login.
type AuthView struct {
	*tview.TextView
	theme  *ui.Theme
	qr     string
	stages []string
	status string
}

// NewAuthView creates the view.
func NewAuthView(theme *ui.Theme) *AuthView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Login ")
	tv.SetTitleColor(theme.TitleColor)

	return &AuthView{
		TextView: tv,
		theme:    theme,
	}
}

func (av *AuthView) Name() string { return "Login" }

// Reset clears the previous attempt.
func (av *AuthView) Reset(msg string) {
	av.qr, av.stages, av.status = "", nil, msg
	av.render()
}

// ShowQR draws the QR image the daemon wrote to path. When the image can
// not be read the path is shown instead.
func (av *AuthView) ShowQR(path string) {
	av.qr = fmt.Sprintf("\n  Open %s and scan it with the QQ mobile app.\n", tview.Escape(path))
	if data, err := os.ReadFile(path); err == nil {
		if grid, err := decodeQR(data); err == nil {
			av.qr = "\n  Scan this QR code with the QQ mobile app:\n\n" + renderQR(grid, 2) +
				fmt.Sprintf("\n  [::d]%s[-:-:-]\n", tview.Escape(path))
		}
	}
	av.status = "Waiting for the scan..."
	av.render()
}

// AddStage records a login stage.
func (av *AuthView) AddStage(stage string) {
	av.stages = append(av.stages, stage)
	av.render()
}

// ShowMessage replaces the status line.
func (av *AuthView) ShowMessage(msg string) {
	av.status = msg
	av.render()
}

func (av *AuthView) render() {
	av.Clear()
	var sb strings.Builder
	sb.WriteString(av.qr)
	if len(av.stages) > 0 {
		fmt.Fprintf(&sb, "\n  [%s]%s[-]\n", ui.ColorTag(av.theme.CounterColor), tview.Escape(strings.Join(av.stages, " > ")))
	}
	if av.status != "" {
		fmt.Fprintf(&sb, "\n  %s", tview.Escape(av.status))
	}
	_, _ = fmt.Fprint(av, sb.String())
}
