package banner

import (
	"io"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
)

func Print(w io.Writer) {
	fig := figure.NewColorFigure("SHIPSCAN", "doom", "green", true)
	_, _ = io.WriteString(w, fig.ColorString())

	cyan := color.New(color.FgCyan)
	_, _ = cyan.Fprintln(w, "════════════════════════════════════════════════")
	_, _ = cyan.Fprintln(w, "    Is it okay to ship? Nuclei + AI summary")
	_, _ = cyan.Fprintln(w, "════════════════════════════════════════════════")
}
