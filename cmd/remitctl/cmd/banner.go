package cmd

import (
	"fmt"
	"io"

	"github.com/common-nighthawk/go-figure"
)

func printBanner(w io.Writer, appName string) {
	myFigure := figure.NewFigure(appName, "cybermedium", true)
	fmt.Fprintln(w, myFigure.String())
}
