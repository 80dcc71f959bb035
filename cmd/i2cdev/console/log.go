package console

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

const PictoChip = "🔌"
const PictoPin = "📌"
const PictoKnob = "🎛"
const PictoStop = "🚫"

var white = color.New(color.FgHiWhite).SprintFunc()

var writer io.Writer

var Trace bool

func init() {
	writer = os.Stdout
}

func Infof(msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(writer, "%s %s\n", white("..."), fmt.Sprintf(msg, args...))
}

func Debug(msg string) {
	if Trace {
		_, _ = fmt.Fprintf(writer, "%s %s\n", white("[DEBUG]"), msg)
	}
}

func PInfof(picto, msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(writer, "%s %s\n", picto, fmt.Sprintf(msg, args...))
}

func Print(msg string) {
	_, _ = fmt.Fprintln(writer, msg)
}

func Printf(msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(writer, msg, args...)
}
