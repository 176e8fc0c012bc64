package main

import (
	"fmt"
	"io"
	"os"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// Command results go to out; notices go to errOut.
var (
	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr
)

type noticeKind int

const (
	noticeOK noticeKind = iota
	noticeWarn
	noticeFail
	noticeStep
)

var noticeStyle = map[noticeKind]struct{ color, mark string }{
	noticeOK:   {colorGreen, "✓"},
	noticeWarn: {colorYellow, "⚠"},
	noticeFail: {colorRed, "✗"},
	noticeStep: {colorCyan, "→"},
}

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

// notice writes one marked line to errOut.
func notice(kind noticeKind, format string, args ...any) {
	style := noticeStyle[kind]
	fmt.Fprintln(errOut, colorize(style.color, style.mark+" "+fmt.Sprintf(format, args...)))
}

// field writes an indented "label: value" line to out.
func field(label string, format string, args ...any) {
	fmt.Fprintf(out, "  %s %s\n", colorize(colorBold, label+":"), fmt.Sprintf(format, args...))
}
