// esrgan-stub stands in for an image super-resolution model. It prints the
// image URL it was given with an enhanced=1 marker appended.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "" {
		fmt.Fprintln(stderr, "No image URL provided")
		return 1
	}
	fmt.Fprintln(stdout, enhancedURL(args[0]))
	return 0
}

func enhancedURL(u string) string {
	if strings.Contains(u, "?") {
		return u + "&enhanced=1"
	}
	return u + "?enhanced=1"
}
