// Command lumen opens the renderer window, or renders a fixed number of frames headless.
package main

import (
	"os"
	"runtime"
)

func init() {
	// GLFW must run on the main thread.
	runtime.LockOSThread()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
