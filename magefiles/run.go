//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Validates the shaders and opens the demo window.
func (Run) Demo() error {
	mg.Deps(Check.Shaders)
	_, err := executeCmd("go", withArgs("run", "./cmd/lumen"), withStream())
	return err
}

// Renders 120 frames without a window and prints the frame summary.
func (Run) Headless() error {
	_, err := executeCmd("go", withArgs("run", "./cmd/lumen", "--headless", "--frames", "120"), withStream())
	return err
}
