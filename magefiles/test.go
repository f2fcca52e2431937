//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs every package test with the race detector.
func (Test) All() error {
	_, err := executeCmd("go", withArgs("test", "-race", "./..."), withStream())
	return err
}

// Runs the GPU-free frame and engine tests only.
func (Test) Headless() error {
	_, err := executeCmd("go", withArgs("test", "./engine/frame/...", "./engine/renderer/...", "./engine"), withDir("."), withStream())
	return err
}
