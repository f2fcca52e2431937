//go:build mage

package main

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/lumen/engine/renderer/shader"
	"github.com/magefile/mage/mg"
)

type Check mg.Namespace

// Validates every embedded WGSL program with naga, warnings included.
func (Check) Shaders() error {
	builders := map[string]func(...shader.ProgramBuilderOption) (shader.Program, error){
		shader.ProgramLight:   shader.NewLightProgram,
		shader.ProgramSkybox:  shader.NewSkyboxProgram,
		shader.ProgramToneMap: shader.NewToneMapProgram,
	}

	var errs []error
	for name := range shader.Sources() {
		build, ok := builders[name]
		if !ok {
			errs = append(errs, fmt.Errorf("%s: no program builder", name))
			continue
		}
		if _, err := build(shader.WithStrictValidation(true)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		fmt.Printf("%s: ok\n", name)
	}
	return errors.Join(errs...)
}

// Runs go vet over the module.
func (Check) Vet() error {
	_, err := executeCmd("go", withArgs("vet", "./..."), withStream())
	return err
}
