//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs the stream codec round-trip tests with the race detector.
func (Test) Codecs() error {
	_, err := executeCmd("go", withArgs("test", "-race", "./engine/stream/..."), withStream())
	return err
}
