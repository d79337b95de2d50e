package systems

import "github.com/alseid-engine/anima/engine/resources"

/** @brief The name of the default material. */
const DefaultMaterialName string = "default"

func MaterialSystemGetDefault() *resources.Material {
	return nil
}
