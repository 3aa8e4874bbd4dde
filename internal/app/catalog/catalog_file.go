package catalog

import "github.com/PersonaPass-ID/persona-wallet-sub004/pkg/utilities"

type catalogFileJson struct {
	Circuits []Circuit `json:"circuits"`
}

func (cf catalogFileJson) ConvertToDomain() []Circuit {
	return cf.Circuits
}

func readCatalogFile(path string) ([]Circuit, error) {
	return utilities.ReadConfig[catalogFileJson, []Circuit](path)
}
