// Package referencetest provides a small reference bundle for tests.
package referencetest

import (
	"context"

	"github.com/joseph-ayodele/orders-intake/internal/entity"
	"github.com/joseph-ayodele/orders-intake/internal/reference"
)

// Customer ids in Bundle.
const (
	FraileID  = "C001"
	SoriaID   = "C002"
	BarrosoID = "C003"
)

// Bundle returns a fresh indexed bundle with three customers and a shower tray catalog.
func Bundle() *reference.Bundle {
	b := &reference.Bundle{
		Customers: []entity.ReferenceEntity{
			{ID: FraileID, Name: "FRAILE Y NÚÑEZ", Type: entity.EntityCustomer},
			{ID: SoriaID, Name: "MATERIALES DE CONSTRUCCION SORIA S.L.", Type: entity.EntityCustomer},
			{ID: BarrosoID, Name: "Barroso Morales María Antonia", Type: entity.EntityCustomer},
		},
		Addresses: map[string][]entity.Address{
			FraileID: {
				{ID: "A1", CustomerID: FraileID, Street: "Calle Mayor 5", PostCode: "28013", City: "Madrid", Province: "Madrid"},
			},
			SoriaID: {
				{ID: "A2", CustomerID: SoriaID, Street: "Polígono Las Casas, Calle C 12", PostCode: "42005", City: "Soria", Province: "Soria"},
				{ID: "A3", CustomerID: SoriaID, Street: "Avenida de Valladolid 40", PostCode: "42004", City: "Soria", Province: "Soria"},
			},
		},
		EmailLookup: map[string]entity.ReferenceEntity{
			"Pedidos@Soria-Materiales.es": {ID: SoriaID, Name: "MATERIALES DE CONSTRUCCION SORIA S.L.", Type: entity.EntityCustomer},
		},
		Families: []entity.Family{
			{Desc: "Nature", Prefix: "NAT"},
			{Desc: "Premium", Prefix: "PRE"},
			{Desc: "Neo", Prefix: "NEO"},
		},
		Colors: []entity.Color{
			{Desc: "Blanco", Code: "BLCO"},
			{Desc: "Gris Perla", Code: "7035"},
			{Desc: "Gris", Code: "7037"},
			{Desc: "Moka", Code: "MOKA"},
		},
		Options: []entity.OptionItem{
			{SKU: "OPT-NAT-MOKA", Family: "Nature", ColorCode: "MOKA"},
			{SKU: "OPT-NAT-DEF", Family: "Nature", DefaultSize: true},
			{SKU: "OPT-PRE-80-GRID-BLCO", Family: "Premium", ColorCode: "BLCO", Size: "80", Type: "grid"},
			{SKU: "OPT-PRE-80-GRID-DEF", Family: "Premium", Size: "80", Type: "grid", DefaultSize: true},
			{SKU: "OPT-NEO-BLCO", Family: "Neo", ColorCode: "BLCO"},
		},
	}
	return b.Index()
}

// Loader returns a loader that always yields a fresh Bundle.
func Loader() reference.Loader {
	return reference.LoaderFunc(func(ctx context.Context) (*reference.Bundle, error) {
		return Bundle(), nil
	})
}
