package services

import (
	"storefront-service/models"

	"github.com/shopspring/decimal"
)

// Per-package surcharges, in the smallest currency unit.
const (
	InsuranceSurcharge  int64 = 5000
	ExpressSurcharge    int64 = 10000
	SignatureSurcharge  int64 = 2000
	HeavySurcharge      int64 = 3000
	ExtraHeavySurcharge int64 = 5000

	heavyWeightKg      = 5.0
	extraHeavyWeightKg = 10.0
)

// PackageSurcharge sums the option and weight surcharges of one package.
func PackageSurcharge(p models.PackageSpec) int64 {
	var total int64
	if p.Insurance {
		total += InsuranceSurcharge
	}
	if p.Express {
		total += ExpressSurcharge
	}
	if p.Signature {
		total += SignatureSurcharge
	}
	if p.Weight > heavyWeightKg {
		total += HeavySurcharge
	}
	if p.Weight > extraHeavyWeightKg {
		total += ExtraHeavySurcharge
	}
	return total
}

// EstimatePrice is basePrice plus every package's surcharges.
func EstimatePrice(basePrice int64, packages []models.PackageSpec) models.PackageEstimate {
	est := models.PackageEstimate{
		BasePrice:  basePrice,
		PerPackage: make([]int64, len(packages)),
	}
	for i, p := range packages {
		s := PackageSurcharge(p)
		est.PerPackage[i] = s
		est.Surcharges += s
	}
	est.EstimatedPrice = basePrice + est.Surcharges
	return est
}

// SplitPrice divides total evenly across n lines, rounding half away from zero.
func SplitPrice(total int64, n int) int64 {
	if n <= 0 {
		return 0
	}
	return decimal.NewFromInt(total).
		Div(decimal.NewFromInt(int64(n))).
		Round(0).
		IntPart()
}
