package services

import (
	"fmt"
	"storefront-service/apperrors"
	"storefront-service/models"
	"sync"
)

// PackageRequestDraft is a multi-package request being edited before
// submission. The estimate is recomputed after every change.
type PackageRequestDraft struct {
	mu        sync.Mutex
	basePrice int64
	request   models.MultiPackageRequest
	estimate  models.PackageEstimate
}

// NewPackageRequestDraft starts a draft with a single empty package.
func NewPackageRequestDraft(basePrice int64) *PackageRequestDraft {
	d := &PackageRequestDraft{
		basePrice: basePrice,
		request: models.MultiPackageRequest{
			Packages: []models.PackageSpec{{PackageType: models.PackageTypeSmall}},
		},
	}
	d.recompute()
	return d
}

// NewPackageRequestDraftFrom starts a draft from a submitted request. An
// empty package list is seeded with one empty package.
func NewPackageRequestDraftFrom(basePrice int64, req models.MultiPackageRequest) *PackageRequestDraft {
	d := NewPackageRequestDraft(basePrice)
	if len(req.Packages) > 0 {
		d.request = req
		d.request.Packages = append([]models.PackageSpec(nil), req.Packages...)
	} else {
		seed := d.request.Packages
		d.request = req
		d.request.Packages = seed
	}
	d.recompute()
	return d
}

// SetPickup replaces the shared pickup leg and schedule.
func (d *PackageRequestDraft) SetPickup(address, instructions, pickupDate, pickupTime, dropDate, dropTime string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.request.PickupAddress = address
	d.request.PickupInstructions = instructions
	d.request.PickupDate = pickupDate
	d.request.PickupTime = pickupTime
	d.request.DropDate = dropDate
	d.request.DropTime = dropTime
}

func (d *PackageRequestDraft) AddPackage(spec models.PackageSpec) models.PackageEstimate {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.request.Packages = append(d.request.Packages, spec)
	return d.recompute()
}

func (d *PackageRequestDraft) UpdatePackage(index int, spec models.PackageSpec) (models.PackageEstimate, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if index < 0 || index >= len(d.request.Packages) {
		return d.estimate, apperrors.NotFound(fmt.Sprintf("package %d not found", index+1))
	}
	d.request.Packages[index] = spec
	return d.recompute(), nil
}

// RemovePackage refuses to remove the last remaining package.
func (d *PackageRequestDraft) RemovePackage(index int) (models.PackageEstimate, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if index < 0 || index >= len(d.request.Packages) {
		return d.estimate, apperrors.NotFound(fmt.Sprintf("package %d not found", index+1))
	}
	if len(d.request.Packages) == 1 {
		return d.estimate, apperrors.Validation("at least one package is required")
	}
	d.request.Packages = append(d.request.Packages[:index], d.request.Packages[index+1:]...)
	return d.recompute(), nil
}

func (d *PackageRequestDraft) Estimate() models.PackageEstimate {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.estimate
}

// Request returns a copy of the draft ready for submission.
func (d *PackageRequestDraft) Request() models.MultiPackageRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	req := d.request
	req.Packages = append([]models.PackageSpec(nil), d.request.Packages...)
	return req
}

func (d *PackageRequestDraft) recompute() models.PackageEstimate {
	d.estimate = EstimatePrice(d.basePrice, d.request.Packages)
	return d.estimate
}
