package services

import (
	"storefront-service/models"

	"github.com/google/uuid"
)

// BuildGlobalView merges every vendor cart into one view. It has no side effects.
func BuildGlobalView(carts []models.Cart) models.GlobalCartView {
	view := models.GlobalCartView{
		ID:        models.GlobalCartID,
		Items:     []models.CartItem{},
		VendorIDs: []string{},
	}
	for _, cart := range carts {
		if cart.IsEmpty() {
			continue
		}
		view.VendorIDs = append(view.VendorIDs, cart.VendorID)
		for _, item := range cart.Items {
			view.Items = append(view.Items, item)
			view.TotalItems += item.Quantity
			view.TotalAmount += item.LineTotal()
		}
	}
	return view
}

func cloneCarts(carts []models.Cart) []models.Cart {
	out := make([]models.Cart, len(carts))
	for i, c := range carts {
		c.Items = append([]models.CartItem(nil), c.Items...)
		out[i] = c
	}
	return out
}

// withoutEmpty drops carts that have no lines left and refreshes totals.
func withoutEmpty(carts []models.Cart) []models.Cart {
	out := carts[:0]
	for _, c := range carts {
		if c.IsEmpty() {
			continue
		}
		c.Recalculate()
		out = append(out, c)
	}
	return out
}

// applyAdd is the optimistic form of adding a line for userID.
func applyAdd(carts []models.Cart, userID string, line models.NewCartLine) []models.Cart {
	next := cloneCarts(carts)
	item := models.CartItem{
		ID:                  uuid.New(),
		ProductID:           line.ProductID,
		Name:                line.Name,
		Price:               line.Price,
		Quantity:            line.Quantity,
		Image:               line.Image,
		SpecialInstructions: line.SpecialInstructions,
	}

	for ci := range next {
		if next[ci].VendorID != line.VendorID {
			continue
		}
		for li := range next[ci].Items {
			if next[ci].Items[li].SameProduct(item) {
				next[ci].Items[li].Quantity += item.Quantity
				return withoutEmpty(next)
			}
		}
		item.CartID = next[ci].ID
		next[ci].Items = append(next[ci].Items, item)
		return withoutEmpty(next)
	}

	cart := models.Cart{
		ID:           uuid.New(),
		UserID:       userID,
		VendorID:     line.VendorID,
		VendorName:   line.VendorName,
		DeliveryMode: models.DeliveryModeDelivery,
	}
	item.CartID = cart.ID
	cart.Items = []models.CartItem{item}
	return withoutEmpty(append(next, cart))
}

// applyQuantity is the optimistic form of setting a line quantity; <= 0 removes it.
func applyQuantity(carts []models.Cart, lineID uuid.UUID, quantity int) []models.Cart {
	next := cloneCarts(carts)
	for ci := range next {
		for li := range next[ci].Items {
			if next[ci].Items[li].ID != lineID {
				continue
			}
			if quantity <= 0 {
				next[ci].Items = append(next[ci].Items[:li], next[ci].Items[li+1:]...)
			} else {
				next[ci].Items[li].Quantity = quantity
			}
			return withoutEmpty(next)
		}
	}
	return withoutEmpty(next)
}

func applyDelivery(carts []models.Cart, mode string, address, instructions *string) []models.Cart {
	next := cloneCarts(carts)
	for i := range next {
		next[i].DeliveryMode = mode
		next[i].DeliveryAddress = address
		next[i].DeliveryInstructions = instructions
	}
	return next
}
