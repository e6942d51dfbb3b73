package domain

// RecentlyViewedCap is the maximum number of product ids kept in the
// recently-viewed list; the oldest entry is evicted on overflow.
const RecentlyViewedCap = 10

// Wishlist is a de-duplicated, set-like list of saved product ids.
type Wishlist struct {
	UserID     string  `json:"user_id"`
	ProductIDs []int64 `json:"product_ids"`
}

// Contains reports whether the product is already saved.
func (w *Wishlist) Contains(productID int64) bool {
	for _, id := range w.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// Add inserts the product id if absent. Returns true when the list changed.
func (w *Wishlist) Add(productID int64) bool {
	if w.Contains(productID) {
		return false
	}
	w.ProductIDs = append(w.ProductIDs, productID)
	return true
}

// Remove deletes the product id if present. Returns true when the list changed.
func (w *Wishlist) Remove(productID int64) bool {
	for i, id := range w.ProductIDs {
		if id == productID {
			w.ProductIDs = append(w.ProductIDs[:i], w.ProductIDs[i+1:]...)
			return true
		}
	}
	return false
}

// RecentlyViewed keeps the last viewed product ids in most-recent-first order.
type RecentlyViewed struct {
	UserID     string  `json:"user_id"`
	ProductIDs []int64 `json:"product_ids"`
}

// View records a product view: a re-viewed id moves to the front, and the
// list is capped at RecentlyViewedCap entries.
func (r *RecentlyViewed) View(productID int64) {
	for i, id := range r.ProductIDs {
		if id == productID {
			r.ProductIDs = append(r.ProductIDs[:i], r.ProductIDs[i+1:]...)
			break
		}
	}

	r.ProductIDs = append([]int64{productID}, r.ProductIDs...)
	if len(r.ProductIDs) > RecentlyViewedCap {
		r.ProductIDs = r.ProductIDs[:RecentlyViewedCap]
	}
}
