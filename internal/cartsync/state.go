// Package cartsync keeps a client-held cart and wishlist in step with the server.
package cartsync

import "fmt"

// Line is one cart line. Lines are identified by product, color and size.
type Line struct {
	ProductID uint   `json:"productId"`
	Quantity  int    `json:"quantity"`
	Color     string `json:"color,omitempty"`
	Size      string `json:"size,omitempty"`
}

// Key identifies the variant a line refers to.
func (l Line) Key() string {
	return fmt.Sprintf("%d|%s|%s", l.ProductID, l.Color, l.Size)
}

// State is the locally persisted cart and wishlist.
type State struct {
	Cart     []Line `json:"cart"`
	Wishlist []uint `json:"wishlist"`
}

// SetLine adds a line or replaces the quantity of the matching variant.
// A quantity below one removes the line.
func (s *State) SetLine(l Line) {
	for i, existing := range s.Cart {
		if existing.Key() == l.Key() {
			if l.Quantity < 1 {
				s.Cart = append(s.Cart[:i], s.Cart[i+1:]...)
			} else {
				s.Cart[i].Quantity = l.Quantity
			}
			return
		}
	}
	if l.Quantity >= 1 {
		s.Cart = append(s.Cart, l)
	}
}

// ToggleWishlist adds the product when absent and removes it when present.
func (s *State) ToggleWishlist(productID uint) {
	for i, id := range s.Wishlist {
		if id == productID {
			s.Wishlist = append(s.Wishlist[:i], s.Wishlist[i+1:]...)
			return
		}
	}
	s.Wishlist = append(s.Wishlist, productID)
}

// Union merges local into server. Server lines win on conflicting variants and nothing
// is dropped from either side.
func Union(local, server State) State {
	out := State{
		Cart:     make([]Line, 0, len(server.Cart)+len(local.Cart)),
		Wishlist: make([]uint, 0, len(server.Wishlist)+len(local.Wishlist)),
	}

	seen := make(map[string]bool, len(server.Cart)+len(local.Cart))
	for _, src := range [][]Line{server.Cart, local.Cart} {
		for _, l := range src {
			if seen[l.Key()] || l.Quantity < 1 {
				continue
			}
			seen[l.Key()] = true
			out.Cart = append(out.Cart, l)
		}
	}

	saved := make(map[uint]bool, len(server.Wishlist)+len(local.Wishlist))
	for _, src := range [][]uint{server.Wishlist, local.Wishlist} {
		for _, id := range src {
			if saved[id] {
				continue
			}
			saved[id] = true
			out.Wishlist = append(out.Wishlist, id)
		}
	}
	return out
}
