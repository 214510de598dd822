package model

// CartLine описывает позицию корзины.
type CartLine struct {
	ProductID int64  `json:"productId"`
	Variant   string `json:"variant"`
	Qty       int    `json:"qty"`
}

// sameItem сообщает, относятся ли две позиции к одному товару и варианту.
func (l CartLine) sameItem(o CartLine) bool {
	return l.ProductID == o.ProductID && l.Variant == o.Variant
}

// MaxLineQty ограничивает количество единиц в одной позиции корзины.
const MaxLineQty = 999

// AddLine добавляет позицию в корзину. Позиция с тем же товаром и вариантом
// не дублируется: её количество увеличивается, но не выше MaxLineQty.
func AddLine(cart []CartLine, line CartLine) []CartLine {
	for i := range cart {
		if cart[i].sameItem(line) {
			cart[i].Qty = min(cart[i].Qty+min(line.Qty, MaxLineQty), MaxLineQty)
			return cart
		}
	}
	return append(cart, line)
}

// MergeGuestCart переносит гостевую корзину в серверную при входе. Для
// совпадающих позиций остаётся большее из двух количеств, поэтому повторное
// слияние той же гостевой корзины ничего не меняет.
func MergeGuestCart(cart, guest []CartLine) []CartLine {
	out := CloneCart(cart)
	for _, g := range guest {
		found := false
		for i := range out {
			if out[i].sameItem(g) {
				out[i].Qty = max(out[i].Qty, g.Qty)
				found = true
				break
			}
		}
		if !found {
			out = append(out, g)
		}
	}
	return out
}

// MergeCart складывает позиции other в cart, сохраняя порядок первого появления.
func MergeCart(cart, other []CartLine) []CartLine {
	out := make([]CartLine, 0, len(cart)+len(other))
	for _, l := range cart {
		out = AddLine(out, l)
	}
	for _, l := range other {
		out = AddLine(out, l)
	}
	return out
}

// CloneCart возвращает независимую копию корзины.
func CloneCart(cart []CartLine) []CartLine {
	out := make([]CartLine, len(cart))
	copy(out, cart)
	return out
}
