// Package cart holds the client-side cart state and the pure reducer that evolves it.
package cart

type Product struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name"`
	Price  int64    `json:"price"`
	Images []string `json:"images,omitempty"`
}

type Line struct {
	Product     Product `json:"product"`
	Quantity    int     `json:"quantity"`
	IsGift      bool    `json:"isGift"`
	GiftMessage string  `json:"giftMessage,omitempty"`
}

type State struct {
	Items     []Line `json:"items"`
	Total     int64  `json:"total"`
	GiftWrap  bool   `json:"giftWrap"`
	Discount  int64  `json:"discount"`
	IsLoading bool   `json:"isLoading"`
	Error     string `json:"error,omitempty"`
}

type ActionType string

const (
	ActionSetCartItems   ActionType = "SET_CART_ITEMS"
	ActionAddItem        ActionType = "ADD_ITEM"
	ActionRemoveItem     ActionType = "REMOVE_ITEM"
	ActionUpdateQuantity ActionType = "UPDATE_QUANTITY"
	ActionUpdateGiftWrap ActionType = "UPDATE_GIFT_WRAP"
	ActionSetLoading     ActionType = "SET_LOADING"
	ActionSetError       ActionType = "SET_ERROR"
	ActionClearCart      ActionType = "CLEAR_CART"
)

// Action is a tagged union; only the fields relevant to Type are read.
type Action struct {
	Type        ActionType
	Items       []Line
	Product     Product
	ProductID   int64
	Quantity    int
	IsGift      bool
	GiftMessage string
	Loading     bool
	Error       string
}

func SetCartItems(items []Line) Action { return Action{Type: ActionSetCartItems, Items: items} }

func AddItem(p Product, quantity int, isGift bool, message string) Action {
	return Action{Type: ActionAddItem, Product: p, Quantity: quantity, IsGift: isGift, GiftMessage: message}
}

func RemoveItem(productID int64) Action { return Action{Type: ActionRemoveItem, ProductID: productID} }

func UpdateQuantity(productID int64, quantity int) Action {
	return Action{Type: ActionUpdateQuantity, ProductID: productID, Quantity: quantity}
}

// UpdateGiftWrap targets one line when productID is non-zero, otherwise the whole cart.
func UpdateGiftWrap(productID int64, isGift bool, message string) Action {
	return Action{Type: ActionUpdateGiftWrap, ProductID: productID, IsGift: isGift, GiftMessage: message}
}

func SetLoading(loading bool) Action { return Action{Type: ActionSetLoading, Loading: loading} }
func SetError(msg string) Action     { return Action{Type: ActionSetError, Error: msg} }
func ClearCart() Action              { return Action{Type: ActionClearCart} }

// Reduce returns the next state. The input state and its slices are never modified.
func Reduce(s State, a Action) State {
	switch a.Type {
	case ActionSetCartItems:
		s.Items = cloneLines(a.Items)
		s.Total = total(s.Items)
		s.IsLoading = false
		s.Error = ""

	case ActionAddItem:
		qty := a.Quantity
		if qty <= 0 {
			qty = 1
		}
		items := cloneLines(s.Items)
		merged := false
		for i := range items {
			if items[i].Product.ID == a.Product.ID {
				items[i].Quantity += qty
				if a.IsGift {
					items[i].IsGift = true
					items[i].GiftMessage = a.GiftMessage
				}
				merged = true
				break
			}
		}
		if !merged {
			items = append(items, Line{Product: a.Product, Quantity: qty, IsGift: a.IsGift, GiftMessage: a.GiftMessage})
		}
		s.Items = items
		s.Total = total(items)

	case ActionRemoveItem:
		items := make([]Line, 0, len(s.Items))
		for _, l := range s.Items {
			if l.Product.ID != a.ProductID {
				items = append(items, l)
			}
		}
		s.Items = items
		s.Total = total(items)

	case ActionUpdateQuantity:
		if a.Quantity < 1 {
			return s
		}
		items := cloneLines(s.Items)
		for i := range items {
			if items[i].Product.ID == a.ProductID {
				items[i].Quantity = a.Quantity
			}
		}
		s.Items = items
		s.Total = total(items)

	case ActionUpdateGiftWrap:
		if a.ProductID == 0 {
			s.GiftWrap = a.IsGift
			return s
		}
		items := cloneLines(s.Items)
		for i := range items {
			if items[i].Product.ID == a.ProductID {
				items[i].IsGift = a.IsGift
				items[i].GiftMessage = a.GiftMessage
				if !a.IsGift {
					items[i].GiftMessage = ""
				}
			}
		}
		s.Items = items

	case ActionSetLoading:
		s.IsLoading = a.Loading

	case ActionSetError:
		s.Error = a.Error
		s.IsLoading = false

	case ActionClearCart:
		s.Items = []Line{}
		s.Total = 0
		s.GiftWrap = false
	}
	return s
}

// Count is the number of units in the cart.
func Count(s State) int {
	n := 0
	for _, l := range s.Items {
		n += l.Quantity
	}
	return n
}

// Line returns the line for productID, if present.
func (s State) Line(productID int64) (Line, bool) {
	for _, l := range s.Items {
		if l.Product.ID == productID {
			return l, true
		}
	}
	return Line{}, false
}

func total(items []Line) int64 {
	var t int64
	for _, l := range items {
		t += l.Product.Price * int64(l.Quantity)
	}
	return t
}

func cloneLines(items []Line) []Line {
	out := make([]Line, len(items))
	copy(out, items)
	return out
}
