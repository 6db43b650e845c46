package cart

type Item struct {
	ProductID int64
	Quantity  int64
}

type DetailedItem struct {
	Item
	ProductName    string
	UnitPriceCents int64
	LineTotalCents int64
}

type Cart struct {
	UserID        int64
	Items         []DetailedItem
	SubtotalCents int64
}
