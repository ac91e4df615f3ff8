package models

import "fmt"

// FirstOrderID is the floor for order identifiers.
const FirstOrderID = 1000

// MenuItem represents a dish that can be ordered
type MenuItem struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Key returns the registry key of the menu item
func (m MenuItem) Key() int { return m.ID }

// Clone returns a copy of the menu item
func (m MenuItem) Clone() MenuItem { return m }

// Table represents a dining table
type Table struct {
	ID       int  `json:"id"`
	Occupied bool `json:"occupied"`
}

// Key returns the registry key of the table
func (t Table) Key() int { return t.ID }

// Clone returns a copy of the table
func (t Table) Clone() Table { return t }

// OrderLine is a menu item ordered in some quantity
type OrderLine struct {
	Item     MenuItem `json:"item"`
	Quantity int      `json:"quantity"`
}

// Order represents a customer order placed for a table
type Order struct {
	ID        int         `json:"id"`
	TableID   int         `json:"table_id"`
	Lines     []OrderLine `json:"lines"`
	Completed bool        `json:"completed"`
}

// Key returns the registry key of the order
func (o Order) Key() int { return o.ID }

// Clone returns a deep copy of the order
func (o Order) Clone() Order {
	lines := make([]OrderLine, len(o.Lines))
	copy(lines, o.Lines)
	o.Lines = lines
	return o
}

// Total calculates the total amount for the order
func (o Order) Total() float64 {
	total := 0.0
	for _, line := range o.Lines {
		total += line.Item.Price * float64(line.Quantity)
	}
	return total
}

// LineRequest selects a menu item for a new order
type LineRequest struct {
	MenuItemID int `json:"menu_item_id"`
	Quantity   int `json:"quantity"`
}

// SubmitOrderRequest represents the request to place a new order
type SubmitOrderRequest struct {
	TableID int           `json:"table_id"`
	Items   []LineRequest `json:"items"`
}

// DefaultMenu returns the menu seeded when no menu snapshot exists
func DefaultMenu() []MenuItem {
	return []MenuItem{
		{ID: 1, Name: "Burger", Price: 5.99},
		{ID: 2, Name: "Fries", Price: 2.49},
		{ID: 3, Name: "Soda", Price: 1.99},
	}
}

// DefaultTables returns the tables seeded when no table snapshot exists
func DefaultTables() []Table {
	tables := make([]Table, 0, 5)
	for i := 1; i <= 5; i++ {
		tables = append(tables, Table{ID: i})
	}
	return tables
}

// String renders an order for display
func (o Order) String() string {
	state := "pending"
	if o.Completed {
		state = "completed"
	}
	return fmt.Sprintf("Order #%d (table %d, %d lines, %.2f, %s)", o.ID, o.TableID, len(o.Lines), o.Total(), state)
}
