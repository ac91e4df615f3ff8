package storage

import (
	"fmt"
	"strconv"
	"strings"

	"contactless-ordering/internal/models"
)

// EncodeMenuItem renders a menu item as `id,name,price`.
func EncodeMenuItem(m models.MenuItem) string {
	return fmt.Sprintf("%d,%s,%s", m.ID, m.Name, strconv.FormatFloat(m.Price, 'f', -1, 64))
}

// DecodeMenuItem parses a menu line.
func DecodeMenuItem(line string) (models.MenuItem, error) {
	parts := strings.SplitN(line, ",", 3)
	if len(parts) != 3 {
		return models.MenuItem{}, malformed("menu", line)
	}
	id, err := parseID(parts[0])
	if err != nil {
		return models.MenuItem{}, malformed("menu", line)
	}
	name := parts[1]
	price, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil || models.ValidateMenuItem(name, price) != nil {
		return models.MenuItem{}, malformed("menu", line)
	}
	return models.MenuItem{ID: id, Name: name, Price: price}, nil
}

// EncodeTable renders a table as `id,occupied`.
func EncodeTable(t models.Table) string {
	return fmt.Sprintf("%d,%t", t.ID, t.Occupied)
}

// DecodeTable parses a table line.
func DecodeTable(line string) (models.Table, error) {
	parts := strings.SplitN(line, ",", 2)
	if len(parts) != 2 {
		return models.Table{}, malformed("table", line)
	}
	id, err := parseID(parts[0])
	if err != nil {
		return models.Table{}, malformed("table", line)
	}
	occupied, err := parseFlag(parts[1])
	if err != nil {
		return models.Table{}, malformed("table", line)
	}
	return models.Table{ID: id, Occupied: occupied}, nil
}

// EncodeOrder renders an order as `id,tableId,item:qty;item:qty;,completed`.
func EncodeOrder(o models.Order) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d,%d,", o.ID, o.TableID)
	for _, line := range o.Lines {
		fmt.Fprintf(&sb, "%d:%d;", line.Item.ID, line.Quantity)
	}
	fmt.Fprintf(&sb, ",%t", o.Completed)
	return sb.String()
}

// DecodeOrder parses an order line. Lines referencing menu items missing from
// menu are dropped from the order rather than failing the record.
func DecodeOrder(line string, menu func(id int) (models.MenuItem, bool)) (models.Order, error) {
	parts := strings.SplitN(line, ",", 4)
	if len(parts) != 4 {
		return models.Order{}, malformed("order", line)
	}
	id, err := parseID(parts[0])
	if err != nil {
		return models.Order{}, malformed("order", line)
	}
	tableID, err := parseID(parts[1])
	if err != nil {
		return models.Order{}, malformed("order", line)
	}
	completed, err := parseFlag(parts[3])
	if err != nil {
		return models.Order{}, malformed("order", line)
	}

	order := models.Order{ID: id, TableID: tableID, Completed: completed}
	for _, token := range strings.Split(parts[2], ";") {
		if strings.TrimSpace(token) == "" {
			continue
		}
		kv := strings.SplitN(token, ":", 2)
		if len(kv) != 2 {
			return models.Order{}, malformed("order", line)
		}
		itemID, err := parseID(kv[0])
		if err != nil {
			return models.Order{}, malformed("order", line)
		}
		qty, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil || qty < 1 {
			return models.Order{}, malformed("order", line)
		}
		item, ok := menu(itemID)
		if !ok {
			continue
		}
		order.Lines = append(order.Lines, models.OrderLine{Item: item, Quantity: qty})
	}
	return order, nil
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if id < 1 {
		return 0, fmt.Errorf("id %d out of range", id)
	}
	return id, nil
}

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}

func malformed(kind, line string) error {
	return fmt.Errorf("%w: %s line %q", models.ErrMalformedRecord, kind, line)
}
