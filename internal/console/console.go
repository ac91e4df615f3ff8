// Package console is a line-oriented stand-in for the staff and admin screens.
// It reads commands, calls the ordering operations and prints notifications.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"contactless-ordering/internal/models"
)

// Ordering is the set of operations the console drives
type Ordering interface {
	Submit(req models.SubmitOrderRequest) (models.Order, error)
	MarkCompleted(orderID int) (models.Order, error)
	MarkTablesCleaned(tableIDs ...int) ([]int, error)
	AddMenuItem(name string, price float64) (models.MenuItem, error)
	AddTable() models.Table
	Menu() []models.MenuItem
	Tables() []models.Table
	Orders() []models.Order
}

// ErrQuit is returned by Execute for the quit command
var ErrQuit = errors.New("quit")

const help = `commands:
  menu                              list menu items
  tables                            list tables
  orders                            list orders
  submit <table> <item>x<qty>...    place an order, e.g. submit 3 1x2 2x1
  complete <order>                  mark an order completed
  clean <table>...                  mark occupied tables cleaned
  add-item <price> <name...>        add a menu item
  add-table                         add a table
  help                              show this help
  quit                              stop the system`

// Console reads commands from in and writes results to out
type Console struct {
	ordering Ordering

	mu  sync.Mutex
	out io.Writer
}

// New creates a console
func New(ordering Ordering, out io.Writer) *Console {
	return &Console{ordering: ordering, out: out}
}

// Notify prints a staff notification. It can be subscribed to the notifier.
func (c *Console) Notify(message string) {
	c.printf("* %s\n", message)
}

// Run processes lines from in until quit, EOF or ctx cancellation
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	c.printf("%s\n", help)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-scanErr:
			return err
		case line := <-lines:
			output, err := c.Execute(line)
			if errors.Is(err, ErrQuit) {
				return nil
			}
			if err != nil {
				c.printf("error: %v\n", err)
				continue
			}
			if output != "" {
				c.printf("%s\n", output)
			}
		}
	}
}

// Execute runs a single command line and returns its output
func (c *Console) Execute(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "help":
		return help, nil
	case "quit", "exit":
		return "", ErrQuit
	case "menu":
		return formatMenu(c.ordering.Menu()), nil
	case "tables":
		return formatTables(c.ordering.Tables()), nil
	case "orders":
		return formatOrders(c.ordering.Orders()), nil
	case "submit":
		req, err := parseSubmit(args)
		if err != nil {
			return "", err
		}
		order, err := c.ordering.Submit(req)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("submitted %s", order), nil
	case "complete":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: complete <order>")
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return "", fmt.Errorf("invalid order id %q", args[0])
		}
		order, err := c.ordering.MarkCompleted(id)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("completed %s", order), nil
	case "clean":
		ids, err := parseIDs(args)
		if err != nil {
			return "", err
		}
		cleaned, err := c.ordering.MarkTablesCleaned(ids...)
		if err != nil {
			return "", err
		}
		if len(cleaned) == 0 {
			return "no occupied tables selected", nil
		}
		return fmt.Sprintf("cleaned tables %v", cleaned), nil
	case "add-item":
		if len(args) < 2 {
			return "", fmt.Errorf("usage: add-item <price> <name...>")
		}
		price, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return "", fmt.Errorf("invalid price %q", args[0])
		}
		item, err := c.ordering.AddMenuItem(strings.Join(args[1:], " "), price)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("added menu item %d %s %.2f", item.ID, item.Name, item.Price), nil
	case "add-table":
		table := c.ordering.AddTable()
		return fmt.Sprintf("added table %d", table.ID), nil
	default:
		return "", fmt.Errorf("unknown command %q, try help", cmd)
	}
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// parseSubmit reads `<table> <item>x<qty>...`
func parseSubmit(args []string) (models.SubmitOrderRequest, error) {
	if len(args) < 1 {
		return models.SubmitOrderRequest{}, fmt.Errorf("usage: submit <table> <item>x<qty>...")
	}
	tableID, err := strconv.Atoi(args[0])
	if err != nil {
		return models.SubmitOrderRequest{}, fmt.Errorf("invalid table id %q", args[0])
	}

	req := models.SubmitOrderRequest{TableID: tableID}
	for _, arg := range args[1:] {
		item, qty, found := strings.Cut(strings.ToLower(arg), "x")
		if !found {
			qty = "1"
		}
		itemID, err := strconv.Atoi(item)
		if err != nil {
			return models.SubmitOrderRequest{}, fmt.Errorf("invalid item %q", arg)
		}
		quantity, err := strconv.Atoi(qty)
		if err != nil {
			return models.SubmitOrderRequest{}, fmt.Errorf("invalid quantity in %q", arg)
		}
		req.Items = append(req.Items, models.LineRequest{MenuItemID: itemID, Quantity: quantity})
	}
	return req, nil
}

func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, arg := range args {
		id, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func formatMenu(items []models.MenuItem) string {
	var sb strings.Builder
	for _, item := range items {
		fmt.Fprintf(&sb, "%3d  %-20s %8.2f\n", item.ID, item.Name, item.Price)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func formatTables(tables []models.Table) string {
	var sb strings.Builder
	for _, t := range tables {
		state := "free"
		if t.Occupied {
			state = "occupied"
		}
		fmt.Fprintf(&sb, "table %d: %s\n", t.ID, state)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func formatOrders(orders []models.Order) string {
	if len(orders) == 0 {
		return "no orders"
	}
	var sb strings.Builder
	for _, o := range orders {
		sb.WriteString(o.String())
		sb.WriteByte('\n')
		for _, line := range o.Lines {
			fmt.Fprintf(&sb, "    %dx %s\n", line.Quantity, line.Item.Name)
		}
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
