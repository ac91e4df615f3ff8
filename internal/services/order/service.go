package order

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"contactless-ordering/internal/logger"
	"contactless-ordering/internal/metrics"
	"contactless-ordering/internal/models"
	"contactless-ordering/internal/queue"
	"contactless-ordering/internal/registry"
	"contactless-ordering/internal/services/persistence"
)

// Auditor records human-readable events
type Auditor interface {
	Log(message string)
}

// Service implements the customer, staff and admin operations on the shared
// registries. Every operation either fully applies or leaves state untouched.
type Service struct {
	menu   *registry.Registry[models.MenuItem]
	tables *registry.Registry[models.Table]
	orders *registry.Registry[models.Order]

	work          *queue.Queue[models.Order]
	notifications *queue.Queue[string]
	audit         Auditor
	metrics       *metrics.Metrics
	logger        *logger.Logger
	firstID       int

	// submitMu keeps id allocation and enqueue in one step so the work
	// queue order matches id order.
	submitMu sync.Mutex
}

// Config wires a Service
type Config struct {
	Registries    persistence.Registries
	Work          *queue.Queue[models.Order]
	Notifications *queue.Queue[string]
	Audit         Auditor
	Metrics       *metrics.Metrics
	Logger        *logger.Logger
	FirstOrderID  int
}

// NewService creates an order service
func NewService(cfg Config) *Service {
	firstID := cfg.FirstOrderID
	if firstID < 1 {
		firstID = models.FirstOrderID
	}
	return &Service{
		menu:          cfg.Registries.Menu,
		tables:        cfg.Registries.Tables,
		orders:        cfg.Registries.Orders,
		work:          cfg.Work,
		notifications: cfg.Notifications,
		audit:         cfg.Audit,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
		firstID:       firstID,
	}
}

// Submit places an order for a free table
func (s *Service) Submit(req models.SubmitOrderRequest) (models.Order, error) {
	requestID := logger.GenerateRequestID()

	order, err := s.submit(req)
	if err != nil {
		s.metrics.RecordSubmission(metrics.OutcomeRejected)
		s.logger.Debug("order_rejected", requestID, "Order submission rejected",
			zap.Int("table_id", req.TableID), zap.Error(err))
		return models.Order{}, err
	}

	s.metrics.RecordSubmission(metrics.OutcomeSuccess)
	s.metrics.SetQueueDepth("work", s.work.Len())
	s.logger.Info("order_submitted", requestID, "Order submitted",
		zap.Int("order_id", order.ID),
		zap.Int("table_id", order.TableID),
		zap.Int("lines", len(order.Lines)),
		zap.Float64("total", order.Total()))
	return order, nil
}

func (s *Service) submit(req models.SubmitOrderRequest) (models.Order, error) {
	if err := models.ValidateOrderRequest(req); err != nil {
		return models.Order{}, err
	}

	lines := make([]models.OrderLine, 0, len(req.Items))
	for _, item := range req.Items {
		menuItem, ok := s.menu.Get(item.MenuItemID)
		if !ok {
			return models.Order{}, fmt.Errorf("menu item %d: %w", item.MenuItemID, models.ErrUnknownMenuItem)
		}
		lines = append(lines, models.OrderLine{Item: menuItem, Quantity: item.Quantity})
	}

	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	_, err := s.tables.CompareAndSwap(req.TableID,
		func(t models.Table) bool { return !t.Occupied },
		func(t models.Table) models.Table { t.Occupied = true; return t },
	)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return models.Order{}, fmt.Errorf("table %d: %w", req.TableID, models.ErrTableNotFound)
	case errors.Is(err, models.ErrPreconditionFailed):
		return models.Order{}, fmt.Errorf("table %d: %w", req.TableID, models.ErrTableOccupied)
	case err != nil:
		return models.Order{}, err
	}

	order := s.orders.Allocate(s.firstID, func(id int) models.Order {
		return models.Order{ID: id, TableID: req.TableID, Lines: lines}
	})

	s.work.Push(order)
	text := models.OrderPlacedText(order.ID, order.TableID)
	s.notifications.Push(text)
	s.audit.Log(text)
	return order, nil
}

// MarkCompleted flips a pending order to completed
func (s *Service) MarkCompleted(orderID int) (models.Order, error) {
	order, err := s.orders.CompareAndSwap(orderID,
		func(o models.Order) bool { return !o.Completed },
		func(o models.Order) models.Order { o.Completed = true; return o },
	)
	if err != nil {
		s.metrics.RecordCompletion(metrics.OutcomeRejected)
		switch {
		case errors.Is(err, registry.ErrNotFound):
			return models.Order{}, fmt.Errorf("order %d: %w", orderID, models.ErrOrderNotFound)
		case errors.Is(err, models.ErrPreconditionFailed):
			return models.Order{}, fmt.Errorf("order %d: %w", orderID, models.ErrOrderAlreadyCompleted)
		}
		return models.Order{}, err
	}

	text := models.OrderCompletedText(order.ID)
	s.notifications.Push(text)
	s.audit.Log(text)
	s.metrics.RecordCompletion(metrics.OutcomeSuccess)
	s.logger.Info("order_completed", "", "Order marked completed", zap.Int("order_id", order.ID))
	return order, nil
}

// MarkTablesCleaned frees every selected table that is occupied and returns
// the ids that changed. Free or unknown tables are skipped.
func (s *Service) MarkTablesCleaned(tableIDs ...int) ([]int, error) {
	if len(tableIDs) == 0 {
		return nil, models.ErrNothingSelected
	}

	var cleaned []int
	for _, id := range tableIDs {
		_, err := s.tables.CompareAndSwap(id,
			func(t models.Table) bool { return t.Occupied },
			func(t models.Table) models.Table { t.Occupied = false; return t },
		)
		if err != nil {
			s.logger.Debug("table_clean_skipped", "", "Table not cleaned", zap.Int("table_id", id), zap.Error(err))
			continue
		}
		s.notifications.Push(models.TableCleanedText(id))
		s.audit.Log(fmt.Sprintf("Staff marked table %d cleaned", id))
		cleaned = append(cleaned, id)
	}

	s.metrics.RecordTablesCleaned(len(cleaned))
	return cleaned, nil
}

// AddMenuItem appends a menu item with the next free id
func (s *Service) AddMenuItem(name string, price float64) (models.MenuItem, error) {
	name = strings.TrimSpace(name)
	if err := models.ValidateMenuItem(name, price); err != nil {
		return models.MenuItem{}, err
	}

	item := s.menu.Allocate(1, func(id int) models.MenuItem {
		return models.MenuItem{ID: id, Name: name, Price: price}
	})
	s.audit.Log("Admin added menu item " + item.Name)
	s.logger.Info("menu_item_added", "", "Menu item added",
		zap.Int("menu_item_id", item.ID), zap.String("name", item.Name), zap.Float64("price", item.Price))
	return item, nil
}

// AddTable appends a free table with the next free id
func (s *Service) AddTable() models.Table {
	table := s.tables.Allocate(1, func(id int) models.Table {
		return models.Table{ID: id}
	})
	s.audit.Log(fmt.Sprintf("Admin added table %d", table.ID))
	s.logger.Info("table_added", "", "Table added", zap.Int("table_id", table.ID))
	return table
}

// Menu returns the menu sorted by id
func (s *Service) Menu() []models.MenuItem { return s.menu.Values() }

// Tables returns all tables sorted by id
func (s *Service) Tables() []models.Table { return s.tables.Values() }

// Orders returns all orders sorted by id
func (s *Service) Orders() []models.Order { return s.orders.Values() }

// Order returns a single order
func (s *Service) Order(id int) (models.Order, bool) { return s.orders.Get(id) }
