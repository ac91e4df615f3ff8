package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NotificationMessage is the envelope published to external notification sinks
type NotificationMessage struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// CreateNotificationMessage wraps a staff notification for publishing
func CreateNotificationMessage(message string) *NotificationMessage {
	return &NotificationMessage{
		ID:        uuid.NewString(),
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// OrderPlacedText is announced when an order is submitted
func OrderPlacedText(orderID, tableID int) string {
	return fmt.Sprintf("Order #%d placed on Table %d", orderID, tableID)
}

// OrderProcessingText is announced when the processor picks up an order
func OrderProcessingText(orderID int) string {
	return fmt.Sprintf("Processing Order #%d", orderID)
}

// OrderProcessedText is announced once the processing delay has elapsed
func OrderProcessedText(orderID int) string {
	return fmt.Sprintf("Order #%d processed. Awaiting manual completion.", orderID)
}

// OrderCompletedText is announced when staff complete an order
func OrderCompletedText(orderID int) string {
	return fmt.Sprintf("Order #%d marked completed", orderID)
}

// TableCleanedText is announced when staff free a table
func TableCleanedText(tableID int) string {
	return fmt.Sprintf("Table %d cleaned", tableID)
}
