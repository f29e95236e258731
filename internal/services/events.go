package services

import "productapi/internal/models"

// EventPublisher delivers product events to interested consumers.
type EventPublisher interface {
	PublishProductEvent(event models.ProductEvent) error
}

// NoopPublisher drops every event. It is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishProductEvent(models.ProductEvent) error { return nil }
