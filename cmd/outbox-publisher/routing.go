package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/literature-backend/pkg/db/models"
	"github.com/angelmondragon/literature-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/literature-backend/pkg/outbox/registry"
)

// delivery is what a resolved outbox row becomes on the wire: Pub/Sub
// attributes that subscribers filter on and the key that orders it.
type delivery struct {
	topic       string
	orderingKey string
	attributes  map[string]string
}

// routeEvent derives the delivery for a row from its decoded payload. Order
// events are ordered per order, stock events per organization and title, so
// a subscriber never sees a reversal before the movement it cancels.
func routeEvent(event models.OutboxEvent, resolved *registry.ResolvedEvent) (delivery, error) {
	d := delivery{
		topic: resolved.Descriptor.Topic,
		attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	}
	if actor := resolved.Envelope.Actor; actor != nil {
		d.attributes["actor_id"] = actor.UserID.String()
		if actor.OrganizationID != nil {
			d.attributes["actor_organization_id"] = actor.OrganizationID.String()
		}
	}

	switch p := resolved.Payload.(type) {
	case *payloads.OrderCreatedEvent:
		if err := matchAggregate(event, p.OrderID); err != nil {
			return d, err
		}
		d.orderingKey = "order:" + p.OrderID.String()
		d.setOrder(p.OrderNumber, p.FromOrganizationID, p.ToOrganizationID)
	case *payloads.OrderStatusChangedEvent:
		if err := matchAggregate(event, p.OrderID); err != nil {
			return d, err
		}
		d.orderingKey = "order:" + p.OrderID.String()
		d.setOrder(p.OrderNumber, p.FromOrganizationID, p.ToOrganizationID)
		d.attributes["order_status"] = string(p.Status)
		d.attributes["previous_status"] = string(p.PreviousStatus)
	case *payloads.OrderDeletedEvent:
		if err := matchAggregate(event, p.OrderID); err != nil {
			return d, err
		}
		d.orderingKey = "order:" + p.OrderID.String()
		d.attributes["order_number"] = p.OrderNumber
		d.attributes["order_status"] = string(p.Status)
	case *payloads.InventoryTransferredEvent:
		if p.Quantity <= 0 || p.FromOrganizationID == p.ToOrganizationID {
			return d, malformed("transfer of %d between %s and %s", p.Quantity, p.FromOrganizationID, p.ToOrganizationID)
		}
		d.orderingKey = stockKey(p.FromOrganizationID, p.LiteratureID)
		d.attributes["from_organization_id"] = p.FromOrganizationID.String()
		d.attributes["to_organization_id"] = p.ToOrganizationID.String()
		d.attributes["literature_id"] = p.LiteratureID.String()
		d.attributes["transfer_id"] = p.TransferID.String()
		d.attributes["quantity"] = strconv.Itoa(p.Quantity)
	case *payloads.TransactionReversedEvent:
		if err := matchAggregate(event, p.TransactionID); err != nil {
			return d, err
		}
		d.orderingKey = stockKey(p.OrganizationID, p.LiteratureID)
		d.attributes["organization_id"] = p.OrganizationID.String()
		d.attributes["literature_id"] = p.LiteratureID.String()
		d.attributes["direction"] = string(p.Direction)
		if p.TransferID != nil {
			d.attributes["transfer_id"] = p.TransferID.String()
		}
	case *payloads.LowStockDetectedEvent:
		d.orderingKey = stockKey(p.OrganizationID, p.LiteratureID)
		d.attributes["organization_id"] = p.OrganizationID.String()
		d.attributes["literature_id"] = p.LiteratureID.String()
		d.attributes["available"] = strconv.Itoa(p.Available)
	case *payloads.NotificationRequestedEvent:
		if len(p.OrganizationIDs) == 0 {
			return d, malformed("notification %s has no recipients", p.Type)
		}
		d.orderingKey = "notification:" + event.AggregateID.String()
		d.attributes["notification_type"] = string(p.Type)
		recipients := make([]string, 0, len(p.OrganizationIDs))
		for _, id := range p.OrganizationIDs {
			recipients = append(recipients, id.String())
		}
		d.attributes["organization_ids"] = strings.Join(recipients, ",")
	default:
		return d, registry.NewNonRetryableError(fmt.Errorf("%w: no delivery for %T", registry.ErrUnroutable, resolved.Payload))
	}
	return d, nil
}

func (d *delivery) setOrder(number string, from, to uuid.UUID) {
	d.attributes["order_number"] = number
	d.attributes["from_organization_id"] = from.String()
	d.attributes["to_organization_id"] = to.String()
}

// logFields mirrors the domain attributes into the publisher's log context.
func (d delivery) logFields(fields map[string]any) {
	for _, key := range []string{"order_number", "order_status", "organization_id", "from_organization_id", "to_organization_id", "literature_id", "transfer_id", "notification_type"} {
		if v, ok := d.attributes[key]; ok {
			fields[key] = v
		}
	}
	if d.orderingKey != "" {
		fields["ordering_key"] = d.orderingKey
	}
}

func stockKey(orgID, literatureID uuid.UUID) string {
	return "stock:" + orgID.String() + ":" + literatureID.String()
}

func matchAggregate(event models.OutboxEvent, payloadID uuid.UUID) error {
	if payloadID != event.AggregateID {
		return malformed("payload references %s but row aggregate is %s", payloadID, event.AggregateID)
	}
	return nil
}

func malformed(format string, args ...any) error {
	return registry.NewNonRetryableError(fmt.Errorf("%w: "+format, append([]any{registry.ErrMalformedPayload}, args...)...))
}
