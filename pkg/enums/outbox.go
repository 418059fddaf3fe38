package enums

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregateNotification OutboxAggregateType = "notification"
	AggregateUser         OutboxAggregateType = "user"
)

var aggregateTypes = members[OutboxAggregateType]{AggregateOrder, AggregateNotification, AggregateUser}

func (a OutboxAggregateType) IsValid() bool { return aggregateTypes.has(a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return aggregateTypes.parse("aggregate type", value, nil)
}

// OutboxEventType is the routing key published with each event. The prefix
// before the dot is the aggregate.
type OutboxEventType string

const (
	EventOrderCreated               OutboxEventType = "order.created"
	EventOrderPaid                  OutboxEventType = "order.paid"
	EventOrderStatusChanged         OutboxEventType = "order.status_changed"
	EventNotificationCreated        OutboxEventType = "notification.created"
	EventPasswordResetRequested     OutboxEventType = "auth.password_reset_requested"
	EventEmailConfirmationRequested OutboxEventType = "auth.confirmation_requested"
)

var eventTypes = members[OutboxEventType]{
	EventOrderCreated,
	EventOrderPaid,
	EventOrderStatusChanged,
	EventNotificationCreated,
	EventPasswordResetRequested,
	EventEmailConfirmationRequested,
}

func (e OutboxEventType) String() string { return string(e) }

func (e OutboxEventType) IsValid() bool { return eventTypes.has(e) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return eventTypes.parse("event type", value, nil)
}
