package lifecycle

// BookingStatus is the status of a service appointment.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// OrderStatus is the status of a merchandise order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// Partner actions.
const (
	EventAccept   Event = "accept"
	EventReject   Event = "reject"
	EventComplete Event = "complete"
	EventCancel   Event = "cancel"
	EventRestore  Event = "restore"
	EventProcess  Event = "process"
	EventShip     Event = "ship"
	EventDeliver  Event = "deliver"
)

// Bookings may be restored from cancelled; orders have no reverse move.
// The two tables are kept apart on purpose.
var bookingMachine = NewMachine("booking", []Rule[BookingStatus]{
	{From: BookingPending, Event: EventAccept, To: BookingConfirmed},
	{From: BookingPending, Event: EventReject, To: BookingCancelled},
	{From: BookingConfirmed, Event: EventComplete, To: BookingCompleted},
	{From: BookingConfirmed, Event: EventCancel, To: BookingCancelled},
	{From: BookingCancelled, Event: EventRestore, To: BookingPending},
}, map[BookingStatus]string{
	BookingPending:   "Reserva restaurada",
	BookingConfirmed: "Reserva confirmada",
	BookingCompleted: "Reserva completada",
	BookingCancelled: "Reserva cancelada",
})

var orderMachine = NewMachine("order", []Rule[OrderStatus]{
	{From: OrderPending, Event: EventProcess, To: OrderProcessing},
	{From: OrderPending, Event: EventCancel, To: OrderCancelled},
	{From: OrderProcessing, Event: EventShip, To: OrderShipped},
	{From: OrderShipped, Event: EventDeliver, To: OrderDelivered},
}, map[OrderStatus]string{
	OrderPending:    "Pedido pendiente",
	OrderProcessing: "Pedido en preparación",
	OrderShipped:    "Pedido enviado",
	OrderDelivered:  "Pedido entregado",
	OrderCancelled:  "Pedido cancelado",
})

// BookingMachine returns the booking transition table.
func BookingMachine() *Machine[BookingStatus] {
	return bookingMachine
}

// OrderMachine returns the order transition table.
func OrderMachine() *Machine[OrderStatus] {
	return orderMachine
}

// ParseBookingStatus validates a booking status name.
func ParseBookingStatus(s string) (BookingStatus, error) {
	switch status := BookingStatus(s); status {
	case BookingPending, BookingConfirmed, BookingCompleted, BookingCancelled:
		return status, nil
	}
	return "", &StatusError{Kind: "booking", Value: s}
}

// ParseOrderStatus validates an order status name.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch status := OrderStatus(s); status {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return status, nil
	}
	return "", &StatusError{Kind: "order", Value: s}
}

// Partner-facing order tabs.
const (
	TabPending    = "pending"
	TabProcessing = "processing"
	TabCompleted  = "completed"
	TabCancelled  = "cancelled"
)

// OrderTab returns the partner tab an order is listed under. Shipped
// orders stay in the processing tab until delivered.
func OrderTab(status OrderStatus) string {
	switch status {
	case OrderProcessing, OrderShipped:
		return TabProcessing
	case OrderDelivered:
		return TabCompleted
	case OrderCancelled:
		return TabCancelled
	default:
		return TabPending
	}
}

// TabStatuses is the inverse of OrderTab. Unknown tabs yield nil.
func TabStatuses(tab string) []OrderStatus {
	switch tab {
	case TabPending:
		return []OrderStatus{OrderPending}
	case TabProcessing:
		return []OrderStatus{OrderProcessing, OrderShipped}
	case TabCompleted:
		return []OrderStatus{OrderDelivered}
	case TabCancelled:
		return []OrderStatus{OrderCancelled}
	}
	return nil
}
