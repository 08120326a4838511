package subscription

import "time"

// StatusCode mirrors the subset of OPC UA Part 4 status codes the engine
// produces or consumes directly.
type StatusCode uint32

const (
	StatusGood                      StatusCode = 0x00000000
	StatusBadTimeout                StatusCode = 0x800A0000
	StatusBadNoSubscription         StatusCode = 0x80790000
	StatusBadSequenceNumberUnknown  StatusCode = 0x807A0000
	StatusBadMessageNotAvailable    StatusCode = 0x807B0000
)

// MonitoredItemNotification is a single data-change notification produced
// by a MonitoredItem.
type MonitoredItemNotification struct {
	ClientHandle uint32
	Value        any
}

// EventFieldList is a single event notification produced by a
// MonitoredItem. Event filtering itself is out of scope (see spec
// Non-goals); the engine only carries these opaquely.
type EventFieldList struct {
	ClientHandle uint32
	EventFields  []any
}

// DataChangeNotification aggregates every MonitoredItemNotification gathered
// in a single publish.
type DataChangeNotification struct {
	MonitoredItems []MonitoredItemNotification
	Diagnostics    []string
}

// EventNotificationList aggregates every EventFieldList gathered in a
// single publish.
type EventNotificationList struct {
	Events []EventFieldList
}

// StatusChangeNotification is emitted once, when the subscription's
// lifetime expires.
type StatusChangeNotification struct {
	Status      StatusCode
	Diagnostics []string
}

// NotificationMessage is the payload of a PublishResponse: at most one
// DataChangeNotification followed by at most one EventNotificationList, a
// single StatusChangeNotification, or nothing at all (a keep-alive).
type NotificationMessage struct {
	SequenceNumber   uint32
	PublishTime      time.Time
	NotificationData []any
}

// ResponseHeader is the transport-agnostic stand-in for the OPC UA
// ResponseHeader; encoding it onto the wire is out of scope.
type ResponseHeader struct {
	Timestamp     time.Time
	RequestHandle uint32
}

// PublishResponse is the wire-structural response the engine hands back to
// the PublishQueue/Manager collaborators for delivery to the client.
type PublishResponse struct {
	ResponseHeader            ResponseHeader
	SubscriptionID            uint32
	AvailableSequenceNumbers  []uint32
	MoreNotifications         bool
	NotificationMessage       NotificationMessage
	AcknowledgeResults        []StatusCode
	Diagnostics               []string
}

// PublishRequest is the minimal shape of an incoming client Publish
// request the engine needs: which sequence numbers the client is
// acknowledging, and the request handle the manager uses to compute
// AcknowledgeResults. Everything else (headers, security) is a transport
// concern out of scope here.
type PublishRequest struct {
	RequestHandle          uint32
	SubscriptionAcknowledgements []SubscriptionAcknowledgement
}

// SubscriptionAcknowledgement names one sequence number the client claims
// to have fully processed.
type SubscriptionAcknowledgement struct {
	SequenceNumber uint32
}

// PublishService couples an inbound PublishRequest with the means to
// deliver its eventual PublishResponse. It is the engine's view of what
// the spec calls a "service request" — transport framing is the
// PublishQueue collaborator's concern, not the engine's.
type PublishService struct {
	Request  PublishRequest
	Respond  func(PublishResponse)
}
