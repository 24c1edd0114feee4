package common

import (
	"fmt"
	"io"
	"strings"

	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Endpoint statistics
// --------------------------------------------------------------------------

// Stats counts the traffic of one endpoint. The counters are the only endpoint
// state that may be read from another goroutine while the endpoint is in use.
// Every update is mirrored into the process wide metrics set, labelled with
// the endpoint kind.
type Stats struct {
	kind string

	bytesSent        *xsync.Counter
	bytesReceived    *xsync.Counter
	messagesSent     *xsync.Counter
	messagesReceived *xsync.Counter
	partialWrites    *xsync.Counter
	accepted         *xsync.Counter
	closed           *xsync.Counter
}

// StatsSnapshot is a point in time copy of Stats
type StatsSnapshot struct {
	BytesSent        int64 `json:"bytes_sent"`
	BytesReceived    int64 `json:"bytes_received"`
	MessagesSent     int64 `json:"messages_sent"`
	MessagesReceived int64 `json:"messages_received"`
	PartialWrites    int64 `json:"partial_writes"`
	Accepted         int64 `json:"accepted"`
	Closed           int64 `json:"closed"`
}

// NewStats creates the counters for an endpoint of the given kind ("server", "client")
func NewStats(kind string) *Stats {
	return &Stats{
		kind:             kind,
		bytesSent:        xsync.NewCounter(),
		bytesReceived:    xsync.NewCounter(),
		messagesSent:     xsync.NewCounter(),
		messagesReceived: xsync.NewCounter(),
		partialWrites:    xsync.NewCounter(),
		accepted:         xsync.NewCounter(),
		closed:           xsync.NewCounter(),
	}
}

// AddSent records one send call that transmitted n bytes
func (s *Stats) AddSent(n int) {
	s.messagesSent.Inc()
	s.bytesSent.Add(int64(n))
	s.metric("dsock_messages_sent_total").Inc()
	s.metric("dsock_bytes_sent_total").Add(n)
}

// AddReceived records one receive call that returned n bytes
func (s *Stats) AddReceived(n int) {
	s.messagesReceived.Inc()
	s.bytesReceived.Add(int64(n))
	s.metric("dsock_messages_received_total").Inc()
	s.metric("dsock_bytes_received_total").Add(n)
}

// IncPartialWrite records an underlying write that accepted fewer bytes than requested
func (s *Stats) IncPartialWrite() {
	s.partialWrites.Inc()
	s.metric("dsock_partial_writes_total").Inc()
}

// IncAccepted records a connection that became active
func (s *Stats) IncAccepted() {
	s.accepted.Inc()
	s.metric("dsock_connections_accepted_total").Inc()
}

// IncClosed records a connection that was released
func (s *Stats) IncClosed() {
	s.closed.Inc()
	s.metric("dsock_connections_closed_total").Inc()
}

// Snapshot returns the current counter values
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		BytesSent:        s.bytesSent.Value(),
		BytesReceived:    s.bytesReceived.Value(),
		MessagesSent:     s.messagesSent.Value(),
		MessagesReceived: s.messagesReceived.Value(),
		PartialWrites:    s.partialWrites.Value(),
		Accepted:         s.accepted.Value(),
		Closed:           s.closed.Value(),
	}
}

func (s *Stats) metric(name string) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`%s{endpoint=%q}`, name, s.kind))
}

// String returns a formatted string representation of the snapshot
func (s StatsSnapshot) String() string {
	var sb strings.Builder
	addField := func(name string, value int64) {
		sb.WriteString(fmt.Sprintf("  %-22s: %d\n", name, value))
	}
	addField("Bytes Sent", s.BytesSent)
	addField("Bytes Received", s.BytesReceived)
	addField("Messages Sent", s.MessagesSent)
	addField("Messages Received", s.MessagesReceived)
	addField("Partial Writes", s.PartialWrites)
	addField("Accepted", s.Accepted)
	addField("Closed", s.Closed)
	return sb.String()
}

// --------------------------------------------------------------------------
// Metrics exposition
// --------------------------------------------------------------------------

// WriteMetrics writes all dsock metrics in prometheus text format to w
func WriteMetrics(w io.Writer, exposeProcessMetrics bool) {
	metrics.WritePrometheus(w, exposeProcessMetrics)
}
