// Package forward publishes completed log events to a Kafka topic.
//
// The forwarder is an optional hub sink. Events are sent through a
// synchronous producer keyed by manager identifier so all events from one
// manager land in the same partition. Send failures are logged and the
// event is dropped from the forward path only; archive and streaming are
// unaffected.
package forward
