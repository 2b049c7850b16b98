package domain

import (
	"fmt"
	"strings"
)

// NotificationType is the event type token of a notification record.
type NotificationType string

const (
	NotificationTransaction NotificationType = "transaction"
	NotificationBlock       NotificationType = "block"
)

// NotificationRecord is one parsed "<network> <type> <data>" line.
type NotificationRecord struct {
	Network string
	Type    NotificationType
	Data    string
}

// String renders the record in wire format, without the trailing newline.
func (r NotificationRecord) String() string {
	return r.Network + " " + string(r.Type) + " " + r.Data
}

// ParseNotification splits a wire line into its three fields. It checks the
// field count and the type token; the network is checked by the caller.
func ParseNotification(line string) (NotificationRecord, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return NotificationRecord{}, fmt.Errorf("%w: %q", ErrMalformedNotification, line)
	}
	rec := NotificationRecord{
		Network: fields[0],
		Type:    NotificationType(fields[1]),
		Data:    fields[2],
	}
	switch rec.Type {
	case NotificationTransaction, NotificationBlock:
		return rec, nil
	default:
		return rec, fmt.Errorf("%w: %s", ErrUnknownEventType, fields[1])
	}
}
