package event

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Wire shape, one object per line:
//
//	{"time": "<RFC3339Nano>", "type": "<EventTypeName>", "payload": {...}}
//
// The type and time fields must round-trip exactly, sub-second precision and
// zone offset included. Payloads may grow optional fields over time; readers
// ignore fields they do not know.

var ErrUnknownEventType = errors.New("unknown event type")

type wireEvent struct {
	Time    string          `json:"time"`
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Marshal serializes one event to its wire line (without trailing newline).
// The variant switch is exhaustive on purpose: a new event kind cannot
// silently bypass serialization.
func Marshal(ev Event) ([]byte, error) {
	switch ev.(type) {
	case Bar, Signal, Fill, Equity, TradeClosed:
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownEventType, ev)
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return json.Marshal(wireEvent{
		Time:    ev.Timestamp().Format(time.RFC3339Nano),
		Type:    ev.EventType(),
		Payload: payload,
	})
}

// Unmarshal parses one wire line back into its concrete event variant.
func Unmarshal(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal wire event: %w", err)
	}
	t, err := parseWireTime(w.Time)
	if err != nil {
		return nil, fmt.Errorf("parse event time %q: %w", w.Time, err)
	}

	switch w.Type {
	case TypeBar:
		var e Bar
		if err := json.Unmarshal(w.Payload, &e); err != nil {
			return nil, err
		}
		e.Time = t
		return e, nil
	case TypeSignal:
		var e Signal
		if err := json.Unmarshal(w.Payload, &e); err != nil {
			return nil, err
		}
		e.Time = t
		return e, nil
	case TypeFill:
		var e Fill
		if err := json.Unmarshal(w.Payload, &e); err != nil {
			return nil, err
		}
		e.Time = t
		return e, nil
	case TypeEquity:
		var e Equity
		if err := json.Unmarshal(w.Payload, &e); err != nil {
			return nil, err
		}
		e.Time = t
		return e, nil
	case TypeTradeClosed:
		var e TradeClosed
		if err := json.Unmarshal(w.Payload, &e); err != nil {
			return nil, err
		}
		e.Time = t
		return e, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, w.Type)
}

// parseWireTime accepts RFC3339(Nano) or an epoch number. Epoch values above
// 1e12 are taken as milliseconds, anything smaller as seconds.
func parseWireTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1_000_000_000_000 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		sec := int64(f)
		nsec := int64((f - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec).UTC(), nil
	}
	return time.Time{}, errors.New("not RFC3339 or epoch")
}

// EncodeJSONL writes events to w, one wire line per event.
func EncodeJSONL(w io.Writer, events []Event) error {
	bw := bufio.NewWriter(w)
	for _, ev := range events {
		line, err := Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := bw.Write(line); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// DecodeJSONL reads a wire stream back into events, skipping blank lines.
func DecodeJSONL(r io.Reader) ([]Event, error) {
	var events []Event
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		ev, err := Unmarshal([]byte(line))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", len(events)+1, err)
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
