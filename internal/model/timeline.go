package model

import (
	"encoding/json"
	"slices"
	"time"
)

// EventType описывает тип события в истории заказа.
type EventType string

const (
	EventStatus  EventType = "status"
	EventPayment EventType = "payment"
)

// TimelineEvent описывает запись истории заказа.
type TimelineEvent struct {
	At     time.Time `json:"at"`
	Type   EventType `json:"type"`
	Status string    `json:"status"`
	Note   string    `json:"note"`
}

// Timeline хранит журнал событий заказа, допускающий только добавление.
// Записи не редактируются и не удаляются.
type Timeline struct {
	events []TimelineEvent
}

// NewTimeline создаёт журнал с начальными событиями.
func NewTimeline(events ...TimelineEvent) Timeline {
	return Timeline{events: slices.Clone(events)}
}

// Append добавляет событие в конец журнала.
func (t *Timeline) Append(e TimelineEvent) {
	t.events = append(t.events, e)
}

// Len возвращает число событий.
func (t Timeline) Len() int { return len(t.events) }

// Events возвращает копию событий в порядке добавления.
func (t Timeline) Events() []TimelineEvent {
	return slices.Clone(t.events)
}

// Last возвращает последнее событие.
func (t Timeline) Last() (TimelineEvent, bool) {
	if len(t.events) == 0 {
		return TimelineEvent{}, false
	}
	return t.events[len(t.events)-1], true
}

// Chronological возвращает копию событий, упорядоченную по времени.
// При совпадении времени сохраняется порядок добавления.
func (t Timeline) Chronological() []TimelineEvent {
	out := slices.Clone(t.events)
	slices.SortStableFunc(out, func(a, b TimelineEvent) int {
		return a.At.Compare(b.At)
	})
	return out
}

// MarshalJSON кодирует журнал как массив событий.
func (t Timeline) MarshalJSON() ([]byte, error) {
	if t.events == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.events)
}

// UnmarshalJSON читает журнал из массива событий.
func (t *Timeline) UnmarshalJSON(data []byte) error {
	var events []TimelineEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return err
	}
	t.events = events
	return nil
}
