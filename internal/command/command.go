// Package command разбирает административные команды из входящих сообщений.
// Разбор полностью отделён от исполнения: команда с неверными аргументами
// отклоняется до каких-либо записей в хранилище.
package command

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Command — разобранная административная команда.
type Command interface {
	isCommand()
}

// NewTender — команда /newtender с типизированными аргументами.
type NewTender struct {
	Title       string
	Category    string
	Quantity    int
	Unit        string
	ClosingDate time.Time
}

// ListTenders — команда /listtenders.
type ListTenders struct{}

// ListBids — команда /listbids с необязательным идентификатором тендера.
type ListBids struct {
	TenderID string
}

// Winner — команда /winner.
type Winner struct {
	TenderID string
	BidID    string
}

// Help — любая неизвестная команда: в ответ отправляется справка.
type Help struct{}

func (NewTender) isCommand()   {}
func (ListTenders) isCommand() {}
func (ListBids) isCommand()    {}
func (Winner) isCommand()      {}
func (Help) isCommand()        {}

// UsageError сообщает о неверных аргументах известной команды.
type UsageError struct {
	Usage string
}

func (e *UsageError) Error() string {
	return "invalid arguments, usage: " + e.Usage
}

// Строки подсказок для ответов администратору.
const (
	UsageNewTender = `/newtender "title" "category" "quantity" "unit" "closing_date"`
	UsageWinner    = `/winner [tender_id] [bid_id]`
)

// IsCommand сообщает, выглядит ли текст сообщения как административная команда.
func IsCommand(body string) bool {
	return strings.HasPrefix(strings.TrimSpace(body), "/")
}

// Parse разбирает текст команды. Имя команды нечувствительно к регистру.
// Неизвестная команда возвращается как Help; известная команда с неверными
// аргументами — как ошибка *UsageError.
func Parse(body string) (Command, error) {
	trimmed := strings.TrimSpace(body)
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return Help{}, nil
	}
	name := strings.ToLower(fields[0])

	switch name {
	case "/newtender":
		return parseNewTender(trimmed)
	case "/listtenders":
		return ListTenders{}, nil
	case "/listbids":
		cmd := ListBids{}
		if len(fields) > 1 {
			cmd.TenderID = fields[1]
		}
		return cmd, nil
	case "/winner":
		if len(fields) != 3 {
			return nil, &UsageError{Usage: UsageWinner}
		}
		return Winner{TenderID: fields[1], BidID: fields[2]}, nil
	default:
		return Help{}, nil
	}
}

// parseNewTender делит текст по двойным кавычкам и требует ровно пять
// закавыченных сегментов: title, category, quantity, unit, closing_date.
func parseNewTender(body string) (Command, error) {
	segments := quotedSegments(body)
	if len(segments) != 5 {
		return nil, &UsageError{Usage: UsageNewTender}
	}

	quantity, err := strconv.Atoi(strings.TrimSpace(segments[2]))
	if err != nil {
		return nil, &UsageError{Usage: UsageNewTender}
	}

	closingDate, err := parseDate(strings.TrimSpace(segments[4]))
	if err != nil {
		return nil, &UsageError{Usage: UsageNewTender}
	}

	return NewTender{
		Title:       segments[0],
		Category:    segments[1],
		Quantity:    quantity,
		Unit:        segments[3],
		ClosingDate: closingDate,
	}, nil
}

// quotedSegments возвращает содержимое закавыченных фрагментов в порядке следования.
func quotedSegments(body string) []string {
	parts := strings.Split(body, `"`)
	// Нечётные индексы — содержимое кавычек; незакрытая последняя кавычка отбрасывается.
	var segments []string
	for i := 1; i < len(parts); i += 2 {
		segments = append(segments, parts[i])
	}
	if len(parts)%2 == 0 && len(segments) > 0 {
		segments = segments[:len(segments)-1]
	}
	return segments
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date: %q", s)
}
