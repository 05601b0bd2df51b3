// Package gateway предоставляет шлюз отправки WhatsApp-уведомлений через Twilio
// и его мок-вариант для демо-режима.
package gateway

import "github.com/oalbalushi/tendering-system/internal/model"

// Delivery описывает исход отправки одного сообщения.
type Delivery struct {
	SID    string
	To     string
	Status model.NotificationStatus
}
