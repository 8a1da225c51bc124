package channel

import (
	"context"

	"github.com/jwalitptl/outreach-engine/pkg/messaging"
)

// BrokerSender hands a message to a gateway process over the message broker.
// The chat and sms gateways each consume their own outbound topic; their
// provider wire formats stay outside this engine.
type BrokerSender struct {
	broker messaging.Broker
	topic  string
}

func NewBrokerSender(broker messaging.Broker, topic string) *BrokerSender {
	return &BrokerSender{broker: broker, topic: topic}
}

type outboundMessage struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

func (s *BrokerSender) Send(ctx context.Context, identifier, message string) error {
	return s.broker.Publish(ctx, s.topic, outboundMessage{
		Recipient: identifier,
		Message:   message,
	})
}
