package analytics

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/admit/internal/messaging"
)

// NewPublisher returns a typed publish function for admission events.
func NewPublisher(publisher message.Publisher) messaging.Publish[AdmissionEvent] {
	return messaging.NewPublishFunc[AdmissionEvent](publisher, TopicAdmissionDecided)
}
