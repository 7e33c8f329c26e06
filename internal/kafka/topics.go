package kafka

import (
	"log"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// EnsureTopicsExist creates the given topics if they don't already exist.
func EnsureTopicsExist(brokers []string, topics []string) error {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	for _, topic := range topics {
		cfg := kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}

		if err := controllerConn.CreateTopics(cfg); err != nil {
			// Continue with the remaining topics even if one fails.
			log.Printf("Error creating topic %s: %v", topic, err)
			continue
		}
		log.Printf("Ensured topic: %s", topic)
	}

	// Give the broker a moment to propagate new topics.
	time.Sleep(1 * time.Second)
	return nil
}
