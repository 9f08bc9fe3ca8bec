// Package eventstreamutils builds an eventstream.Publisher from configuration.
package eventstreamutils

import (
	"fmt"

	"github.com/papercomputeco/engram/pkg/eventstream"
	"github.com/papercomputeco/engram/pkg/eventstream/kafka"
	"github.com/papercomputeco/engram/pkg/eventstream/nop"
	"github.com/papercomputeco/engram/pkg/eventstream/redis"
)

// Supported event stream providers.
const (
	ProviderNone  = "none"
	ProviderKafka = "kafka"
	ProviderRedis = "redis"
)

// Providers lists every provider NewPublisher accepts.
var Providers = []string{ProviderNone, ProviderKafka, ProviderRedis}

type NewPublisherOpts struct {
	ProviderType string

	// TargetURL is the kafka broker list or the redis URL.
	TargetURL string

	// Topic is the kafka topic or redis stream name.
	Topic string
}

func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	switch o.ProviderType {
	case ProviderNone, "":
		return nop.NewPublisher(), nil
	case ProviderKafka:
		return kafka.NewPublisher(kafka.Config{
			Brokers: o.TargetURL,
			Topic:   o.Topic,
		})
	case ProviderRedis:
		return redis.NewPublisher(redis.Config{
			URL:    o.TargetURL,
			Stream: o.Topic,
		})
	default:
		return nil, fmt.Errorf("unsupported event stream provider: %s", o.ProviderType)
	}
}
