package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"STORE_DRIVER", "KAFKA_BROKERS", "ORDER_STATUS_STRICT", "PAYMENT_CURRENCY", "REQUEST_TIMEOUT"} {
		t.Setenv(k, "")
	}
	c := Load()
	if c.StoreDriver != "postgres" || c.PaymentCurrency != "pkr" || !c.OrderStatusStrict {
		t.Fatalf("defaults = %+v", c)
	}
	if len(c.KafkaBrokers) != 0 {
		t.Fatalf("brokers = %v", c.KafkaBrokers)
	}
	if c.RequestTimeout != 15*time.Second {
		t.Fatalf("timeout = %v", c.RequestTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("ORDER_STATUS_STRICT", "false")
	t.Setenv("EVENTS_WORKERS", "nope")
	t.Setenv("REQUEST_TIMEOUT", "2s")
	t.Setenv("APP_ENV", "development")

	c := Load()
	if c.StoreDriver != "memory" {
		t.Fatalf("driver = %q", c.StoreDriver)
	}
	if len(c.KafkaBrokers) != 2 || c.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("brokers = %v", c.KafkaBrokers)
	}
	if c.OrderStatusStrict {
		t.Fatal("strict should be off")
	}
	if c.EventsWorkers != 4 {
		t.Fatalf("workers = %d", c.EventsWorkers)
	}
	if c.RequestTimeout != 2*time.Second || !c.Development() {
		t.Fatalf("config = %+v", c)
	}
}
