package config

import "testing"

func TestParseBrokerList(t *testing.T) {
	brokers := parseBrokerList(" kafka-1:9092 , kafka-2:9092,,")
	if len(brokers) != 2 {
		t.Fatalf("expected 2 brokers, got %d", len(brokers))
	}
	if brokers[0] != "kafka-1:9092" || brokers[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers: %v", brokers)
	}
}

func TestParseBrokerListEmpty(t *testing.T) {
	if brokers := parseBrokerList(""); brokers != nil {
		t.Fatalf("expected nil for empty input, got %v", brokers)
	}
}
