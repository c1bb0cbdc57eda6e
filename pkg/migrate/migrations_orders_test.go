package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_orders.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no orders migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"confirmation_status TEXT NOT NULL DEFAULT 'pending'",
		"delivery_status TEXT NOT NULL DEFAULT 'not_ready'",
		"CONSTRAINT orders_order_number_key UNIQUE (order_number)",
		"CONSTRAINT orders_carrier_tracking_id_key UNIQUE (carrier_tracking_id)",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"DROP TABLE IF EXISTS orders",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCarrierEventsMigrationDedupesByTimestampAndSequence(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_carrier_events.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no carrier events migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}

	if !strings.Contains(string(data), "UNIQUE (order_id, carrier_timestamp, carrier_sequence)") {
		t.Fatalf("carrier events migration missing dedupe constraint")
	}
}
