//go:build integration

package integration

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

type alertEvent struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Group     string `json:"group"`
	Brand     string `json:"brand"`
	UserID    string `json:"user_id"`
	VehicleID string `json:"vehicle_id"`
	Template  string `json:"template,omitempty"`
}

type pushEvent struct {
	AlertID   string   `json:"alert_id"`
	Type      string   `json:"type"`
	UserID    string   `json:"user_id"`
	VehicleID string   `json:"vehicle_id"`
	Body      string   `json:"body"`
	Tokens    []string `json:"tokens"`
}

func TestNotifyWorker_MobilePush_RoundTrip(t *testing.T) {
	cfg := LoadCfg()
	WaitTCP(t, "kafka", cfg.KafkaBootstrap, 60*time.Second)
	WaitHealthz(t, cfg.NWHealthURL, 90*time.Second)
	EnsureTopic(t, cfg.KafkaBootstrap, cfg.AlertsTopic)
	EnsureTopic(t, cfg.KafkaBootstrap, cfg.PushTopic)

	db := DBOpen(t, cfg.DBDSN)
	defer db.Close()

	suffix := RandSuffix()
	group := "it-push-" + suffix
	userID := "it-u-" + suffix
	vehicleID := "it-v-" + suffix
	alertID := "it-a-" + suffix

	SeedUser(t, db, userID, fmt.Sprintf("%s@example.com", userID))
	SeedDefaultConfig(t, db, group, []map[string]any{
		{"type": "MOBILE_APP_PUSH", "enabled": true, "destinations": []string{"tok-" + suffix}},
	})

	PublishJSON(t, cfg.KafkaBootstrap, cfg.AlertsTopic, []byte(vehicleID), alertEvent{
		ID:        alertID,
		Type:      "LOW_FUEL",
		Group:     group,
		Brand:     "default",
		UserID:    userID,
		VehicleID: vehicleID,
		Template:  "Fuel low on {{vehicle}}",
	})

	ev, ok := ReadOneJSON[pushEvent](t, cfg.KafkaBootstrap, cfg.PushTopic, "it-push-"+suffix, 30*time.Second)
	if !ok {
		t.Fatalf("no push event")
	}
	if ev.AlertID != alertID || ev.VehicleID != vehicleID {
		t.Fatalf("wrong push event: %+v", ev)
	}
	if len(ev.Tokens) != 1 || ev.Tokens[0] != "tok-"+suffix {
		t.Fatalf("wrong tokens: %v", ev.Tokens)
	}

	found, responses := WaitHistory(t, db, alertID, 30*time.Second)
	if !found {
		t.Fatalf("no delivery history for %s", alertID)
	}
	if !strings.Contains(responses, `"SUCCESS"`) {
		t.Fatalf("history has no successful response: %s", responses)
	}
}

func TestNotifyWorker_UnknownGroup_Suppressed(t *testing.T) {
	cfg := LoadCfg()
	WaitTCP(t, "kafka", cfg.KafkaBootstrap, 60*time.Second)
	WaitHealthz(t, cfg.NWHealthURL, 90*time.Second)
	EnsureTopic(t, cfg.KafkaBootstrap, cfg.AlertsTopic)
	EnsureTopic(t, cfg.KafkaBootstrap, cfg.PushTopic)

	db := DBOpen(t, cfg.DBDSN)
	defer db.Close()

	suffix := RandSuffix()
	alertID := "it-sup-" + suffix

	PublishJSON(t, cfg.KafkaBootstrap, cfg.AlertsTopic, []byte("it-v-"+suffix), alertEvent{
		ID:        alertID,
		Type:      "LOW_FUEL",
		Group:     "it-nogroup-" + suffix,
		Brand:     "default",
		UserID:    "it-u-" + suffix,
		VehicleID: "it-v-" + suffix,
	})

	if _, ok := ReadOneJSON[pushEvent](t, cfg.KafkaBootstrap, cfg.PushTopic, "it-sup-"+suffix, 5*time.Second); ok {
		t.Fatalf("unexpected push event for unconfigured group")
	}
	if found, _ := FindHistory(t, db, alertID); found {
		t.Fatalf("suppressed alert should leave no history")
	}
}
