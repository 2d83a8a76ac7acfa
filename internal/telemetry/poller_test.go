package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kaushikharsh99/MARK-2/domain/entities"
)

type stubSource struct {
	specs       json.RawMessage
	overview    json.RawMessage
	providers   map[string]entities.ProviderInfo
	marketplace map[string][]entities.MarketplaceModel

	specsErr    error
	overviewErr error
}

func (s *stubSource) SystemSpecs(ctx context.Context) (json.RawMessage, error) {
	return s.specs, s.specsErr
}

func (s *stubSource) SystemOverview(ctx context.Context) (json.RawMessage, error) {
	return s.overview, s.overviewErr
}

func (s *stubSource) Providers(ctx context.Context) (map[string]entities.ProviderInfo, error) {
	return s.providers, nil
}

func (s *stubSource) MarketplaceModels(ctx context.Context) (map[string][]entities.MarketplaceModel, error) {
	return s.marketplace, nil
}

func TestPollPartialFailure(t *testing.T) {
	source := &stubSource{
		specs:     json.RawMessage(`{"cpu":"x"}`),
		overview:  json.RawMessage(`{"ram":"y"}`),
		providers: map[string]entities.ProviderInfo{"Ollama": {Installed: true, Models: []string{"llama3"}}},
	}
	poller := NewPoller(source, zap.NewNop())

	poller.Poll(context.Background())

	snap := poller.Snapshot()
	if string(snap.Specs) != `{"cpu":"x"}` {
		t.Errorf("Unexpected specs: %s", snap.Specs)
	}
	if len(snap.Providers) != 1 {
		t.Errorf("Expected 1 provider, got %d", len(snap.Providers))
	}

	// One resource failing must not block or clear the others.
	source.specsErr = errors.New("backend down")
	source.overview = json.RawMessage(`{"ram":"z"}`)

	poller.Poll(context.Background())

	snap = poller.Snapshot()
	if string(snap.Specs) != `{"cpu":"x"}` {
		t.Errorf("Expected last-known specs retained, got %s", snap.Specs)
	}
	if string(snap.Overview) != `{"ram":"z"}` {
		t.Errorf("Expected overview refreshed, got %s", snap.Overview)
	}
}

func TestPollNotifiesListener(t *testing.T) {
	source := &stubSource{
		providers: map[string]entities.ProviderInfo{"Ollama": {Installed: true}},
	}
	poller := NewPoller(source, zap.NewNop())

	var got entities.TelemetrySnapshot
	poller.SetOnUpdate(func(snap entities.TelemetrySnapshot) { got = snap })

	poller.Poll(context.Background())

	if len(got.Providers) != 1 {
		t.Errorf("Listener did not receive the snapshot: %+v", got)
	}
}
