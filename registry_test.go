package livellm

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegistry_ProvidersForModel(t *testing.T) {
	r := NewRegistry(testProviders())

	got, err := r.ProvidersForModel("text-model")
	if err != nil {
		t.Fatalf("ProvidersForModel() error = %v", err)
	}
	want := []Creds{
		{APIKey: "key-1", Provider: "p1"},
		{APIKey: "key-2", Provider: "p2", BaseURL: "https://p2.example.com"},
		{APIKey: "key-3", Provider: "p3"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ProvidersForModel() mismatch (-want +got):\n%s", diff)
	}

	got, err = r.ProvidersForModel("omni-model")
	if err != nil {
		t.Fatalf("ProvidersForModel() error = %v", err)
	}
	if len(got) != 1 || got[0].Provider != "p2" {
		t.Errorf("ProvidersForModel(omni-model) = %v, want [p2]", got)
	}
}

func TestRegistry_ProvidersForModel_NotFound(t *testing.T) {
	r := NewRegistry(testProviders())

	_, err := r.ProvidersForModel("missing")
	var notFound ModelNotFoundErr
	if !errors.As(err, &notFound) {
		t.Fatalf("ProvidersForModel() error = %v, want ModelNotFoundErr", err)
	}
	if string(notFound) != "missing" {
		t.Errorf("ModelNotFoundErr = %q, want %q", string(notFound), "missing")
	}
	if got, want := err.Error(), "model not found: missing"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	empty := NewRegistry(nil)
	if _, err := empty.ProvidersForModel("text-model"); !errors.As(err, &notFound) {
		t.Errorf("empty registry error = %v, want ModelNotFoundErr", err)
	}
}

func TestRegistry_ProvidersForModel_ListedTwice(t *testing.T) {
	r := NewRegistry([]ProviderConfig{
		{
			Creds:  Creds{APIKey: "a", Provider: "openai"},
			Models: []Model{{Name: "gpt"}, {Name: "gpt", Capabilities: NewCapabilitySet(ImageAgent)}},
		},
		{
			Creds:  Creds{APIKey: "b", Provider: "openai"},
			Models: []Model{{Name: "gpt"}},
		},
	})

	got, err := r.ProvidersForModel("gpt")
	if err != nil {
		t.Fatalf("ProvidersForModel() error = %v", err)
	}
	want := []Creds{{APIKey: "a", Provider: "openai"}, {APIKey: "b", Provider: "openai"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ProvidersForModel() mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_CapabilitiesForModel(t *testing.T) {
	r := NewRegistry([]ProviderConfig{
		{Creds: Creds{Provider: "a"}, Models: []Model{{Name: "shared"}}},
		{Creds: Creds{Provider: "b"}, Models: []Model{{Name: "shared", Capabilities: NewCapabilitySet(ImageAgent)}}},
		{Creds: Creds{Provider: "c"}, Models: []Model{{Name: "seer", Capabilities: NewCapabilitySet(VideoAgent)}}},
	})

	tests := []struct {
		model   string
		want    CapabilitySet
		wantErr bool
	}{
		{model: "shared", want: 0},
		{model: "seer", want: NewCapabilitySet(VideoAgent)},
		{model: "unknown", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			// Twice, to go through the cache.
			for range 2 {
				got, err := r.CapabilitiesForModel(tt.model)
				if (err != nil) != tt.wantErr {
					t.Fatalf("CapabilitiesForModel() error = %v, wantErr %v", err, tt.wantErr)
				}
				if got != tt.want {
					t.Errorf("CapabilitiesForModel() = %s, want %s", got, tt.want)
				}
			}
		})
	}
}

func TestRegistry_ModelsWithCapability(t *testing.T) {
	r := NewRegistry(testProviders())

	got := r.ModelsWithCapability(ImageAgent)
	var names []string
	for _, ref := range got {
		names = append(names, ref.Model.Name+"@"+ref.Creds.Provider)
	}
	if diff := cmp.Diff([]string{"vision-model@p1", "omni-model@p2"}, names); diff != "" {
		t.Errorf("ModelsWithCapability(image_agent) mismatch (-want +got):\n%s", diff)
	}

	if got := r.ModelsWithCapability(Speak); len(got) != 1 || got[0].Model.Name != "tts" {
		t.Errorf("ModelsWithCapability(speak) = %v", got)
	}
	if got := NewRegistry(nil).ModelsWithCapability(AudioAgent); len(got) != 0 {
		t.Errorf("empty registry returned %v", got)
	}
}

func TestRegistry_Immutable(t *testing.T) {
	providers := testProviders()
	r := NewRegistry(providers)

	providers[0].Models[0].Name = "renamed"
	providers[0].Creds.Provider = "changed"

	got, err := r.ProvidersForModel("text-model")
	if err != nil {
		t.Fatalf("ProvidersForModel() error = %v", err)
	}
	if got[0].Provider != "p1" {
		t.Errorf("registry affected by changes to its input: %v", got)
	}

	got[0].Provider = "mutated"
	again, _ := r.ProvidersForModel("text-model")
	if again[0].Provider != "p1" {
		t.Errorf("registry affected by changes to a returned slice: %v", again)
	}

	listed := r.Providers()
	listed[1].Models[0].Name = "mutated"
	if r.Providers()[1].Models[0].Name != "text-model" {
		t.Error("registry affected by changes to Providers() result")
	}
}

func TestRegistry_ConcurrentLookups(t *testing.T) {
	r := NewRegistry(testProviders())

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if creds, err := r.ProvidersForModel("text-model"); err != nil || len(creds) != 3 {
					t.Errorf("ProvidersForModel() = %v, %v", creds, err)
					return
				}
				if caps, err := r.CapabilitiesForModel("omni-model"); err != nil || !caps.Has(VideoAgent) {
					t.Errorf("CapabilitiesForModel() = %v, %v", caps, err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
