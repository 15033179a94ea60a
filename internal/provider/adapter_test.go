// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"reflect"
	"testing"
	"time"

	"github.com/Liang-Chaoyue/PaperFinder/pkg/types"
)

func TestNewRegistry(t *testing.T) {
	cfg := types.SearchConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 10 * time.Second, UserAgent: "paperfinder/0.1"},
		MaxResults: 20,
	}
	reg := NewRegistry(cfg)

	want := []string{"arxiv", "crossref", "openalex", "scholar"}
	if got := reg.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	for tag, adapter := range reg {
		if adapter.Name() != tag {
			t.Errorf("registry key %q maps to adapter named %q", tag, adapter.Name())
		}
	}
}
