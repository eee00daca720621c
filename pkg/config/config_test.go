package config

import (
	"reflect"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("PORT", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("LLM_TEMPERATURE", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("TRUSTED_PROXIES", "")

	if err := Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if Port != "5000" {
		t.Errorf("Port = %q, want 5000", Port)
	}
	if LLMProvider != "openai" {
		t.Errorf("LLMProvider = %q, want openai", LLMProvider)
	}
	if DBDriver != "sqlite" {
		t.Errorf("DBDriver = %q, want sqlite", DBDriver)
	}
	if LLMTemperature != 0.7 {
		t.Errorf("LLMTemperature = %v, want 0.7", LLMTemperature)
	}
	if !reflect.DeepEqual(CORSAllowedOrigins, defaultOrigins) {
		t.Errorf("CORSAllowedOrigins = %v", CORSAllowedOrigins)
	}
	if len(TrustedProxies) != 0 {
		t.Errorf("TrustedProxies = %v, want none", TrustedProxies)
	}
}

func TestLoadRejectsUnknownValues(t *testing.T) {
	cases := map[string][2]string{
		"app env":  {"APP_ENV", "qa"},
		"provider": {"LLM_PROVIDER", "llama"},
		"driver":   {"DB_DRIVER", "oracle"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("APP_ENV", "development")
			t.Setenv("LLM_PROVIDER", "mock")
			t.Setenv("DB_DRIVER", "sqlite")
			t.Setenv(kv[0], kv[1])
			if err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", kv[0], kv[1])
			}
		})
	}
}

func TestProductionRequiresKeys(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("DATABASE_URL", "postgres://db")
	if err := Load(); err == nil {
		t.Fatal("expected error without OPENAI_API_KEY")
	}

	t.Setenv("OPENAI_API_KEY", "sk-test")
	if err := Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !IsProduction || IsStaging {
		t.Fatalf("IsProduction=%v IsStaging=%v", IsProduction, IsStaging)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" https://a.app , ,https://b.app", nil)
	want := []string{"https://a.app", "https://b.app"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("splitList = %v, want %v", got, want)
	}
	if got := splitList(" , ", []string{"x"}); !reflect.DeepEqual(got, []string{"x"}) {
		t.Fatalf("splitList fallback = %v", got)
	}
}
