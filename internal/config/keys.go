package config

import "os"

// APIKeySource represents where an API key comes from.
type APIKeySource string

const (
	KeySourceEnv    APIKeySource = "env"
	KeySourceConfig APIKeySource = "config"
	KeySourceNone   APIKeySource = "none"
)

// KeyStatus represents the status of an API key.
type KeyStatus struct {
	Name   string       `json:"name"`
	Source APIKeySource `json:"source"`
	IsSet  bool         `json:"is_set"`
	Masked string       `json:"masked,omitempty"` // e.g., "abc...xyz"
}

// CheckAPIKeys returns the status of every credential the services use.
func CheckAPIKeys(cfg *Config) []KeyStatus {
	return []KeyStatus{
		checkKey("EDINET Subscription Key", cfg.EDINET.SubscriptionKey,
			"EDINET_SUBSCRIPTION_KEY", "EDINET_API_KEY", EnvPrefix+"_EDINET_SUBSCRIPTION_KEY"),
		checkKey("Gemini API Key", cfg.Insights.GeminiKey, "GEMINI_API_KEY", EnvPrefix+"_INSIGHTS_GEMINI_KEY"),
		checkKey("FMP API Key", cfg.Insights.FMPKey, "FMP_API_KEY", EnvPrefix+"_INSIGHTS_FMP_KEY"),
		checkKey("PAY.JP Secret Key", cfg.Billing.PayJPSecretKey, "PAYJP_SECRET_KEY", EnvPrefix+"_BILLING_PAYJP_SECRET_KEY"),
	}
}

// checkKey checks if a key is set and where it came from.
func checkKey(name, value string, envVars ...string) KeyStatus {
	status := KeyStatus{
		Name:   name,
		IsSet:  value != "",
		Source: KeySourceNone,
	}
	if value == "" {
		return status
	}

	status.Source = KeySourceConfig
	for _, env := range envVars {
		if os.Getenv(env) != "" {
			status.Source = KeySourceEnv
			break
		}
	}
	status.Masked = maskKey(value)
	return status
}

// maskKey masks an API key for display, showing only first 3 and last 3 chars.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}
