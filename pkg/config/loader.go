package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var defaultEnvLoaded sync.Once

// Load populates the provided configuration struct from environment
// variables using `env` struct tags.
//
// On the first call it also attempts to load a local .env file; a missing
// file is not an error so the same binary works in containers and on
// developer machines.
//
// Example:
//
//	type CheckoutConfig struct {
//		PublishableKey string        `env:"PAYMENT_PUBLISHABLE_KEY,required"`
//		ResultTimeout  time.Duration `env:"CHECKOUT_RESULT_TIMEOUT" envDefault:"15s"`
//	}
//
//	var cfg CheckoutConfig
//	if err := config.Load(&cfg); err != nil {
//		// handle error
//	}
func Load[T any](v *T) error {
	defaultEnvLoaded.Do(func() {
		// The .env file might not exist and that's ok.
		_ = godotenv.Load()
	})

	if v == nil {
		return ErrNilPointer
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
// Intended for configuration the application cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}
