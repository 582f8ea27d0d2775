// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/homewire/controller"
	"github.com/bureau-foundation/homewire/lib/config"
	"github.com/bureau-foundation/homewire/lib/secret"
	"github.com/bureau-foundation/homewire/lib/watch"
)

// ConnectConfig holds the shared flags for reaching a controller: the
// settings file and per-invocation overrides of its connection fields.
//
// Usage pattern:
//
//	type getParams struct {
//	    cli.ConnectConfig
//	    cli.JSONOutput
//	}
//
//	// In Run:
//	settings, err := params.Settings()
//	session, err := cli.Connect(ctx, settings, logger)
type ConnectConfig struct {
	ConfigFile   string
	Endpoint     string
	Username     string
	PasswordFile string
}

// AddFlags registers --config, --endpoint, --username, and
// --password-file on the given flag set.
func (c *ConnectConfig) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&c.ConfigFile, "config", "c", "", "settings file (.yaml, .yml, .json, .jsonc); default $"+config.EnvironmentVariable)
	flagSet.StringVar(&c.Endpoint, "endpoint", "", "controller base URL (overrides the settings file)")
	flagSet.StringVar(&c.Username, "username", "", "controller user (overrides the settings file)")
	flagSet.StringVar(&c.PasswordFile, "password-file", "", "file holding the password, or - for stdin (overrides the settings file)")
}

// Settings loads the settings file named by --config, falling back to
// $HOMEWIRE_CONFIG and then to built-in defaults, applies the flag
// overrides, and validates the result.
func (c *ConnectConfig) Settings() (*config.Settings, error) {
	settings, err := c.Load()
	if err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, &ToolError{Category: CategoryValidation, Err: err}
	}
	return settings, nil
}

// Load is Settings without validation.
func (c *ConnectConfig) Load() (*config.Settings, error) {
	settings, err := c.loadFile()
	if err != nil {
		return nil, err
	}
	if c.Endpoint != "" {
		settings.Endpoint = c.Endpoint
	}
	if c.Username != "" {
		settings.Username = c.Username
	}
	if c.PasswordFile != "" {
		settings.PasswordFile = c.PasswordFile
	}
	return settings, nil
}

func (c *ConnectConfig) loadFile() (*config.Settings, error) {
	if c.ConfigFile != "" {
		settings, err := config.LoadFile(c.ConfigFile)
		if err != nil {
			return nil, Validation("%w", err)
		}
		return settings, nil
	}
	if os.Getenv(config.EnvironmentVariable) != "" {
		settings, err := config.Load()
		if err != nil {
			return nil, Validation("%w", err)
		}
		return settings, nil
	}
	return config.Default(), nil
}

// Connect authenticates against the controller described by settings.
// The password is read from settings.PasswordFile or prompted for, and
// released before Connect returns. Every call is reported to a
// LogObserver on logger and then to observers. The caller must
// Disconnect and Close the returned session.
func Connect(ctx context.Context, settings *config.Settings, logger *slog.Logger, observers ...controller.CallObserver) (*controller.Session, error) {
	client, err := NewClient(settings, logger, observers...)
	if err != nil {
		return nil, err
	}

	password, err := ReadPassword(settings.PasswordFile)
	if err != nil {
		return nil, err
	}
	defer password.Close()

	return Authenticate(ctx, client, settings, password)
}

// Authenticate opens one session on client. Commands that need several
// sessions read the password once and call Authenticate for each.
func Authenticate(ctx context.Context, client *controller.Client, settings *config.Settings, password *secret.Buffer) (*controller.Session, error) {
	session, err := client.Authenticate(ctx, controller.Credentials{
		Username:    settings.Username,
		Password:    password,
		Application: settings.Application,
	})
	if err != nil {
		if errors.Is(err, controller.ErrAuthenticationRejected) {
			return nil, Forbidden("login as %q refused: %w", settings.Username, err)
		}
		return nil, Classify(err)
	}
	return session, nil
}

// NewClient creates an unauthenticated client from settings.
func NewClient(settings *config.Settings, logger *slog.Logger, observers ...controller.CallObserver) (*controller.Client, error) {
	callObservers := controller.Observers{controller.LogObserver{Logger: logger}}
	callObservers = append(callObservers, observers...)

	client, err := controller.NewClient(controller.ClientConfig{
		Endpoint:     settings.Endpoint,
		CookieName:   settings.CookieName,
		Logger:       logger,
		LogSensitive: settings.LogSensitive,
		Observer:     callObservers,
		CallTimeout:  settings.RequestTimeout.Std(),
	})
	if err != nil {
		return nil, Classify(err)
	}
	return client, nil
}

// WatchOptions converts the watch section of settings. Zero fields keep
// the watch loop's defaults.
func WatchOptions(settings *config.Settings, logger *slog.Logger) watch.Options {
	return watch.Options{
		Logger:               logger,
		PollPause:            settings.Watch.PollPause.Std(),
		WaitTimeout:          settings.Watch.WaitTimeout.Std(),
		BackoffUnit:          settings.Watch.BackoffUnit.Std(),
		MaxConsecutiveErrors: settings.Watch.MaxConsecutiveErrors,
		CleanupPause:         settings.Watch.CleanupPause.Std(),
		CleanupTimeout:       settings.Watch.CleanupTimeout.Std(),
	}
}

// disconnectTimeout bounds the logout sent when a command finishes.
const disconnectTimeout = 10 * time.Second

// Release logs session out and releases it. The logout runs even when
// ctx is already cancelled, so an interrupted command still frees its
// controller session.
func Release(ctx context.Context, session *controller.Session) {
	logoutContext, cancel := context.WithTimeout(context.WithoutCancel(ctx), disconnectTimeout)
	defer cancel()
	session.Disconnect(logoutContext)
	session.Close()
}
