package cmd

import (
	"time"

	"github.com/playmetrics-tools/pmctl/pkg/pmctl/auth"
	"github.com/playmetrics-tools/pmctl/pkg/pmctl/client"
	"github.com/playmetrics-tools/pmctl/pkg/pmctl/config"
)

// buildComponents wires the configuration into the API client and the
// credential-chain manager. Everything is constructed here, once, and passed
// down; no component reads the environment itself.
func buildComponents(rt *runtimeState) (*config.Config, *client.Client, *auth.Manager, error) {
	envCfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	options := []client.Option{
		client.WithServer(envCfg.Backend.BaseURL),
		client.WithBuildVersion(envCfg.Backend.BuildVersion),
		client.WithLogger(rt.log),
	}
	if rt.settings.Timeout != "" {
		if timeout, parseErr := time.ParseDuration(rt.settings.Timeout); parseErr == nil {
			options = append(options, client.WithTimeout(timeout))
		}
	}
	apiClient, err := client.New(options...)
	if err != nil {
		return nil, nil, nil, err
	}

	identity := auth.NewIdentityClient(envCfg.Identity, rt.log)
	backend := auth.NewBackendClient(envCfg.Backend, rt.log)
	manager := auth.NewManager(rt.store(), identity, backend, apiClient, rt.prompter(),
		envCfg.Email, envCfg.Password, rt.log)
	return envCfg, apiClient, manager, nil
}
