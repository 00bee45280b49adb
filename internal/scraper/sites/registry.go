// Package sites holds the concrete site adapters and builds the source
// registrations from configuration.
package sites

import (
	"errors"
	"fmt"
	"sort"

	"github.com/benny59/architetti/internal/config"
	"github.com/benny59/architetti/internal/logger"
	"github.com/benny59/architetti/internal/normalizer"
	"github.com/benny59/architetti/internal/scraper"
)

// ErrUnknownSite is returned for a configured nickname with no adapter.
var ErrUnknownSite = errors.New("no adapter for site")

// Deps are the shared collaborators handed to adapter constructors.
type Deps struct {
	Fetcher  *scraper.Fetcher
	Renderer Renderer
	Log      logger.Logger
}

type site struct {
	profile normalizer.Profile
	build   func(cfg *config.Config, deps Deps) scraper.Adapter
}

var catalog = map[string]site{
	"professione_architetto": {
		profile: ProfessioneArchitettoProfile,
		build: func(cfg *config.Config, deps Deps) scraper.Adapter {
			return NewProfessioneArchitetto(deps.Fetcher, cfg.MaxPages)
		},
	},
	"genovaconcorsi": {
		profile: GenovaProfile,
		build: func(cfg *config.Config, deps Deps) scraper.Adapter {
			return NewGenova(deps.Fetcher, cfg.MaxPages)
		},
	},
	"demanio": {
		profile: DemanioProfile,
		build: func(cfg *config.Config, deps Deps) scraper.Adapter {
			return NewDemanio(deps.Fetcher, cfg.MaxPages, DemanioBaseURL)
		},
	},
	config.AuthenticatedSource: {
		profile: normalizer.DefaultProfile,
		build: func(cfg *config.Config, deps Deps) scraper.Adapter {
			return NewEuropaconcorsi(EuropaconcorsiConfig{
				Username:  cfg.Credentials.Username,
				Password:  cfg.Credentials.Password,
				UserAgent: cfg.HTTP.UserAgent,
				Timeout:   cfg.HTTP.Timeout,
				MaxPages:  cfg.MaxPages,
			}, deps.Log)
		},
	},
	"aria": {
		profile: AriaProfile,
		build: func(cfg *config.Config, deps Deps) scraper.Adapter {
			r := deps.Renderer
			if r == nil {
				r = &ChromeRenderer{ExecPath: cfg.Browser.ExecPath, Timeout: cfg.Browser.Timeout}
			}
			return NewAria(r, deps.Log)
		},
	},
	"dummy_site": {
		profile: DummyProfile,
		build: func(*config.Config, Deps) scraper.Adapter {
			return Dummy()
		},
	},
}

// Known lists the nicknames that have an adapter.
func Known() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build turns every configured source into a Registration, in configuration
// order, and registers each source's normalizer profile. Disabled sources are
// included with Enabled=false.
func Build(cfg *config.Config, deps Deps) ([]scraper.Registration, *normalizer.Normalizer, error) {
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}
	if deps.Fetcher == nil {
		deps.Fetcher = scraper.NewFetcher(scraper.FetcherConfig{
			Timeout:     cfg.HTTP.Timeout,
			MaxAttempts: cfg.HTTP.MaxAttempts,
			UserAgent:   cfg.HTTP.UserAgent,
		}, deps.Log)
	}

	norm := normalizer.New()
	regs := make([]scraper.Registration, 0, len(cfg.Sources))

	for _, src := range cfg.Sources {
		s, ok := catalog[src.Nickname]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnknownSite, src.Nickname)
		}

		norm.Register(src.Nickname, s.profile)
		regs = append(regs, scraper.Registration{
			Nickname: src.Nickname,
			Adapter:  s.build(cfg, deps),
			Seeds:    append([]string(nil), src.URLs...),
			Enabled:  src.Enabled,
			Exclude:  append([]string(nil), src.Exclude...),
		})
	}

	return regs, norm, nil
}
