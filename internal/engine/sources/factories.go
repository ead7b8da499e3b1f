package sources

import "github.com/anatolykoptev/go_youtube/internal/engine"

// Factories returns constructors for every backend against the public endpoints.
func Factories() engine.Factories {
	return engine.Factories{
		API: func(cfg engine.Config) (engine.Backend, error) {
			b, err := NewDataAPI(cfg, "")
			if err != nil {
				return nil, err
			}
			return b, nil
		},
		Scraper: func(cfg engine.Config) (engine.Backend, error) {
			b, err := NewScraper(cfg, "")
			if err != nil {
				return nil, err
			}
			return b, nil
		},
		Music: func(cfg engine.Config, cookie string) (engine.Backend, error) {
			b, err := NewMusic(cfg, cookie, "")
			if err != nil {
				return nil, err
			}
			return b, nil
		},
	}
}
